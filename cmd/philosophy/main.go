// Package main provides the entry point for the philosophy CLI.
//
// philosophy follows the first link of Wikipedia articles until it reaches
// Philosophy, loops, or runs out of links.
//
// Usage:
//
//	philosophy walk <title>...
//	philosophy walk --random 10
//	philosophy check <title>...
//	philosophy history
//
// See --help for all available options.
package main

// main is the entry point for philosophy.
func main() {
	Execute()
}
