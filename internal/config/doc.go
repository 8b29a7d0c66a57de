// Package config provides configuration structures and utilities for
// philosophy. It defines which wiki to walk, the walk limits, the HTTP
// settings for talking to the wiki, and report and history preferences.
//
// Values come from three layers, later layers winning: the defaults of
// NewConfig, a YAML configuration file (.philosophy) with optional named
// wiki profiles, and command line flags.
package config
