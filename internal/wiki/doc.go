// Package wiki talks to a MediaWiki site.
//
// Client fetches rendered article bodies through the action=parse API,
// follows redirect pages for one hop, picks random articles and checks
// whether a title is a usable starting article. It implements the
// crawler.Resolver interface.
//
// All requests go through one http.Client. When a SOCKS5 proxy is
// configured, connections are dialed through golang.org/x/net/proxy.
package wiki
