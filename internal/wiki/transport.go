package wiki

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// maxRedirects bounds HTTP-level redirects, such as the one answered by
// Special:Random. It is unrelated to wiki redirect pages.
const maxRedirects = 10

// newHTTPClient creates the HTTP client used for every wiki request.
// When proxyAddress is set, connections are dialed through a SOCKS5 proxy.
//
// Design decision: We build our own transport instead of using
// http.DefaultClient because:
//  1. The per-request timeout must apply to every fetch of a walk
//  2. A SOCKS5 proxy needs a custom dialer
//  3. Headers and the User-Agent are injected once for all requests
func newHTTPClient(timeout time.Duration, proxyAddress, userAgent string, headers map[string]string) (*http.Client, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	if proxyAddress != "" {
		if !isValidProxyAddress(proxyAddress) {
			return nil, ErrInvalidProxyAddress
		}
		dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		transport.DialContext = dialContext(dialer)
	}

	return &http.Client{
		Transport: &headerTransport{
			base:      transport,
			userAgent: userAgent,
			headers:   headers,
		},
		Timeout: timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// dialContext adapts a proxy.Dialer to http.Transport.DialContext.
// Dialers returned by proxy.SOCKS5 support contexts directly.
func dialContext(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}
}

// isValidProxyAddress checks that address is "host:port" with a port in
// the range 1-65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// headerTransport injects the User-Agent and custom headers into every
// request, including the ones issued while following HTTP redirects.
type headerTransport struct {
	base      http.RoundTripper
	userAgent string
	headers   map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.userAgent != "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
