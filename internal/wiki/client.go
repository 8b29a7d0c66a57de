package wiki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/philosophy/internal/model"
)

const (
	// DefaultBaseURL is the English Wikipedia.
	DefaultBaseURL = "https://en.wikipedia.org"

	// DefaultAPIPath is the path of the MediaWiki action API.
	DefaultAPIPath = "/w/api.php"

	// DefaultTimeout bounds each HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize limits how much of a response is read.
	DefaultMaxBodySize int64 = 10 * 1024 * 1024 // 10MB

	// DefaultUserAgent identifies the tool as Wikimedia's API etiquette asks.
	DefaultUserAgent = "philosophy/1.0 (+https://github.com/nao1215/philosophy)"

	// randomPageTitle is the special page that redirects to a random article.
	randomPageTitle = "Special:Random"
)

// Client fetches pages from one MediaWiki site.
// A Client holds no per-walk state and is safe for concurrent use.
type Client struct {
	// baseURL is the scheme and host of the wiki, without trailing slash.
	baseURL *url.URL

	// apiPath is the path of api.php.
	apiPath string

	// articlePath is the prefix under which articles are served.
	articlePath string

	// httpClient performs all requests. Built in NewClient unless
	// supplied with WithHTTPClient.
	httpClient *http.Client

	// timeout is the per-request timeout.
	timeout time.Duration

	// userAgent is sent with every request.
	userAgent string

	// headers are extra headers sent with every request.
	headers map[string]string

	// maxBodySize limits response bodies.
	maxBodySize int64

	// proxyAddress is an optional SOCKS5 proxy in "host:port" form.
	proxyAddress string

	// logger for structured logging.
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHeaders sets extra headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.headers = headers
	}
}

// WithMaxBodySize sets the response size limit.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

// WithProxy routes all requests through a SOCKS5 proxy at "host:port".
func WithProxy(address string) Option {
	return func(c *Client) {
		c.proxyAddress = address
	}
}

// WithHTTPClient uses hc instead of building an HTTP client. Timeout,
// proxy, User-Agent and header options are then ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithArticlePath sets the prefix under which articles are served.
func WithArticlePath(prefix string) Option {
	return func(c *Client) {
		if prefix != "" {
			c.articlePath = prefix
		}
	}
}

// WithAPIPath sets the path of api.php.
func WithAPIPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.apiPath = path
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client for the wiki at baseURL, such as
// "https://en.wikipedia.org".
//
// Design decision: We validate the base URL and proxy address here but do
// not contact the wiki because:
//  1. Configuration mistakes surface before any walk starts
//  2. Object creation stays separate from network operations
//  3. Tests can create clients for servers that start later
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		baseURL:     u,
		apiPath:     DefaultAPIPath,
		articlePath: model.DefaultArticlePath,
		timeout:     DefaultTimeout,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	if c.httpClient == nil {
		hc, err := newHTTPClient(c.timeout, c.proxyAddress, c.userAgent, c.headers)
		if err != nil {
			return nil, err
		}
		c.httpClient = hc
	}

	return c, nil
}

// BaseURL returns the wiki's base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ArticlePath returns the prefix under which articles are served.
func (c *Client) ArticlePath() string {
	return c.articlePath
}

// CanonicalURL returns the absolute article URL of id.
func (c *Client) CanonicalURL(id model.PageID) string {
	return c.baseURL.String() + id.Path(c.articlePath)
}

// ResolveHref converts an in-wiki href into a PageID. It never touches the
// network; fragments are dropped and applying it to its own output's path
// yields the same PageID.
func (c *Client) ResolveHref(href string) model.PageID {
	return model.NewPageIDWithPrefix(href, c.articlePath)
}

// FetchPage fetches the rendered body of id. A redirect notice is followed
// once; the returned handle then carries the redirect target's title and
// RedirectedFrom holds id. A redirect to another redirect is reported as
// ErrRedirectParse.
func (c *Client) FetchPage(ctx context.Context, id model.PageID) (*model.PageHandle, error) {
	id = model.NewPageIDWithPrefix(id.String(), c.articlePath)
	if id.IsZero() {
		return nil, fmt.Errorf("%w: empty title", ErrNotFound)
	}

	handle, err := c.fetchRendered(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isRedirect(handle.Body) {
		return handle, nil
	}

	href, ok := redirectHref(handle.Body)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no redirect target", ErrRedirectParse, id)
	}
	target := c.ResolveHref(href)
	if target.IsZero() {
		return nil, fmt.Errorf("%w: %s redirects to %q", ErrRedirectParse, id, href)
	}

	c.logger.Debug("following redirect", "from", id, "to", target)

	redirected, err := c.fetchRendered(ctx, target)
	if err != nil {
		return nil, err
	}
	if isRedirect(redirected.Body) {
		return nil, fmt.Errorf("%w: %s redirects to redirect %s", ErrRedirectParse, id, target)
	}

	redirected.RedirectedFrom = id
	return redirected, nil
}

// RandomTitle asks the wiki for a random article and returns its title
// without fetching the article body.
func (c *Client) RandomTitle(ctx context.Context) (model.PageID, error) {
	resp, err := c.get(ctx, c.CanonicalURL(randomPageTitle))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, c.maxBodySize)); err != nil {
		return "", fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	final := resp.Request.URL
	id := model.NewPageIDWithPrefix(final.EscapedPath(), c.articlePath)
	if id.IsZero() || id == randomPageTitle {
		return "", fmt.Errorf("%w: random page did not redirect to an article (%s)", ErrRedirectParse, final)
	}
	return id, nil
}

// FetchRandomPage fetches a random article.
func (c *Client) FetchRandomPage(ctx context.Context) (*model.PageHandle, error) {
	id, err := c.RandomTitle(ctx)
	if err != nil {
		return nil, err
	}
	return c.FetchPage(ctx, id)
}

// IsEligibleStartingArticle reports whether title can start a walk. When
// it cannot, the error says why: ErrNotFound for missing articles,
// ErrIneligible for disambiguation pages, or a fetch error.
func (c *Client) IsEligibleStartingArticle(ctx context.Context, title model.PageID) (bool, error) {
	if _, err := c.CheckStartingArticle(ctx, title); err != nil {
		return false, err
	}
	return true, nil
}

// CheckStartingArticle is IsEligibleStartingArticle that also returns the
// fetched page, so a walk can begin without fetching the start again.
func (c *Client) CheckStartingArticle(ctx context.Context, title model.PageID) (*model.PageHandle, error) {
	page, err := c.FetchPage(ctx, title)
	if err != nil {
		return nil, err
	}

	if reason := ineligibility(page.Body); reason != nil {
		return nil, fmt.Errorf("%w: %s", reason, page.ID)
	}
	return page, nil
}

// fetchRendered calls action=parse for id and parses the returned HTML.
// It does not follow redirect notices.
func (c *Client) fetchRendered(ctx context.Context, id model.PageID) (*model.PageHandle, error) {
	c.logger.Debug("fetching page", "title", id)

	body, err := c.getBody(ctx, c.parseURL(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}

	var result parseResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedResponse, id, err)
	}
	if result.Error != nil {
		if notFoundCodes[result.Error.Code] {
			return nil, fmt.Errorf("%w: %s (%s)", ErrNotFound, id, result.Error.Code)
		}
		return nil, fmt.Errorf("%w: %s: %s (%s)", ErrNetwork, id, result.Error.Code, result.Error.Info)
	}
	if result.Parse == nil {
		return nil, fmt.Errorf("%w: %s: no parse result", ErrMalformedResponse, id)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.Parse.Text.HTML))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedResponse, id, err)
	}

	final := model.NewPageIDWithPrefix(result.Parse.Title, c.articlePath)
	if final.IsZero() {
		final = id
	}

	return &model.PageHandle{
		ID:           final,
		CanonicalURL: c.CanonicalURL(final),
		Body:         doc,
	}, nil
}

// parseURL builds the action=parse request URL for id.
func (c *Client) parseURL(id model.PageID) string {
	q := url.Values{}
	q.Set("action", "parse")
	q.Set("page", id.String())
	q.Set("prop", "text")
	q.Set("format", "json")
	q.Set("formatversion", "1")

	return c.baseURL.String() + c.apiPath + "?" + q.Encode()
}

// getBody performs a GET request and returns the body, bounded by the size
// limit. A 404 maps to ErrNotFound, other non-2xx statuses to ErrNetwork.
func (c *Client) getBody(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, c.maxBodySize)
	}

	return bytes.TrimSpace(body), nil
}

// get performs a GET request and checks the status code. The caller closes
// the body.
func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/html;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %s", ErrNetwork, rawURL, resp.Status)
	}

	return resp, nil
}
