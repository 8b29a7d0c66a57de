package wiki

import "errors"

// Errors returned by Client.
//
// Design decision: We expose sentinel errors and wrap details with %w
// because:
//  1. The walker records any error, but the batch runner must tell a dead
//     wiki (ErrNetwork) from a missing article (ErrNotFound)
//  2. errors.Is keeps working through the context added by each layer
//  3. Starting-article checks report why a title was refused
var (
	// ErrNotFound is returned when the requested article does not exist.
	ErrNotFound = errors.New("page not found")

	// ErrIneligible is returned when an article exists but cannot start a
	// walk, such as a disambiguation page.
	ErrIneligible = errors.New("page is not an eligible starting article")

	// ErrRedirectParse is returned when a redirect notice has no usable
	// target or leads to another redirect.
	ErrRedirectParse = errors.New("cannot follow redirect")

	// ErrNetwork is returned when the wiki cannot be reached or answers
	// with an unexpected status. Requests are not retried.
	ErrNetwork = errors.New("wiki request failed")

	// ErrMalformedResponse is returned when the API answer cannot be decoded.
	ErrMalformedResponse = errors.New("malformed API response")

	// ErrResponseTooLarge is returned when a response exceeds the body limit.
	ErrResponseTooLarge = errors.New("response exceeds size limit")

	// ErrInvalidBaseURL is returned when the base URL is not an absolute
	// http or https URL.
	ErrInvalidBaseURL = errors.New("invalid base URL: expected http(s)://host")

	// ErrInvalidProxyAddress is returned when the proxy address format is
	// invalid. Expected format is "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")
)
