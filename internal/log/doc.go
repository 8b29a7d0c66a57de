// Package log provides structured logging with automatic redaction of
// credentials, built on top of the standard slog package.
//
// Walks against private wikis may carry an Authorization header, a session
// cookie or an OAuth token in the configured headers or in request URLs.
// SecureHandler masks those values before they reach the output:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - credential-looking keys (password, token, secret, session)
//   - bearer, basic and JWT values regardless of key
//   - credential query parameters inside URL values
//
// Page titles are never masked, even when they look like long opaque
// strings, so logs of a walk stay readable.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
//	logger.Debug("following first link", "from", "Art", "to", "Creativity")
package log
