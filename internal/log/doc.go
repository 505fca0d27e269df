// Package log provides the wikiscrape logger: slog with redaction of
// request secrets.
//
// Site configuration may carry cookies and authorization headers. The
// RedactHandler masks them wherever they would reach the log:
//   - attributes whose key names a secret (cookie, authorization, token, ...)
//   - values that look like credentials (bearer tokens, JWTs)
//   - secret query parameters inside logged URLs
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, log.LevelFor(verbose, quiet))
//	logger.Info("page archived", "url", key, "chars", n)
package log
