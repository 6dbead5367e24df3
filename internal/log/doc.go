// Package log provides slog loggers that keep secrets and chat content out
// of log output.
//
// SecureHandler wraps any slog.Handler and rewrites attributes before they
// are written:
//   - credential-like keys (authorization, x-api-key, token, password, ...)
//     are replaced with MaskValue
//   - credential-like values (JWTs, bearer tokens, AWS access keys, PEM
//     blocks) are replaced with MaskValue
//   - API keys and US social security numbers embedded in longer strings,
//     such as error messages, are masked in place
//   - chat message bodies under the message, prompt, preview and text keys
//     are cut to a short prefix followed by their length
//
// Even in verbose mode nothing typed into a chatbot is logged in full.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Warn("leak analysis failed", "message", msg, "error", err)
//	slog.SetDefault(logger)
package log
