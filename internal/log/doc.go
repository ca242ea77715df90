// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of sensitive values (cookies, tokens, secrets)
//   - Credential scrubbing inside logged URL values
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// # Security Features
//
// The SecureHandler automatically sanitizes sensitive information in log output:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - Secret values detected by pattern matching (passwords, tokens, keys)
//   - Session identifiers and authentication tokens
//   - Credentials embedded in URLs: userinfo and token-like query parameters
//
// A crawler logs discovered URLs continuously, and those URLs sometimes carry
// session tokens or credentials in their query strings. URL values are
// therefore scrubbed rather than dropped: the host and path stay readable
// while embedded secrets are masked. Even in verbose mode, sensitive values
// are masked to prevent accidental exposure in logs that may be shared.
//
// # Usage
//
//	// Create a secure logger
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	// Use as a standard slog.Logger
//	logger.Debug("discovered",
//	    "url", "http://example.com/reset?token=abc123", // token is masked
//	    "depth", 2,
//	)
//
//	// Set as default logger
//	slog.SetDefault(logger)
package log
