// Package logging provides structured logging for Todo Core.
//
// It wraps log/slog so every component logs the same way: JSON in
// production, text for development, and service/version fields on every
// entry.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("starting service", "port", cfg.API.Port)
//
// Never log passwords, password hashes or tokens.
package logging
