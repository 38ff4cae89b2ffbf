// Package logging provides structured logging for linux-enable-ir-emitter.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the tool.
//
// # Features
//
//   - Text output for interactive use (the default)
//   - JSON output when the journal or a collector consumes the logs
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # json, text
//	  output: "stderr"   # stdout, stderr
//
// The --verbose flag forces the debug level.
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "6.0.0", os.Stdout, os.Stderr)
//	logger.Info("driver applied", "device", device)
//	logger.Error("boot enable failed", "error", err)
package logging
