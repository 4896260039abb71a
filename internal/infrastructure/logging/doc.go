// Package logging wraps log/slog for the blueprint service.
//
// Every entry carries service and version fields, so blueprintd's log
// lines can be told apart from its neighbours on a shared collector.
// Level, format, and destination come from the logging section of the
// config file:
//
//	logging:
//	  level: "info"    # debug, info, warn, error
//	  format: "json"   # json, text
//	  output: "stdout" # stdout, stderr
//
// Components derive their own loggers with With:
//
//	regLog := log.With("component", "registry")
//	regLog.Info("cache warmed", "domain", "automation", "count", 12)
//
// Never log tokens, passwords, or full blueprint source. Log paths and
// domains instead.
package logging
