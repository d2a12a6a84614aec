/*
Package log provides structured logging for kvstore using zerolog.

The package wraps zerolog to give JSON-structured logging with
component-specific child loggers, configurable severity levels, and a
handful of helpers for the fields this service logs most often (request
key, content hash).

# Usage

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	log.Info("store opened")

	reqLog := log.WithComponent("api").
		With().Str("method", r.Method).Logger()
	reqLog.Debug().Msg("handling request")

	log.WithHash(hash).Info().Msg("object stored")

# Log levels

Debug is for request tracing during development, Info is the default
production level, Warn/Error are for conditions worth surfacing. Fatal
logs and calls os.Exit(1) — reserve it for startup failures (bad config,
store that won't open).

# Security

Never log the bearer token. Authentication failures log the fact of
failure, not the value that was compared.
*/
package log
