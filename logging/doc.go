// Package logging provides a minimal logging interface and adapters for agentmux.
//
// The Logger interface defines the leveled methods (Debug, Info, Warn, Error)
// that the orchestrator, agents, tools and workflows use for observability.
// This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging, optionally bound to a context
//   - A trace-aware slog handler that stamps trace_id and span_id on records
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", os.Stderr, false)
//	mux := agentmux.New(func(o *agentmux.Options) { o.Logger = logger })
package logging
