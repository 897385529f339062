// Package logging constructs the slog loggers used across the engine.
//
// It offers a console handler that renders key=value lines for interactive
// use and a JSON handler for machine consumption. Verbosity is injected via
// Options; there is no package-level logger. Attr helpers mirror the slog
// constructors so call sites stay terse.
package logging
