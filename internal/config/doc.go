// Package config carries the engine's tunables: worker pool sizes, transport
// options, and logging. Values come from compiled defaults, optionally
// overridden by a TOML file; command-line flags override both.
package config
