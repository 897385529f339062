// Package fileutil provides the small filesystem primitives the engine relies
// on: atomic replace-on-write, streamed copies, and a move that falls back to
// copy-then-delete when the rename crosses filesystems.
package fileutil
