// Package opstate persists per-operation progress so an interrupted sync or
// move can resume.
//
// A state file is a JSON document mapping each planned file's 64-bit
// symbolic-path hash to pending, done, or failed:<message>. All writes go
// through a single writer goroutine that batches adjacent updates into one
// atomic temp-and-rename flush.
package opstate
