// Package indexer walks every registered location, classifies files through
// the schema, and produces a fresh index. Building is single-threaded; the
// resulting index is immutable for the rest of the operation.
package indexer
