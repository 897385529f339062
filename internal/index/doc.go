// Package index holds the in-memory catalog of a dataset and its on-disk
// persistence.
//
// The catalog keys tracks and files by symbolic path, so it stays valid when
// a location's physical root moves. Persistence is a SQLite database
// (.blackbird/index.db) read fully into memory on load; PRAGMA user_version
// carries the format version. The 64-bit symbolic-path hash (XXH64) is the
// wire identity of a file in operation-state files and must match between the
// writer and any later reader.
package index
