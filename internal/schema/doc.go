// Package schema models the component definitions of a dataset: named glob
// patterns over file names that classify each file as an instrumental, a
// vocals stem, an analysis JSON, and so on.
//
// Patterns are case-sensitive, apply to the file name only, and must be
// mutually unambiguous: no two components may claim the same file. Discovery
// derives a schema from an existing tree; merge imports remote definitions
// during a sync without ever overwriting local ones.
package schema
