// Package pipeline streams a remote dataset through user code without ever
// holding the whole dataset on disk: prefetch workers download filtered items
// into a bounded queue, the user takes items and submits results, and upload
// workers push results back and delete the local copies.
//
// The bounded download queue is the backpressure: local disk usage stays
// around queue_size times the average file size. A state file in the work
// directory records processed items and pending uploads so a restart resumes
// where it stopped.
package pipeline
