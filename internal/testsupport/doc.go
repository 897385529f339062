// Package testsupport builds the canonical fixture dataset used across the
// engine's tests and serves dataset directories over WebDAV in-process.
package testsupport
