// Package webdav is the engine's transport: a thin WebDAV client that lists,
// downloads, and uploads files over HTTP(S).
//
// The client knows nothing about symbolic paths or dataset semantics and
// performs single attempts only; retry policy belongs to the synchronizer and
// the streaming pipeline. Connection pooling, HTTP/2, basic auth, and the
// per-request timeout are configured once at construction.
package webdav
