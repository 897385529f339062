// Package webdavcfg renders the nginx site configuration that exposes a
// dataset over WebDAV. It only generates text; installing the file and
// reloading nginx remain operator steps.
package webdavcfg
