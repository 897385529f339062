package testsupport

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"golang.org/x/net/webdav"
)

// ServeWebDAV exposes root over WebDAV on a local test server and returns its
// base URL. The server shuts down with the test.
func ServeWebDAV(t testing.TB, root string) string {
	t.Helper()
	handler := &webdav.Handler{
		FileSystem: webdav.Dir(root),
		LockSystem: webdav.NewMemLS(),
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server.URL
}

// ServeWebDAVWithAuth is ServeWebDAV behind HTTP basic auth.
func ServeWebDAVWithAuth(t testing.TB, root, username, password string) string {
	t.Helper()
	handler := &webdav.Handler{
		FileSystem: webdav.Dir(root),
		LockSystem: webdav.NewMemLS(),
	}
	wrapped := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != username || pass != password {
			w.Header().Set("WWW-Authenticate", `Basic realm="blackbird"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
	server := httptest.NewServer(wrapped)
	t.Cleanup(server.Close)
	return server.URL
}

// FlakyWebDAV wraps a dataset root in a server that fails the nth GET of a
// data file permanently until Restore is called. It is used to exercise
// resume behavior.
type FlakyWebDAV struct {
	URL     string
	handler *flakyHandler
}

type flakyHandler struct {
	mu      sync.Mutex
	inner   http.Handler
	failNth int
	order   []string
	seen    map[string]int
	broken  bool
}

func (h *flakyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet && !isMetadataPath(r.URL.Path) {
		h.mu.Lock()
		ordinal, ok := h.seen[r.URL.Path]
		if !ok {
			h.order = append(h.order, r.URL.Path)
			ordinal = len(h.order)
			h.seen[r.URL.Path] = ordinal
		}
		broken := h.broken
		h.mu.Unlock()
		if broken && ordinal == h.failNth {
			http.Error(w, "injected fault", http.StatusInternalServerError)
			return
		}
	}
	h.inner.ServeHTTP(w, r)
}

func isMetadataPath(path string) bool {
	return len(path) >= len("/.blackbird") && path[:len("/.blackbird")] == "/.blackbird"
}

// ServeFlakyWebDAV serves root but persistently fails GETs for the nth
// distinct data file requested (1-based) until Restore is called.
func ServeFlakyWebDAV(t testing.TB, root string, failNth int) *FlakyWebDAV {
	t.Helper()
	handler := &flakyHandler{
		inner: &webdav.Handler{
			FileSystem: webdav.Dir(root),
			LockSystem: webdav.NewMemLS(),
		},
		failNth: failNth,
		seen:    map[string]int{},
		broken:  true,
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &FlakyWebDAV{URL: server.URL, handler: handler}
}

// Restore heals the injected fault.
func (f *FlakyWebDAV) Restore() {
	f.handler.mu.Lock()
	f.handler.broken = false
	f.handler.mu.Unlock()
}
