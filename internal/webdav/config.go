package webdav

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http2"
)

var (
	// ErrBadURL is returned for URLs the transport does not accept.
	ErrBadURL = errors.New("invalid WebDAV URL")

	// ErrTransport tags network and HTTP failures.
	ErrTransport = errors.New("transport error")
)

// DefaultTimeout is the per-request timeout when none is configured.
const DefaultTimeout = 60 * time.Second

// Config is the recognized transport option set.
type Config struct {
	URL                 string
	Username            string
	Password            string
	ParallelConnections int
	UseHTTP2            bool
	Timeout             time.Duration
	Profile             bool
}

// normalizeURL folds the webdav:// and webdavs:// aliases onto http(s) and
// extracts credentials embedded in the URL.
func normalizeURL(raw string) (endpoint, user, pass string, err error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", "", fmt.Errorf("%w: %v", ErrBadURL, err)
	}
	switch parsed.Scheme {
	case "http", "https":
	case "webdav":
		parsed.Scheme = "http"
	case "webdavs":
		parsed.Scheme = "https"
	default:
		return "", "", "", fmt.Errorf("%w: unsupported scheme %q", ErrBadURL, parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", "", "", fmt.Errorf("%w: missing host in %q", ErrBadURL, raw)
	}
	if parsed.User != nil {
		user = parsed.User.Username()
		pass, _ = parsed.User.Password()
		parsed.User = nil
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	return parsed.String(), user, pass, nil
}

// httpClient builds the pooled HTTP client behind the WebDAV transport.
func httpClient(cfg Config) (*http.Client, error) {
	pool := cfg.ParallelConnections
	if pool < 1 {
		pool = 1
	}
	transport := &http.Transport{
		MaxIdleConns:        pool,
		MaxIdleConnsPerHost: pool,
		MaxConnsPerHost:     pool,
		ForceAttemptHTTP2:   false,
	}
	if cfg.UseHTTP2 {
		transport.ForceAttemptHTTP2 = true
		if err := http2.ConfigureTransport(transport); err != nil {
			return nil, fmt.Errorf("%w: enable http2: %v", ErrBadURL, err)
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Transport: transport, Timeout: timeout}, nil
}
