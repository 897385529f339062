package webdav

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-webdav"

	"blackbird/internal/fileutil"
)

// SchemaRemotePath and IndexRemotePath are where a remote dataset exposes its
// metadata, relative to the dataset root.
const (
	SchemaRemotePath = ".blackbird/schema.json"
	IndexRemotePath  = ".blackbird/index.db"
)

// Entry is one remote directory listing entry.
type Entry struct {
	Path  string
	Size  int64
	IsDir bool
}

// Client is the WebDAV transport.
type Client struct {
	dav      *webdav.Client
	endpoint string
	recorder *Recorder
}

// New builds a transport client from the recognized configuration set.
func New(cfg Config) (*Client, error) {
	endpoint, urlUser, urlPass, err := normalizeURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	user, pass := cfg.Username, cfg.Password
	if user == "" {
		user, pass = urlUser, urlPass
	}

	hc, err := httpClient(cfg)
	if err != nil {
		return nil, err
	}
	var doer webdav.HTTPClient = hc
	if user != "" {
		doer = webdav.HTTPClientWithBasicAuth(hc, user, pass)
	}
	dav, err := webdav.NewClient(doer, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadURL, err)
	}

	client := &Client{dav: dav, endpoint: endpoint}
	if cfg.Profile {
		client.recorder = NewRecorder()
	}
	return client, nil
}

// Endpoint returns the normalized base URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Profile returns the timing recorder, or nil when profiling is off.
func (c *Client) Profile() *Recorder {
	return c.recorder
}

// Check probes the server. A 404 on the probe path is still a reachable
// server and therefore not an error.
func (c *Client) Check(ctx context.Context) error {
	defer c.observe("check", time.Now())
	_, err := c.dav.Stat(ctx, "")
	if err == nil || isNotFound(err) {
		return nil
	}
	return fmt.Errorf("%w: probe %s: %v", ErrTransport, c.endpoint, err)
}

// FetchSchema downloads the remote schema file.
func (c *Client) FetchSchema(ctx context.Context) ([]byte, error) {
	defer c.observe("fetch_schema", time.Now())
	return c.readAll(ctx, SchemaRemotePath)
}

// FetchIndex downloads the remote index file in full.
func (c *Client) FetchIndex(ctx context.Context) ([]byte, error) {
	defer c.observe("fetch_index", time.Now())
	return c.readAll(ctx, IndexRemotePath)
}

func (c *Client) readAll(ctx context.Context, remote string) ([]byte, error) {
	rc, err := c.dav.Open(ctx, remote)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrTransport, remote, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrTransport, remote, err)
	}
	return data, nil
}

// List returns the entries of a remote directory.
func (c *Client) List(ctx context.Context, remoteDir string) ([]Entry, error) {
	defer c.observe("list", time.Now())
	infos, err := c.dav.ReadDir(ctx, remoteDir, false)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrTransport, remoteDir, err)
	}
	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, Entry{Path: info.Path, Size: info.Size, IsDir: info.IsDir})
	}
	return entries, nil
}

// Download fetches one remote file into localAbs, creating parent
// directories. Single attempt; the caller owns retries and cleanup of
// partial files. Returns the number of bytes written.
func (c *Client) Download(ctx context.Context, remoteRel, localAbs string) (int64, error) {
	defer c.observe("download", time.Now())

	rc, err := c.dav.Open(ctx, remoteRel)
	if err != nil {
		return 0, fmt.Errorf("%w: download %s: %v", ErrTransport, remoteRel, err)
	}
	defer rc.Close()

	if err := fileutil.EnsureDir(filepath.Dir(localAbs)); err != nil {
		return 0, err
	}
	out, err := os.OpenFile(localAbs, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(out, rc)
	if err != nil {
		_ = out.Close()
		return written, fmt.Errorf("%w: download %s: %v", ErrTransport, remoteRel, err)
	}
	if err := out.Close(); err != nil {
		return written, err
	}
	return written, nil
}

// Upload stores localAbs at remoteRel, creating missing remote parents.
func (c *Client) Upload(ctx context.Context, localAbs, remoteRel string) error {
	defer c.observe("upload", time.Now())

	in, err := os.Open(localAbs)
	if err != nil {
		return err
	}
	defer in.Close()

	c.mkdirAll(ctx, path.Dir(remoteRel))

	out, err := c.dav.Create(ctx, remoteRel)
	if err != nil {
		return fmt.Errorf("%w: upload %s: %v", ErrTransport, remoteRel, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("%w: upload %s: %v", ErrTransport, remoteRel, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: upload %s: %v", ErrTransport, remoteRel, err)
	}
	return nil
}

// Delete removes a remote file.
func (c *Client) Delete(ctx context.Context, remoteRel string) error {
	defer c.observe("delete", time.Now())
	if err := c.dav.RemoveAll(ctx, remoteRel); err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrTransport, remoteRel, err)
	}
	return nil
}

// mkdirAll creates each missing parent collection. Servers answer MKCOL on an
// existing collection with an error, so failures here are ignored; a truly
// missing parent fails the subsequent PUT instead.
func (c *Client) mkdirAll(ctx context.Context, dir string) {
	if dir == "." || dir == "/" || dir == "" {
		return
	}
	segments := strings.Split(strings.Trim(dir, "/"), "/")
	prefix := ""
	for _, segment := range segments {
		prefix = path.Join(prefix, segment)
		_ = c.dav.Mkdir(ctx, prefix)
	}
}

func (c *Client) observe(op string, started time.Time) {
	if c.recorder != nil {
		c.recorder.Record(op, time.Since(started))
	}
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "404")
}
