package webdavcfg

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Options describes the server to generate.
type Options struct {
	DatasetPath string
	Port        int
	Username    string
	ReadOnly    bool
}

// SiteName returns the nginx site name for a port.
func SiteName(port int) string {
	return fmt.Sprintf("blackbird-webdav-%d", port)
}

// Generate renders the nginx server block.
func Generate(opts Options) (string, error) {
	if opts.Port < 1 || opts.Port > 65535 {
		return "", fmt.Errorf("invalid port %d", opts.Port)
	}
	if opts.DatasetPath == "" {
		return "", errors.New("dataset path required")
	}
	root, err := filepath.Abs(opts.DatasetPath)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "server {\n")
	fmt.Fprintf(&b, "    listen %d;\n", opts.Port)
	fmt.Fprintf(&b, "    server_name _;\n\n")
	fmt.Fprintf(&b, "    root %s;\n", root)
	fmt.Fprintf(&b, "    client_max_body_size 0;\n\n")
	fmt.Fprintf(&b, "    location / {\n")
	fmt.Fprintf(&b, "        dav_methods PUT DELETE MKCOL COPY MOVE;\n")
	fmt.Fprintf(&b, "        dav_ext_methods PROPFIND OPTIONS;\n")
	if opts.ReadOnly {
		fmt.Fprintf(&b, "        limit_except GET PROPFIND OPTIONS {\n")
		fmt.Fprintf(&b, "            deny all;\n")
		fmt.Fprintf(&b, "        }\n")
	}
	if opts.Username != "" {
		fmt.Fprintf(&b, "        auth_basic \"Blackbird WebDAV\";\n")
		fmt.Fprintf(&b, "        auth_basic_user_file /etc/nginx/.htpasswd_%s;\n", SiteName(opts.Port))
	}
	fmt.Fprintf(&b, "        autoindex on;\n")
	fmt.Fprintf(&b, "    }\n")
	fmt.Fprintf(&b, "}\n")
	return b.String(), nil
}
