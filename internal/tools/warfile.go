package tools

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/giantswarm/mcp-tomcat/internal/server"
)

// ErrUploadsDisabled is returned for a local WAR upload when no WAR
// directory is configured.
var ErrUploadsDisabled = errors.New("local WAR uploads are disabled, start the server with --war-dir")

// ResolveWarFile maps name, relative to the configured WAR directory or
// absolute inside it, to the file to upload. Paths leaving the directory,
// directly or through a symlink, are rejected.
func ResolveWarFile(sc *server.ServerContext, name string) (string, error) {
	root := sc.Config().WarDir
	if root == "" {
		return "", ErrUploadsDisabled
	}

	candidate := name
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(root, candidate)
	}
	candidate = filepath.Clean(candidate)
	if !within(root, candidate) {
		return "", fmt.Errorf("warFile %q is outside the WAR directory %s", name, root)
	}

	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("WAR directory %s: %w", root, err)
	}
	real, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		return "", fmt.Errorf("warFile %q: %w", name, err)
	}
	if !within(realRoot, real) {
		return "", fmt.Errorf("warFile %q is outside the WAR directory %s", name, root)
	}

	info, err := os.Stat(real)
	if err != nil {
		return "", fmt.Errorf("warFile %q: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("warFile %q is not a regular file", name)
	}
	return real, nil
}

// within reports whether path is strictly below root.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
