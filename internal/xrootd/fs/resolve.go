// Package fs implements the path resolver (spec §4.2) and the per-connection
// open-file table (spec §4.3) for the xrootd data-server core.
package fs

import (
	"fmt"
	"path"
	"strings"
)

// ErrPathInvalid is returned when a client path cannot be normalized to a
// canonical path under root (spec's PathInvalid, mapped to ArgInvalid).
var ErrPathInvalid = fmt.Errorf("fs: invalid path")

// Resolve normalizes clientPath against root and returns the resulting
// absolute filesystem path.
//
// Normalization collapses "." and ".." segments textually (path.Clean
// semantics) before joining with root; it never consults the filesystem.
// If the cleaned path would escape root (a leading ".." after cleaning, or
// an absolute path outside root), resolution fails with ErrPathInvalid.
func Resolve(root, clientPath string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("%w: empty root", ErrPathInvalid)
	}

	// Clean the client path relative to root, regardless of leading slash:
	// path.Clean collapses "." and ".." segments textually and leaves a
	// leading ".." only when the path climbs above root.
	cleaned := path.Clean(strings.TrimLeft(clientPath, "/"))

	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrPathInvalid
	}

	joined := path.Join(root, cleaned)

	// Defense in depth: the join result must still live under root.
	if joined != root && !strings.HasPrefix(joined, root+"/") {
		return "", ErrPathInvalid
	}

	return joined, nil
}
