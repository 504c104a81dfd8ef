// Package pathutil provides local path canonicalization and remote path
// construction for drive lookups.
package pathutil

import (
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
)

// caseInsensitive reports whether local paths compare case-insensitively
// on this platform.
var caseInsensitive = runtime.GOOS == "windows" || runtime.GOOS == "darwin"

// Canonicalize returns the absolute, cleaned form of a local path with
// trailing separators stripped.
func Canonicalize(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = filepath.Clean(p)
	}

	// Clean already strips trailing separators except for the root itself.
	return abs
}

func fold(p string) string {
	if caseInsensitive {
		return strings.ToLower(p)
	}
	return p
}

// Contains reports whether path lies under root (or equals it). The test is
// a relative-path containment check: the relative path must not escape via
// ".." and must not itself be absolute.
func Contains(root, path string) bool {
	_, ok := Rel(root, path)
	return ok
}

// Rel returns path relative to root with original casing preserved, and
// whether root contains path. An empty relative path means path == root.
func Rel(root, path string) (string, bool) {
	root = Canonicalize(root)
	path = Canonicalize(path)

	rel, err := filepath.Rel(fold(root), fold(path))
	if err != nil || filepath.IsAbs(rel) {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	if rel == "." {
		return "", true
	}

	// Cut from the original path so the caller sees real casing, not the
	// folded form used for the containment test.
	return strings.TrimLeft(path[len(root):], `/\`), true
}

// Segments splits a local or remote path into its non-empty components.
// Both separator styles are accepted so Windows-sourced mappings work on
// any platform.
func Segments(p string) []string {
	parts := strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == '\\'
	})

	segs := make([]string, 0, len(parts))
	for _, s := range parts {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// EncodeSegments percent-encodes each path segment independently. Encoding
// the whole path at once would escape the separators.
func EncodeSegments(segs []string) []string {
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = url.PathEscape(s)
	}
	return out
}

// JoinRemote joins segments into a rooted remote path with forward slashes.
func JoinRemote(segs []string) string {
	return "/" + strings.Join(segs, "/")
}

// TrimCandidates returns every suffix of the remote path's segment list,
// longest first, duplicates removed preserving first occurrence. The
// shorter candidates cover mount roots that do not exactly match the
// server-side root.
func TrimCandidates(remotePath string) []string {
	segs := Segments(remotePath)

	seen := make(map[string]struct{}, len(segs))
	candidates := make([]string, 0, len(segs))

	for i := range segs {
		c := JoinRemote(segs[i:])
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		candidates = append(candidates, c)
	}

	return candidates
}

// RelativeByURLPrefix returns the part of target following prefix, without
// a leading slash. The prefix comparison is case-insensitive. Returns false
// when prefix does not match or the match does not end on a path boundary.
func RelativeByURLPrefix(target, prefix string) (string, bool) {
	if prefix == "" || len(target) < len(prefix) {
		return "", false
	}
	if !strings.EqualFold(target[:len(prefix)], prefix) {
		return "", false
	}

	rest := target[len(prefix):]
	if rest == "" {
		return "", true
	}
	if !strings.HasSuffix(prefix, "/") && !strings.HasPrefix(rest, "/") {
		return "", false
	}

	return strings.TrimPrefix(rest, "/"), true
}
