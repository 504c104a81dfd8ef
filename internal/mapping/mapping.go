// Package mapping discovers local-root to remote-root sync mappings and
// selects the best one for a given local path.
package mapping

import (
	"fmt"

	"github.com/NichUK/onedrive-versions/internal/pathutil"
)

// Source identifies where a mapping candidate came from.
type Source int

const (
	SourceConfig Source = iota
	SourceEnv
	SourceRegistry
	SourceInferred
)

func (s Source) String() string {
	switch s {
	case SourceConfig:
		return "config"
	case SourceEnv:
		return "env"
	case SourceRegistry:
		return "registry"
	case SourceInferred:
		return "inferred"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// Mapping associates a local filesystem root with a remote root. LocalRoot
// is always stored canonicalized. DriveID, RemoteRoot and the URL metadata
// fields are optional; when RemoteRoot is empty the drive root is assumed.
type Mapping struct {
	LocalRoot      string
	DriveID        string
	RemoteRoot     string
	URLNamespace   string
	FullRemotePath string
	Source         Source
}

// HasURLMetadata reports whether the mapping carries enough URL information
// for the web-URL and share-URL fallback lookups.
func (m *Mapping) HasURLMetadata() bool {
	return m.URLNamespace != "" || m.FullRemotePath != ""
}

// URLRoots returns the usable remote URL roots, namespace first.
func (m *Mapping) URLRoots() []string {
	var roots []string
	if m.URLNamespace != "" {
		roots = append(roots, m.URLNamespace)
	}
	if m.FullRemotePath != "" && m.FullRemotePath != m.URLNamespace {
		roots = append(roots, m.FullRemotePath)
	}
	return roots
}

// Discoverer gathers mapping candidates from all sources. Configured
// entries come from the user's mappings file and take first position;
// ambiguity between sources is resolved by Select, not here.
type Discoverer struct {
	Configured []Mapping
}

// Discover produces the ordered candidate list for a local path:
// configured mappings, environment roots, OS registry roots, then a root
// inferred from the path itself.
func (d *Discoverer) Discover(localPath string) []Mapping {
	var out []Mapping

	out = append(out, d.Configured...)
	out = append(out, fromEnvironment()...)
	out = append(out, fromRegistry()...)

	if m, ok := inferFromPath(localPath); ok {
		out = append(out, m)
	}

	return out
}

// Select returns the mapping whose canonicalized LocalRoot contains the
// path, preferring the longest (most specific) root. Candidates appearing
// earlier win ties. Returns nil when no mapping contains the path.
func Select(localPath string, candidates []Mapping) *Mapping {
	localPath = pathutil.Canonicalize(localPath)

	var best *Mapping
	for i := range candidates {
		c := &candidates[i]
		if !pathutil.Contains(c.LocalRoot, localPath) {
			continue
		}
		if best == nil || len(c.LocalRoot) > len(best.LocalRoot) {
			best = c
		}
	}

	return best
}
