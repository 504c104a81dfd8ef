package mapping

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/NichUK/onedrive-versions/internal/pathutil"
)

// oneDriveSegment matches a path segment naming a OneDrive mount folder,
// optionally with an organization suffix ("OneDrive - Contoso").
var oneDriveSegment = regexp.MustCompile(`(?i)^onedrive([ -].+)?$`)

// inferFromPath scans the path's segments for a OneDrive folder name and,
// if one is found, infers a mount root of everything up to and including
// that segment.
func inferFromPath(localPath string) (Mapping, bool) {
	p := pathutil.Canonicalize(localPath)

	vol := filepath.VolumeName(p)
	segs := pathutil.Segments(p[len(vol):])

	for i, seg := range segs {
		if !oneDriveSegment.MatchString(seg) {
			continue
		}

		root := vol + string(filepath.Separator) + strings.Join(segs[:i+1], string(filepath.Separator))
		return Mapping{
			LocalRoot: pathutil.Canonicalize(root),
			Source:    SourceInferred,
		}, true
	}

	return Mapping{}, false
}
