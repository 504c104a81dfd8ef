package mapping

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/NichUK/onedrive-versions/internal/logging"
	"github.com/NichUK/onedrive-versions/internal/pathutil"
)

// ConfigEntry is one user-configured mapping in the mappings file.
type ConfigEntry struct {
	LocalRoot      string `json:"local_root"`
	DriveID        string `json:"drive_id,omitempty"`
	RemoteRoot     string `json:"remote_root,omitempty"`
	URLNamespace   string `json:"url_namespace,omitempty"`
	FullRemotePath string `json:"full_remote_path,omitempty"`
}

// LoadConfigured reads the mappings file and returns the valid entries.
// A missing file is not an error; entries with a blank local root are
// dropped silently.
func LoadConfigured(path string) ([]Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []ConfigEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	return FromConfig(entries), nil
}

// FromConfig validates and canonicalizes configured entries.
func FromConfig(entries []ConfigEntry) []Mapping {
	out := make([]Mapping, 0, len(entries))

	for _, e := range entries {
		if strings.TrimSpace(e.LocalRoot) == "" {
			logging.Debug("dropping configured mapping with empty local root")
			continue
		}

		out = append(out, Mapping{
			LocalRoot:      pathutil.Canonicalize(e.LocalRoot),
			DriveID:        e.DriveID,
			RemoteRoot:     e.RemoteRoot,
			URLNamespace:   e.URLNamespace,
			FullRemotePath: e.FullRemotePath,
			Source:         SourceConfig,
		})
	}

	return out
}
