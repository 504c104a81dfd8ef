package mapping

import (
	"os"
	"runtime"
	"strings"

	"github.com/NichUK/onedrive-versions/internal/pathutil"
)

// envRoots are the environment variables the sync client sets for its
// mount roots, in fixed precedence order.
var envRoots = []string{"OneDrive", "OneDriveConsumer", "OneDriveCommercial"}

// fromEnvironment builds mapping candidates from the known mount-root
// environment variables, removing canonical duplicates while preserving
// first-seen order.
func fromEnvironment() []Mapping {
	seen := make(map[string]struct{}, len(envRoots))

	var out []Mapping
	for _, name := range envRoots {
		v := strings.TrimSpace(os.Getenv(name))
		if v == "" {
			continue
		}

		root := pathutil.Canonicalize(v)
		key := root
		if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
			key = strings.ToLower(root)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		out = append(out, Mapping{LocalRoot: root, Source: SourceEnv})
	}

	return out
}
