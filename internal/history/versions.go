// Package history turns a local file path into its remote version history:
// it runs mapping discovery, item resolution, and version fetching, and
// keeps the per-path results in an owned context store for the UI layer.
package history

import (
	"context"
	"errors"
	"sort"

	"github.com/NichUK/onedrive-versions/internal/graph"
)

// ErrNoVersions indicates the resolved item has an empty version history.
// Every real file has at least one version, so this is surfaced as an
// error rather than an empty context.
var ErrNoVersions = errors.New("history: item has no versions")

// FetchVersions retrieves the version list for an item and sorts it newest
// first. The sort is stable, so versions with equal timestamps keep the
// service's order.
func FetchVersions(ctx context.Context, client *graph.Client, driveID, itemID string) ([]graph.Version, error) {
	versions, err := client.Versions(ctx, driveID, itemID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, ErrNoVersions
	}

	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].LastModifiedDateTime.After(versions[j].LastModifiedDateTime)
	})

	return versions, nil
}
