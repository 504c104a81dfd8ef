// Package resolver finds the remote drive item behind a local file,
// tolerating mismatches between local mount metadata and the actual remote
// drive topology. Lookup strategies run strictly in order; only not-found
// and access-denied failures cascade to the next one.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/NichUK/onedrive-versions/internal/graph"
	"github.com/NichUK/onedrive-versions/internal/logging"
	"github.com/NichUK/onedrive-versions/internal/mapping"
	"github.com/NichUK/onedrive-versions/internal/pathutil"
)

// Strategy names, used in diagnostics and logs.
const (
	StrategyDirectDrive  = "direct-drive"
	StrategyDefaultDrive = "default-drive"
	StrategyAllDrives    = "all-drives"
	StrategyDriveWebURL  = "drive-web-url"
	StrategyShareURL     = "share-url"
)

// Resolution is a successful lookup: the owning drive, the item, and the
// strategy that found it.
type Resolution struct {
	DriveID  string
	Item     *graph.Item
	Strategy string
}

// NotFoundError reports that every applicable strategy was exhausted.
type NotFoundError struct {
	LocalPath    string
	LastStrategy string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resolver: no remote item for %s (exhausted after %s)", e.LocalPath, e.LastStrategy)
}

// verdict tags a strategy outcome. Only found and fatal stop the cascade.
type verdict int

const (
	verdictFound verdict = iota
	verdictNotFound
	verdictDenied
	verdictFatal
)

type strategy struct {
	name string
	run  func(ctx context.Context) (*Resolution, verdict, error)
}

// Resolver executes the layered lookup against the remote API.
type Resolver struct {
	client *graph.Client
}

// New creates a Resolver on top of an authenticated client.
func New(client *graph.Client) *Resolver {
	return &Resolver{client: client}
}

// Resolve finds the remote item for a local path under the given mapping.
// Strategies run sequentially and stop at the first success; any failure
// other than not-found or access-denied propagates immediately.
func (r *Resolver) Resolve(ctx context.Context, m *mapping.Mapping, localPath string) (*Resolution, error) {
	rel, ok := pathutil.Rel(m.LocalRoot, localPath)
	if !ok {
		return nil, fmt.Errorf("resolver: %s is not under mapping root %s", localPath, m.LocalRoot)
	}

	relSegs := pathutil.EncodeSegments(pathutil.Segments(rel))
	candidates := candidatePaths(m, relSegs)

	var last string
	for _, s := range r.plan(m, relSegs, candidates) {
		last = s.name

		res, v, err := s.run(ctx)
		if v == verdictFound {
			logging.Debug("item resolved",
				logging.String("strategy", s.name),
				logging.String("drive_id", res.DriveID),
				logging.String("item_id", res.Item.ID),
			)
			return res, nil
		}
		if v == verdictFatal {
			return nil, err
		}

		logging.Debug("strategy exhausted",
			logging.String("strategy", s.name),
			logging.String("verdict", map[verdict]string{verdictNotFound: "not_found", verdictDenied: "denied"}[v]),
		)
	}

	return nil, &NotFoundError{LocalPath: localPath, LastStrategy: last}
}

// plan builds the ordered strategy list for a mapping. An explicit drive id
// is trusted: the default-drive and all-drives searches are skipped. The
// URL-metadata fallbacks apply either way, since they key off the mapping's
// URLs rather than its drive id.
func (r *Resolver) plan(m *mapping.Mapping, relSegs []string, candidates []string) []strategy {
	var plan []strategy

	if m.DriveID != "" {
		plan = append(plan, strategy{StrategyDirectDrive, func(ctx context.Context) (*Resolution, verdict, error) {
			return r.tryCandidates(ctx, StrategyDirectDrive, candidates, func(ctx context.Context, cand string) (*graph.Item, error) {
				return r.client.ItemByPath(ctx, m.DriveID, cand)
			}, m.DriveID)
		}})
	} else {
		plan = append(plan,
			strategy{StrategyDefaultDrive, func(ctx context.Context) (*Resolution, verdict, error) {
				return r.tryCandidates(ctx, StrategyDefaultDrive, candidates, r.client.DefaultDriveItemByPath, "")
			}},
			strategy{StrategyAllDrives, func(ctx context.Context) (*Resolution, verdict, error) {
				return r.allDrives(ctx, candidates)
			}},
		)
	}

	if m.HasURLMetadata() {
		targets := targetURLs(m, relSegs)
		plan = append(plan,
			strategy{StrategyDriveWebURL, func(ctx context.Context) (*Resolution, verdict, error) {
				return r.driveWebURL(ctx, targets)
			}},
			strategy{StrategyShareURL, func(ctx context.Context) (*Resolution, verdict, error) {
				return r.shareURL(ctx, targets)
			}},
		)
	}

	return plan
}

// lookupFunc fetches an item for one candidate remote path.
type lookupFunc func(ctx context.Context, candidate string) (*graph.Item, error)

// tryCandidates runs one lookup per candidate path, stopping at the first
// success. Not-found and access-denied misses move on to the next
// candidate; anything else aborts the whole resolution.
func (r *Resolver) tryCandidates(
	ctx context.Context, name string, candidates []string, lookup lookupFunc, driveID string,
) (*Resolution, verdict, error) {
	sawDenied := false

	for _, cand := range candidates {
		item, err := lookup(ctx, cand)
		if err == nil {
			return resolution(name, item, driveID), verdictFound, nil
		}

		switch {
		case graph.IsNotFound(err):
		case graph.IsAccessDenied(err):
			sawDenied = true
		default:
			return nil, verdictFatal, err
		}
	}

	if sawDenied {
		return nil, verdictDenied, nil
	}
	return nil, verdictNotFound, nil
}

// allDrives tries every candidate path against every accessible drive,
// first success across the nested iteration wins.
func (r *Resolver) allDrives(ctx context.Context, candidates []string) (*Resolution, verdict, error) {
	drives, err := r.client.ListDrives(ctx)
	if err != nil {
		return nil, verdictOf(err), errOrNil(err)
	}

	sawDenied := false
	for _, d := range drives {
		res, v, err := r.tryCandidates(ctx, StrategyAllDrives, candidates, func(ctx context.Context, cand string) (*graph.Item, error) {
			return r.client.ItemByPath(ctx, d.ID, cand)
		}, d.ID)

		switch v {
		case verdictFound:
			return res, verdictFound, nil
		case verdictFatal:
			return nil, verdictFatal, err
		case verdictDenied:
			sawDenied = true
		}
	}

	if sawDenied {
		return nil, verdictDenied, nil
	}
	return nil, verdictNotFound, nil
}

// driveWebURL matches target URLs against each accessible drive's web URL;
// when a drive's URL is a case-insensitive prefix of a target, the
// remaining suffix is looked up root-relative in that drive.
func (r *Resolver) driveWebURL(ctx context.Context, targets []string) (*Resolution, verdict, error) {
	drives, err := r.client.ListDrives(ctx)
	if err != nil {
		return nil, verdictOf(err), errOrNil(err)
	}

	sawDenied := false
	for _, d := range drives {
		if d.WebURL == "" {
			continue
		}

		for _, target := range targets {
			suffix, ok := pathutil.RelativeByURLPrefix(target, d.WebURL)
			if !ok {
				continue
			}

			item, err := r.client.ItemByPath(ctx, d.ID, "/"+suffix)
			if err == nil {
				return resolution(StrategyDriveWebURL, item, d.ID), verdictFound, nil
			}

			switch {
			case graph.IsNotFound(err):
			case graph.IsAccessDenied(err):
				sawDenied = true
			default:
				return nil, verdictFatal, err
			}
		}
	}

	if sawDenied {
		return nil, verdictDenied, nil
	}
	return nil, verdictNotFound, nil
}

// shareURL resolves each target URL through the opaque share-id endpoint.
func (r *Resolver) shareURL(ctx context.Context, targets []string) (*Resolution, verdict, error) {
	sawDenied := false

	for _, target := range targets {
		item, err := r.client.SharedItem(ctx, graph.EncodeShareURL(target))
		if err == nil {
			return resolution(StrategyShareURL, item, ""), verdictFound, nil
		}

		switch {
		case graph.IsNotFound(err):
		case graph.IsAccessDenied(err):
			sawDenied = true
		default:
			return nil, verdictFatal, err
		}
	}

	if sawDenied {
		return nil, verdictDenied, nil
	}
	return nil, verdictNotFound, nil
}

// candidatePaths builds the primary remote path (mapping remote root +
// relative segments, each segment percent-encoded) and its trim-fallback
// candidates.
func candidatePaths(m *mapping.Mapping, relSegs []string) []string {
	rootSegs := pathutil.EncodeSegments(pathutil.Segments(m.RemoteRoot))
	primary := pathutil.JoinRemote(append(rootSegs, relSegs...))
	return pathutil.TrimCandidates(primary)
}

// targetURLs appends the relative segments to each of the mapping's URL
// roots.
func targetURLs(m *mapping.Mapping, relSegs []string) []string {
	rel := strings.Join(relSegs, "/")

	var targets []string
	for _, root := range m.URLRoots() {
		targets = append(targets, strings.TrimRight(root, "/")+"/"+rel)
	}
	return targets
}

// resolution assembles a Resolution, preferring the item's own parent
// reference for the drive id over the strategy's fallback.
func resolution(name string, item *graph.Item, fallbackDriveID string) *Resolution {
	driveID := item.DriveID()
	if driveID == "" {
		driveID = fallbackDriveID
	}
	return &Resolution{DriveID: driveID, Item: item, Strategy: name}
}

func verdictOf(err error) verdict {
	switch {
	case graph.IsNotFound(err):
		return verdictNotFound
	case graph.IsAccessDenied(err):
		return verdictDenied
	default:
		return verdictFatal
	}
}

// errOrNil keeps the error only for fatal verdicts; cascading verdicts
// carry no error so the fold keeps going.
func errOrNil(err error) error {
	if verdictOf(err) == verdictFatal {
		return err
	}
	return nil
}
