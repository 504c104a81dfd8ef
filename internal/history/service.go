package history

import (
	"context"
	"errors"

	"github.com/NichUK/onedrive-versions/internal/graph"
	"github.com/NichUK/onedrive-versions/internal/logging"
	"github.com/NichUK/onedrive-versions/internal/mapping"
	"github.com/NichUK/onedrive-versions/internal/pathutil"
	"github.com/NichUK/onedrive-versions/internal/resolver"
)

// ErrNoMapping indicates no sync mapping contains the path. The UI treats
// this as "inactive", not as a failure.
var ErrNoMapping = errors.New("history: no sync mapping contains the path")

// TokenProvider supplies bearer tokens. Non-interactive calls must never
// prompt and fail fast with an auth-required condition.
type TokenProvider interface {
	Token(ctx context.Context, interactive bool) (string, error)
}

// LoadOptions controls one pipeline run.
type LoadOptions struct {
	Interactive bool
}

// Service is the façade the UI layer consumes: mapping detection, the full
// load pipeline, version content access, and the cached-context lifecycle.
type Service struct {
	client     *graph.Client
	tokens     TokenProvider
	resolver   *resolver.Resolver
	discoverer *mapping.Discoverer
	store      *Store
}

// NewService wires the pipeline together.
func NewService(client *graph.Client, tokens TokenProvider, discoverer *mapping.Discoverer) *Service {
	return &Service{
		client:     client,
		tokens:     tokens,
		resolver:   resolver.New(client),
		discoverer: discoverer,
		store:      NewStore(),
	}
}

// FindMapping selects the best mapping for a local path. Detection only:
// no network calls.
func (s *Service) FindMapping(localPath string) *mapping.Mapping {
	return mapping.Select(localPath, s.discoverer.Discover(localPath))
}

// LoadVersions runs the full pipeline (mapping, resolution, version fetch)
// and stores the resulting context, replacing any prior entry for the path.
func (s *Service) LoadVersions(ctx context.Context, localPath string, opts LoadOptions) (*VersionContext, error) {
	path := pathutil.Canonicalize(localPath)

	m := s.FindMapping(path)
	if m == nil {
		return nil, ErrNoMapping
	}

	logging.Debug("mapping selected",
		logging.String("local_root", m.LocalRoot),
		logging.String("source", m.Source.String()),
	)

	if err := s.authenticate(ctx, opts.Interactive); err != nil {
		return nil, err
	}

	res, err := s.resolver.Resolve(ctx, m, path)
	if err != nil {
		return nil, err
	}

	versions, err := FetchVersions(ctx, s.client, res.DriveID, res.Item.ID)
	if err != nil {
		return nil, err
	}

	vc := &VersionContext{
		DriveID:  res.DriveID,
		ItemID:   res.Item.ID,
		Name:     res.Item.Name,
		Versions: versions,
	}
	s.store.Put(path, vc)

	snapshot := *vc
	return &snapshot, nil
}

// DownloadVersion returns the content bytes of one version of the file.
// The context is loaded on demand when not already cached.
func (s *Service) DownloadVersion(ctx context.Context, localPath, versionID string, opts LoadOptions) ([]byte, error) {
	vc, err := s.ensureContext(ctx, localPath, opts)
	if err != nil {
		return nil, err
	}

	return s.client.DownloadVersion(ctx, vc.DriveID, vc.ItemID, versionID)
}

// RestoreVersion makes the given version the item's current content.
func (s *Service) RestoreVersion(ctx context.Context, localPath, versionID string, opts LoadOptions) error {
	vc, err := s.ensureContext(ctx, localPath, opts)
	if err != nil {
		return err
	}

	return s.client.RestoreVersion(ctx, vc.DriveID, vc.ItemID, versionID)
}

// Cached returns the stored context for the path without side effects.
func (s *Service) Cached(localPath string) (*VersionContext, bool) {
	return s.store.Get(pathutil.Canonicalize(localPath))
}

// ClearCached drops the stored context for the path, typically when the
// owning document closes.
func (s *Service) ClearCached(localPath string) {
	s.store.Clear(pathutil.Canonicalize(localPath))
}

// SetIndex moves the selection for the path, clamping into range.
func (s *Service) SetIndex(localPath string, index int) (int, bool) {
	return s.store.SetIndex(pathutil.Canonicalize(localPath), index)
}

// ensureContext returns the cached context or runs the pipeline to build
// one. Cached hits still authenticate, since the token may have expired
// since the load.
func (s *Service) ensureContext(ctx context.Context, localPath string, opts LoadOptions) (*VersionContext, error) {
	if vc, ok := s.Cached(localPath); ok {
		if err := s.authenticate(ctx, opts.Interactive); err != nil {
			return nil, err
		}
		return vc, nil
	}

	return s.LoadVersions(ctx, localPath, opts)
}

// authenticate acquires a token and installs it on the client.
func (s *Service) authenticate(ctx context.Context, interactive bool) error {
	tok, err := s.tokens.Token(ctx, interactive)
	if err != nil {
		return err
	}
	s.client.SetToken(tok)
	return nil
}
