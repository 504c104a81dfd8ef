package history

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NichUK/onedrive-versions/internal/graph"
	"github.com/NichUK/onedrive-versions/internal/mapping"
	"github.com/NichUK/onedrive-versions/internal/retry"
)

type fakeTokens struct {
	token string
	err   error

	calls           int
	lastInteractive bool
}

func (f *fakeTokens) Token(ctx context.Context, interactive bool) (string, error) {
	f.calls++
	f.lastInteractive = interactive
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

func newTestService(t *testing.T, handler http.HandlerFunc, tokens *fakeTokens) (*Service, func()) {
	ts := httptest.NewServer(handler)
	client := graph.New(graph.Config{
		BaseURL: ts.URL,
		RetryConfig: retry.Config{
			MaxAttempts: 1,
			InitialWait: time.Millisecond,
			MaxWait:     time.Millisecond,
		},
	})

	disc := &mapping.Discoverer{Configured: []mapping.Mapping{
		{LocalRoot: "/sync/OneDrive", DriveID: "d1", Source: mapping.SourceConfig},
	}}
	return NewService(client, tokens, disc), ts.Close
}

func serveVersions(t *testing.T, versions []map[string]interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/drives/d1/root:/docs/plan.md":
			json.NewEncoder(w).Encode(graph.Item{
				ID: "item1", Name: "plan.md",
				ParentReference: &graph.ItemRef{DriveID: "d1"},
			})
		case "/drives/d1/items/item1/versions":
			json.NewEncoder(w).Encode(map[string]interface{}{"value": versions})
		case "/drives/d1/items/item1/versions/1.0/content":
			w.Write([]byte("v1 bytes"))
		case "/drives/d1/items/item1/versions/1.0/restoreVersion":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]string{"code": "itemNotFound"},
			})
		}
	}
}

func unsortedVersions() []map[string]interface{} {
	return []map[string]interface{}{
		{"id": "1.0", "lastModifiedDateTime": "2024-05-01T10:00:00Z"},
		{"id": "3.0", "lastModifiedDateTime": "2024-05-03T10:00:00Z"},
		{"id": "2.0", "lastModifiedDateTime": "2024-05-02T10:00:00Z"},
	}
}

func TestLoadVersions(t *testing.T) {
	tokens := &fakeTokens{token: "tok"}
	svc, done := newTestService(t, serveVersions(t, unsortedVersions()), tokens)
	defer done()

	vc, err := svc.LoadVersions(context.Background(), "/sync/OneDrive/docs/plan.md", LoadOptions{})
	if err != nil {
		t.Fatalf("LoadVersions: %v", err)
	}

	if vc.DriveID != "d1" || vc.ItemID != "item1" || vc.Name != "plan.md" {
		t.Errorf("context = %+v", vc)
	}
	if vc.SelectedIndex != 0 {
		t.Errorf("SelectedIndex = %d, want 0 (newest)", vc.SelectedIndex)
	}

	var ids []string
	for _, v := range vc.Versions {
		ids = append(ids, v.ID)
	}
	if len(ids) != 3 || ids[0] != "3.0" || ids[1] != "2.0" || ids[2] != "1.0" {
		t.Errorf("version order = %v, want newest first", ids)
	}

	if tokens.calls != 1 || tokens.lastInteractive {
		t.Errorf("token calls = %d interactive = %v", tokens.calls, tokens.lastInteractive)
	}

	if _, ok := svc.Cached("/sync/OneDrive/docs/plan.md"); !ok {
		t.Error("load should cache the context")
	}
}

func TestLoadVersionsNoMapping(t *testing.T) {
	tokens := &fakeTokens{token: "tok"}
	svc, done := newTestService(t, serveVersions(t, unsortedVersions()), tokens)
	defer done()

	_, err := svc.LoadVersions(context.Background(), "/elsewhere/plan.md", LoadOptions{})
	if !errors.Is(err, ErrNoMapping) {
		t.Fatalf("err = %v, want ErrNoMapping", err)
	}
	if tokens.calls != 0 {
		t.Error("mapping detection must not touch the token provider")
	}
}

func TestLoadVersionsAuthFailure(t *testing.T) {
	authErr := errors.New("auth required")
	tokens := &fakeTokens{err: authErr}
	svc, done := newTestService(t, serveVersions(t, unsortedVersions()), tokens)
	defer done()

	_, err := svc.LoadVersions(context.Background(), "/sync/OneDrive/docs/plan.md", LoadOptions{})
	if !errors.Is(err, authErr) {
		t.Fatalf("err = %v, want the provider's error unchanged", err)
	}
}

func TestLoadVersionsEmptyHistory(t *testing.T) {
	tokens := &fakeTokens{token: "tok"}
	svc, done := newTestService(t, serveVersions(t, nil), tokens)
	defer done()

	_, err := svc.LoadVersions(context.Background(), "/sync/OneDrive/docs/plan.md", LoadOptions{})
	if !errors.Is(err, ErrNoVersions) {
		t.Fatalf("err = %v, want ErrNoVersions", err)
	}
}

func TestDownloadVersionUsesCache(t *testing.T) {
	tokens := &fakeTokens{token: "tok"}
	svc, done := newTestService(t, serveVersions(t, unsortedVersions()), tokens)
	defer done()

	path := "/sync/OneDrive/docs/plan.md"
	if _, err := svc.LoadVersions(context.Background(), path, LoadOptions{}); err != nil {
		t.Fatalf("LoadVersions: %v", err)
	}

	data, err := svc.DownloadVersion(context.Background(), path, "1.0", LoadOptions{})
	if err != nil {
		t.Fatalf("DownloadVersion: %v", err)
	}
	if string(data) != "v1 bytes" {
		t.Errorf("content = %q", data)
	}

	// Cached hit still refreshes the token: resolution is skipped, auth is not.
	if tokens.calls != 2 {
		t.Errorf("token calls = %d, want 2", tokens.calls)
	}
}

func TestDownloadVersionLoadsOnDemand(t *testing.T) {
	tokens := &fakeTokens{token: "tok"}
	svc, done := newTestService(t, serveVersions(t, unsortedVersions()), tokens)
	defer done()

	data, err := svc.DownloadVersion(context.Background(), "/sync/OneDrive/docs/plan.md", "1.0", LoadOptions{})
	if err != nil {
		t.Fatalf("DownloadVersion: %v", err)
	}
	if string(data) != "v1 bytes" {
		t.Errorf("content = %q", data)
	}
}

func TestRestoreVersion(t *testing.T) {
	tokens := &fakeTokens{token: "tok"}
	svc, done := newTestService(t, serveVersions(t, unsortedVersions()), tokens)
	defer done()

	if err := svc.RestoreVersion(context.Background(), "/sync/OneDrive/docs/plan.md", "1.0", LoadOptions{}); err != nil {
		t.Fatalf("RestoreVersion: %v", err)
	}
}

func TestServiceSetIndexAndClear(t *testing.T) {
	tokens := &fakeTokens{token: "tok"}
	svc, done := newTestService(t, serveVersions(t, unsortedVersions()), tokens)
	defer done()

	path := "/sync/OneDrive/docs/plan.md"
	if _, err := svc.LoadVersions(context.Background(), path, LoadOptions{}); err != nil {
		t.Fatalf("LoadVersions: %v", err)
	}

	if idx, ok := svc.SetIndex(path, 99); !ok || idx != 2 {
		t.Errorf("SetIndex = (%d, %v), want clamp to 2", idx, ok)
	}

	svc.ClearCached(path)
	if _, ok := svc.Cached(path); ok {
		t.Error("context survived ClearCached")
	}
	if _, ok := svc.SetIndex(path, 0); ok {
		t.Error("SetIndex should miss after ClearCached")
	}
}

func TestFindMappingOffline(t *testing.T) {
	tokens := &fakeTokens{token: "tok"}
	var hits int
	svc, done := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}, tokens)
	defer done()

	m := svc.FindMapping("/sync/OneDrive/docs/plan.md")
	if m == nil || m.DriveID != "d1" {
		t.Fatalf("mapping = %+v", m)
	}
	if hits != 0 || tokens.calls != 0 {
		t.Error("detection must be purely local")
	}
}
