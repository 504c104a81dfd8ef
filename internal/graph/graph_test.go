package graph

import (
	"context"
	"encoding/base64"
	"errors"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NichUK/onedrive-versions/internal/retry"
)

func testClient(handler http.Handler) (*Client, *httptest.Server) {
	ts := httptest.NewServer(handler)
	c := New(Config{
		BaseURL: ts.URL,
		RetryConfig: retry.Config{
			MaxAttempts: 3,
			InitialWait: time.Millisecond,
			MaxWait:     time.Millisecond,
		},
	})
	return c, ts
}

func writeServiceError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{"code": code, "message": code + " happened"},
	})
}

func TestItemByPath_RequestShape(t *testing.T) {
	var gotPath, gotAuth, gotRequestID string
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("client-request-id")
		json.NewEncoder(w).Encode(Item{ID: "item1", Name: "plan.md"})
	}))
	defer ts.Close()

	c.SetToken("tok123")

	item, err := c.ItemByPath(context.Background(), "d1", "/docs/plan.md")
	if err != nil {
		t.Fatalf("ItemByPath: %v", err)
	}
	if item.ID != "item1" {
		t.Errorf("item id = %q", item.ID)
	}
	if gotPath != "/drives/d1/root:/docs/plan.md" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotAuth != "Bearer tok123" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotRequestID == "" {
		t.Error("client-request-id header missing")
	}
}

func TestItemByPath_DriveRoot(t *testing.T) {
	var gotPath string
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(Item{ID: "root"})
	}))
	defer ts.Close()

	if _, err := c.ItemByPath(context.Background(), "d1", "/"); err != nil {
		t.Fatalf("ItemByPath: %v", err)
	}
	if gotPath != "/drives/d1/root" {
		t.Errorf("request path = %q, want the bare root form", gotPath)
	}
}

func TestClassification_NotFound(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeServiceError(w, http.StatusNotFound, "itemNotFound")
	}))
	defer ts.Close()

	_, err := c.ItemByPath(context.Background(), "d1", "/missing.txt")
	if !IsNotFound(err) {
		t.Fatalf("expected not-found classification, got %v", err)
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Code != "itemNotFound" {
		t.Errorf("status=%d code=%q", apiErr.Status, apiErr.Code)
	}
}

func TestClassification_BadRequestWithItemNotFoundCode(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeServiceError(w, http.StatusBadRequest, "itemNotFound")
	}))
	defer ts.Close()

	_, err := c.ItemByPath(context.Background(), "d1", "/odd")
	if !IsNotFound(err) {
		t.Errorf("400 with itemNotFound code should classify as not-found, got %v", err)
	}
}

func TestClassification_AccessDenied(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeServiceError(w, status, "accessDenied")
		}))

		_, err := c.ItemByPath(context.Background(), "d1", "/secret")
		ts.Close()

		if !IsAccessDenied(err) {
			t.Errorf("status %d should classify as access-denied, got %v", status, err)
		}
	}
}

func TestNotFoundIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		writeServiceError(w, http.StatusNotFound, "itemNotFound")
	}))
	defer ts.Close()

	c.ItemByPath(context.Background(), "d1", "/missing")
	if attempts.Load() != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", attempts.Load())
	}
}

func TestServerErrorRetried(t *testing.T) {
	var attempts atomic.Int32
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(Item{ID: "ok"})
	}))
	defer ts.Close()

	item, err := c.ItemByPath(context.Background(), "d1", "/flaky")
	if err != nil {
		t.Fatalf("expected recovery after retries: %v", err)
	}
	if item.ID != "ok" || attempts.Load() != 3 {
		t.Errorf("item=%q attempts=%d", item.ID, attempts.Load())
	}
}

func TestThrottleRetried(t *testing.T) {
	var attempts atomic.Int32
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			writeServiceError(w, http.StatusTooManyRequests, "activityLimitReached")
			return
		}
		json.NewEncoder(w).Encode(Item{ID: "ok"})
	}))
	defer ts.Close()

	if _, err := c.ItemByPath(context.Background(), "d1", "/busy"); err != nil {
		t.Fatalf("expected recovery after throttle: %v", err)
	}
	if attempts.Load() != 2 {
		t.Errorf("attempts = %d, want 2", attempts.Load())
	}
}

func TestRequestIDFromServerPreferred(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("request-id", "srv-42")
		writeServiceError(w, http.StatusNotFound, "itemNotFound")
	}))
	defer ts.Close()

	_, err := c.ItemByPath(context.Background(), "d1", "/x")
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if apiErr.RequestID != "srv-42" {
		t.Errorf("RequestID = %q, want srv-42", apiErr.RequestID)
	}
}

func TestListDrives(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/drives" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"value": []Drive{{ID: "d1"}, {ID: "d2", WebURL: "https://host/personal/u"}},
		})
	}))
	defer ts.Close()

	drives, err := c.ListDrives(context.Background())
	if err != nil {
		t.Fatalf("ListDrives: %v", err)
	}
	if len(drives) != 2 || drives[1].WebURL == "" {
		t.Errorf("drives = %+v", drives)
	}
}

func TestVersions(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/drives/d1/items/item1/versions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"value": []map[string]interface{}{
				{"id": "2.0", "lastModifiedDateTime": "2024-05-02T10:00:00Z", "size": 10,
					"lastModifiedBy": map[string]interface{}{"user": map[string]string{"displayName": "Jane"}}},
				{"id": "1.0", "lastModifiedDateTime": "2024-05-01T10:00:00Z"},
			},
		})
	}))
	defer ts.Close()

	versions, err := c.Versions(context.Background(), "d1", "item1")
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("got %d versions", len(versions))
	}
	if versions[0].ModifiedBy() != "Jane" {
		t.Errorf("ModifiedBy = %q", versions[0].ModifiedBy())
	}
	if versions[1].ModifiedBy() != "" {
		t.Errorf("missing actor should yield empty display name")
	}
}

func TestDownloadVersion(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/drives/d1/items/item1/versions/1.0/content" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte("old content"))
	}))
	defer ts.Close()

	data, err := c.DownloadVersion(context.Background(), "d1", "item1", "1.0")
	if err != nil {
		t.Fatalf("DownloadVersion: %v", err)
	}
	if string(data) != "old content" {
		t.Errorf("data = %q", data)
	}
}

func TestEncodeShareURL(t *testing.T) {
	u := "https://contoso-my.sharepoint.com/personal/u/Documents/plan.md"
	id := EncodeShareURL(u)

	if !strings.HasPrefix(id, "u!") {
		t.Errorf("share id %q should start with the fixed u! tag", id)
	}
	if strings.Contains(id, "=") {
		t.Errorf("share id %q must not contain padding", id)
	}

	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(id, "u!"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(decoded) != u {
		t.Errorf("round trip = %q, want %q", decoded, u)
	}
}

func TestSharedItem(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/shares/u!") || !strings.HasSuffix(r.URL.Path, "/driveItem") {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Item{ID: "shared1", ParentReference: &ItemRef{DriveID: "d9"}})
	}))
	defer ts.Close()

	item, err := c.SharedItem(context.Background(), EncodeShareURL("https://host/doc"))
	if err != nil {
		t.Fatalf("SharedItem: %v", err)
	}
	if item.DriveID() != "d9" {
		t.Errorf("DriveID = %q", item.DriveID())
	}
}
