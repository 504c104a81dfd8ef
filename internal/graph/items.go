package graph

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Item is a file or folder within a drive.
type Item struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Size            int64    `json:"size,omitempty"`
	WebURL          string   `json:"webUrl,omitempty"`
	ParentReference *ItemRef `json:"parentReference,omitempty"`
}

// ItemRef locates an item's parent, carrying the owning drive id.
type ItemRef struct {
	DriveID string `json:"driveId,omitempty"`
	ID      string `json:"id,omitempty"`
	Path    string `json:"path,omitempty"`
}

// DriveID returns the owning drive's id, empty when the parent reference
// is missing.
func (i *Item) DriveID() string {
	if i.ParentReference == nil {
		return ""
	}
	return i.ParentReference.DriveID
}

// Drive is a remote storage container.
type Drive struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	DriveType string `json:"driveType,omitempty"`
	WebURL    string `json:"webUrl,omitempty"`
}

// Version is one historical snapshot of an item's content.
type Version struct {
	ID                   string       `json:"id"`
	LastModifiedDateTime time.Time    `json:"lastModifiedDateTime"`
	Size                 int64        `json:"size,omitempty"`
	LastModifiedBy       *IdentitySet `json:"lastModifiedBy,omitempty"`
}

// ModifiedBy returns the display name of whoever produced the version,
// empty when the service omitted it.
func (v *Version) ModifiedBy() string {
	if v.LastModifiedBy == nil || v.LastModifiedBy.User == nil {
		return ""
	}
	return v.LastModifiedBy.User.DisplayName
}

// IdentitySet is the service's actor envelope.
type IdentitySet struct {
	User *Identity `json:"user,omitempty"`
}

// Identity names a single actor.
type Identity struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// listResponse is the service's collection envelope.
type listResponse[T any] struct {
	Value []T `json:"value"`
}

// ItemByPath looks up an item by its root-relative path within a drive.
// remotePath must be rooted ("/docs/plan.md") with each segment already
// percent-encoded; "/" addresses the drive root itself.
func (c *Client) ItemByPath(ctx context.Context, driveID, remotePath string) (*Item, error) {
	var item Item
	if err := c.getJSON(ctx, "/drives/"+url.PathEscape(driveID)+rootRelative(remotePath), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DefaultDriveItemByPath looks up an item in the caller's default drive.
func (c *Client) DefaultDriveItemByPath(ctx context.Context, remotePath string) (*Item, error) {
	var item Item
	if err := c.getJSON(ctx, "/me/drive"+rootRelative(remotePath), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// ListDrives enumerates every drive accessible to the caller.
func (c *Client) ListDrives(ctx context.Context) ([]Drive, error) {
	var list listResponse[Drive]
	if err := c.getJSON(ctx, "/me/drives", &list); err != nil {
		return nil, err
	}
	return list.Value, nil
}

// Versions fetches the raw version list for an item, in service order.
func (c *Client) Versions(ctx context.Context, driveID, itemID string) ([]Version, error) {
	var list listResponse[Version]
	endpoint := "/drives/" + url.PathEscape(driveID) + "/items/" + url.PathEscape(itemID) + "/versions"
	if err := c.getJSON(ctx, endpoint, &list); err != nil {
		return nil, err
	}
	return list.Value, nil
}

// DownloadVersion fetches the content bytes of one version.
func (c *Client) DownloadVersion(ctx context.Context, driveID, itemID, versionID string) ([]byte, error) {
	endpoint := "/drives/" + url.PathEscape(driveID) + "/items/" + url.PathEscape(itemID) +
		"/versions/" + url.PathEscape(versionID) + "/content"
	return c.do(ctx, http.MethodGet, endpoint)
}

// RestoreVersion makes the given version the current content of the item.
func (c *Client) RestoreVersion(ctx context.Context, driveID, itemID, versionID string) error {
	endpoint := "/drives/" + url.PathEscape(driveID) + "/items/" + url.PathEscape(itemID) +
		"/versions/" + url.PathEscape(versionID) + "/restoreVersion"
	_, err := c.do(ctx, http.MethodPost, endpoint)
	return err
}

// rootRelative renders a pre-encoded rooted remote path in the API's
// colon-delimited root-relative form.
func rootRelative(remotePath string) string {
	if remotePath == "" || remotePath == "/" {
		return "/root"
	}
	return "/root:" + remotePath
}
