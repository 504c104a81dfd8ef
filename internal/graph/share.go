package graph

import (
	"context"
	"encoding/base64"
	"net/url"
)

// shareIDPrefix tags an encoded sharing URL in the API's opaque share-id
// format.
const shareIDPrefix = "u!"

// EncodeShareURL converts a sharing URL into the API's opaque share id:
// unpadded base64url of the URL string behind a fixed tag.
func EncodeShareURL(shareURL string) string {
	return shareIDPrefix + base64.RawURLEncoding.EncodeToString([]byte(shareURL))
}

// SharedItem resolves the item behind an encoded sharing URL.
func (c *Client) SharedItem(ctx context.Context, shareID string) (*Item, error) {
	var item Item
	if err := c.getJSON(ctx, "/shares/"+url.PathEscape(shareID)+"/driveItem", &item); err != nil {
		return nil, err
	}
	return &item, nil
}
