package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Rating fetches the raw rating record for a model artifact.
//
// A 404 means the registry has not computed a rating yet — that is absence,
// not failure, and resolves to (nil, nil). Every other error is returned so
// the fan-out layer can isolate it per item.
func (c *Client) Rating(ctx context.Context, id string) (RawRating, error) {
	var raw RawRating
	path := fmt.Sprintf("/artifact/model/%s/rate", url.PathEscape(id))
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		if statusOf(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return raw, nil
}
