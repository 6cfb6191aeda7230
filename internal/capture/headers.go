package capture

import (
	"context"
	"encoding/base64"

	"github.com/chromedp/cdproto/network"
)

// BasicAuthHeader builds the Authorization header value for user/pass.
func BasicAuthHeader(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func setExtraHeaders(ctx context.Context, headers map[string]any) error {
	if err := network.Enable().Do(ctx); err != nil {
		return err
	}
	return network.SetExtraHTTPHeaders(network.Headers(headers)).Do(ctx)
}
