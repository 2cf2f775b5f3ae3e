// Package oauth adapts upstream identity providers (Google, GitHub) to
// the normalized ExternalIdentity the auth service consumes. Adapters
// report facts only; matching decisions live in the service.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

// Credentials configures one provider's OAuth application.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// exchange trades an authorization code for an HTTP client that
// attaches the resulting access token to every request.
func exchange(ctx context.Context, cfg *oauth2.Config, code string) (*http.Client, error) {
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return cfg.Client(ctx, tok), nil
}

// fetchJSON performs an authenticated GET and decodes the JSON body
// into out.
func fetchJSON(client *http.Client, url string, out any) error {
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("fetch %s: status %d: %s", url, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
