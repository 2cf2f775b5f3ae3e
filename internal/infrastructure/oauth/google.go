package oauth

import (
	"context"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/brightpath/accounts-api/internal/core/domain"
	"github.com/brightpath/accounts-api/internal/core/ports"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleProvider implements ports.OAuthProvider against Google's OAuth2
// endpoints.
type GoogleProvider struct {
	cfg *oauth2.Config
}

func NewGoogleProvider(creds Credentials) *GoogleProvider {
	return &GoogleProvider{
		cfg: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoints.Google,
		},
	}
}

func (p *GoogleProvider) Name() domain.Provider {
	return domain.ProviderGoogle
}

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state)
}

type googleProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Exchange trades the authorization code for Google's userinfo profile.
// An empty email is passed through as-is; rejecting it is the service's
// call.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (ports.ExternalIdentity, error) {
	client, err := exchange(ctx, p.cfg, code)
	if err != nil {
		return ports.ExternalIdentity{}, err
	}

	var profile googleProfile
	if err := fetchJSON(client, googleUserInfoURL, &profile); err != nil {
		return ports.ExternalIdentity{}, err
	}

	return ports.ExternalIdentity{
		Provider:    domain.ProviderGoogle,
		ProviderID:  profile.ID,
		DisplayName: profile.Name,
		Email:       profile.Email,
	}, nil
}
