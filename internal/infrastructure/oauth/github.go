package oauth

import (
	"context"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/brightpath/accounts-api/internal/core/domain"
	"github.com/brightpath/accounts-api/internal/core/ports"
)

const (
	githubUserURL   = "https://api.github.com/user"
	githubEmailsURL = "https://api.github.com/user/emails"
)

// GithubProvider implements ports.OAuthProvider against GitHub's OAuth2
// endpoints.
type GithubProvider struct {
	cfg *oauth2.Config
}

func NewGithubProvider(creds Credentials) *GithubProvider {
	return &GithubProvider{
		cfg: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     endpoints.GitHub,
		},
	}
}

func (p *GithubProvider) Name() domain.Provider {
	return domain.ProviderGithub
}

func (p *GithubProvider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state)
}

type githubProfile struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// Exchange trades the authorization code for GitHub's user profile.
// GitHub omits the email from /user when it is private, so the adapter
// falls back to the primary verified address from /user/emails. A
// profile with no resolvable email is passed through as-is.
func (p *GithubProvider) Exchange(ctx context.Context, code string) (ports.ExternalIdentity, error) {
	client, err := exchange(ctx, p.cfg, code)
	if err != nil {
		return ports.ExternalIdentity{}, err
	}

	var profile githubProfile
	if err := fetchJSON(client, githubUserURL, &profile); err != nil {
		return ports.ExternalIdentity{}, err
	}

	email := profile.Email
	if email == "" {
		// Best-effort: a failed /user/emails call leaves email empty
		// rather than failing the whole login.
		var emails []githubEmail
		if err := fetchJSON(client, githubEmailsURL, &emails); err == nil {
			email = primaryEmail(emails)
		}
	}

	name := profile.Name
	if name == "" {
		name = profile.Login
	}

	return ports.ExternalIdentity{
		Provider:    domain.ProviderGithub,
		ProviderID:  strconv.FormatInt(profile.ID, 10),
		DisplayName: name,
		Email:       email,
	}, nil
}

func primaryEmail(emails []githubEmail) string {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email
		}
	}
	return ""
}
