package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// GitHubConfig carries the OAuth application credentials. AuthURL, TokenURL
// and APIBaseURL default to github.com and exist so tests can point the
// provider at a stub server.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	APIBaseURL   string
}

// Identity is the subset of a GitHub profile used to link or create a local
// account. Email is the provider's primary verified address and is the sole
// linking key.
type Identity struct {
	Name      string
	Username  string
	Email     string
	AvatarURL string
	Location  string
}

// GitHubProvider performs the authorization-code exchange and profile lookup
// against the GitHub OAuth and REST APIs.
type GitHubProvider struct {
	config  *oauth2.Config
	apiBase string
}

// NewGitHubProvider builds a provider for the read:user and user:email scopes.
func NewGitHubProvider(cfg GitHubConfig) *GitHubProvider {
	endpoint := github.Endpoint
	if cfg.AuthURL != "" && cfg.TokenURL != "" {
		endpoint = oauth2.Endpoint{AuthURL: cfg.AuthURL, TokenURL: cfg.TokenURL}
	}

	apiBase := cfg.APIBaseURL
	if apiBase == "" {
		apiBase = "https://api.github.com"
	}

	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     endpoint,
		},
		apiBase: apiBase,
	}
}

// AuthCodeURL returns the authorization URL the browser is redirected to.
// Sign-ups on GitHub itself are disallowed mid-flow.
func (p *GitHubProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.SetAuthURLParam("allow_signup", "false"))
}

// Identity exchanges the authorization code and resolves the provider profile.
// The returned email is the one marked both primary and verified; when no such
// email exists the identity cannot be used and ErrNoLinkableEmail is returned.
func (p *GitHubProvider) Identity(ctx context.Context, code string) (Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("exchange authorization code: %w: %w", ErrInvalidCredentials, err)
	}
	if !token.Valid() {
		return Identity{}, fmt.Errorf("exchange yielded unusable token: %w", ErrInvalidCredentials)
	}

	client := p.config.Client(ctx, token)

	var profile githubProfile
	if err := p.getJSON(ctx, client, "/user", &profile); err != nil {
		return Identity{}, fmt.Errorf("fetch github profile: %w", err)
	}

	var emails []githubEmail
	if err := p.getJSON(ctx, client, "/user/emails", &emails); err != nil {
		return Identity{}, fmt.Errorf("fetch github emails: %w", err)
	}

	var linkEmail string
	for _, email := range emails {
		if email.Primary && email.Verified {
			linkEmail = email.Email
			break
		}
	}
	if linkEmail == "" {
		return Identity{}, ErrNoLinkableEmail
	}

	return Identity{
		Name:      profile.Name,
		Username:  profile.Login,
		Email:     linkEmail,
		AvatarURL: profile.AvatarURL,
		Location:  profile.Location,
	}, nil
}

type githubProfile struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	Location  string `json:"location"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (p *GitHubProvider) getJSON(ctx context.Context, client *http.Client, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("github api %s: %s: %s", path, resp.Status, body)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
