package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	"golang.org/x/oauth2/github"

	"microsocial/internal/config"
	"microsocial/internal/models"
)

const (
	ProviderGoogle   = "google"
	ProviderGitHub   = "github"
	ProviderFacebook = "facebook"
)

// Provider runs the authorization code flow against one identity provider.
type Provider interface {
	Name() string
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*models.ProviderProfile, error)
}

type oauthProvider struct {
	name        string
	config      *oauth2.Config
	userInfoURL string
	emailsURL   string
	decode      func(resp *http.Response) (*models.ProviderProfile, error)
}

func (p *oauthProvider) Name() string {
	return p.name
}

func (p *oauthProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *oauthProvider) Exchange(ctx context.Context, code string) (*models.ProviderProfile, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging %s code: %w", p.name, err)
	}

	client := p.config.Client(ctx, token)
	resp, err := client.Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("auth: calling %s profile API: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: %s profile API returned status %d", p.name, resp.StatusCode)
	}

	profile, err := p.decode(resp)
	if err != nil {
		return nil, fmt.Errorf("auth: decoding %s profile: %w", p.name, err)
	}
	if profile.ProviderAccountID == "" || profile.ProviderAccountID == "0" {
		return nil, fmt.Errorf("auth: %s returned a profile without an account id", p.name)
	}

	if profile.Email == "" && p.emailsURL != "" {
		// email stays optional, so a failed lookup does not fail the login
		profile.Email, _ = primaryEmail(client, p.emailsURL)
	}

	profile.Provider = p.name
	return profile, nil
}

// primaryEmail picks the primary verified address from GitHub's email list.
func primaryEmail(client *http.Client, url string) (string, error) {
	resp, err := client.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("auth: emails API returned status %d", resp.StatusCode)
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return "", err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}

func NewGitHubProvider(clientID, clientSecret, callbackURL string) Provider {
	return &oauthProvider{
		name: ProviderGitHub,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		userInfoURL: "https://api.github.com/user",
		emailsURL:   "https://api.github.com/user/emails",
		decode: func(resp *http.Response) (*models.ProviderProfile, error) {
			var u struct {
				ID        int64  `json:"id"`
				Login     string `json:"login"`
				Name      string `json:"name"`
				Email     string `json:"email"`
				AvatarURL string `json:"avatar_url"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
				return nil, err
			}
			name := u.Name
			if name == "" {
				name = u.Login
			}
			return &models.ProviderProfile{
				ProviderAccountID: strconv.FormatInt(u.ID, 10),
				Email:             u.Email,
				Name:              name,
				Image:             u.AvatarURL,
			}, nil
		},
	}
}

func NewGoogleProvider(clientID, clientSecret, callbackURL string) Provider {
	return &oauthProvider{
		name: ProviderGoogle,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoints.Google,
		},
		userInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		decode: func(resp *http.Response) (*models.ProviderProfile, error) {
			var u struct {
				ID      string `json:"id"`
				Email   string `json:"email"`
				Name    string `json:"name"`
				Picture string `json:"picture"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
				return nil, err
			}
			return &models.ProviderProfile{
				ProviderAccountID: u.ID,
				Email:             u.Email,
				Name:              u.Name,
				Image:             u.Picture,
			}, nil
		},
	}
}

func NewFacebookProvider(clientID, clientSecret, callbackURL string) Provider {
	return &oauthProvider{
		name: ProviderFacebook,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"email", "public_profile"},
			Endpoint:     endpoints.Facebook,
		},
		userInfoURL: "https://graph.facebook.com/me?fields=id,name,email,picture.type(large)",
		decode: func(resp *http.Response) (*models.ProviderProfile, error) {
			var u struct {
				ID      string `json:"id"`
				Name    string `json:"name"`
				Email   string `json:"email"`
				Picture struct {
					Data struct {
						URL string `json:"url"`
					} `json:"data"`
				} `json:"picture"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
				return nil, err
			}
			return &models.ProviderProfile{
				ProviderAccountID: u.ID,
				Email:             u.Email,
				Name:              u.Name,
				Image:             u.Picture.Data.URL,
			}, nil
		},
	}
}

type Providers map[string]Provider

func NewProviders(cfg config.OAuth) Providers {
	providers := Providers{}
	callback := func(name string) string { return fmt.Sprintf(cfg.CallbackURL, name) }

	if cfg.GitHub.ClientID != "" {
		providers[ProviderGitHub] = NewGitHubProvider(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, callback(ProviderGitHub))
	}
	if cfg.Google.ClientID != "" {
		providers[ProviderGoogle] = NewGoogleProvider(cfg.Google.ClientID, cfg.Google.ClientSecret, callback(ProviderGoogle))
	}
	if cfg.Facebook.ClientID != "" {
		providers[ProviderFacebook] = NewFacebookProvider(cfg.Facebook.ClientID, cfg.Facebook.ClientSecret, callback(ProviderFacebook))
	}

	return providers
}

func (p Providers) Get(name string) (Provider, bool) {
	provider, ok := p[name]
	return provider, ok
}

func (p Providers) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
