// Package google implements the Google consent flow that connects a user's
// advertising accounts to the gateway.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pysugar/ads-account-gateway/internal/util"
	"golang.org/x/oauth2"
	googleOAuth "golang.org/x/oauth2/google"
)

// DefaultUserInfoURL returns the email and name of the consenting user.
const DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Scopes requested at consent. The email identifies the user; adwords grants
// API access.
var Scopes = []string{
	"openid",
	"email",
	"profile",
	"https://www.googleapis.com/auth/adwords",
}

// App is the OAuth client registration used for consent and token exchange.
type App struct {
	ClientID     string
	ClientSecret string
	Endpoint     oauth2.Endpoint
	UserInfoURL  string
	// HTTPClient is used for the token and userinfo endpoints when set.
	HTTPClient *http.Client
}

// NewApp returns an App against Google's production endpoints.
func NewApp(clientID, clientSecret string) *App {
	return &App{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     googleOAuth.Endpoint,
		UserInfoURL:  DefaultUserInfoURL,
	}
}

// Config returns the OAuth2 config for redirectURL.
func (a *App) Config(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     a.ClientID,
		ClientSecret: a.ClientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint:     a.Endpoint,
	}
}

// AuthCodeURL builds the consent URL. Offline access and a forced consent
// prompt make Google issue a refresh token every time.
func (a *App) AuthCodeURL(redirectURL, state string) string {
	return a.Config(redirectURL).AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent select_account"),
	)
}

// UserInfo is the subset of the userinfo response the gateway keeps.
type UserInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Exchange trades an authorization code for tokens and fetches the
// consenting user's profile.
func (a *App) Exchange(ctx context.Context, redirectURL, code string) (*oauth2.Token, *UserInfo, error) {
	ctx = a.context(ctx)
	config := a.Config(redirectURL)

	token, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("token exchange failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.UserInfoURL, nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, nil, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, util.TruncateLog(string(body), 256))
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	info.Email = strings.TrimSpace(info.Email)
	return token, &info, nil
}

func (a *App) context(ctx context.Context) context.Context {
	if a.HTTPClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, a.HTTPClient)
	}
	return ctx
}
