package google

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/pysugar/ads-account-gateway/internal/accounts"
	"github.com/pysugar/ads-account-gateway/internal/ads"
	apperrors "github.com/pysugar/ads-account-gateway/internal/errors"
)

// Connector persists a completed consent.
type Connector interface {
	Connect(ctx context.Context, email, name, refreshToken string) (*accounts.ConnectResult, error)
}

// HandleCallback completes the consent: it exchanges the code, identifies the
// user by email and hands the refresh token to the connector. The response is
// plain text meant for a person in a browser.
func HandleCallback(app *App, connector Connector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != GetStateToken() {
			http.Error(w, "Invalid state token", http.StatusBadRequest)
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "Missing OAuth authorization code.", http.StatusBadRequest)
			return
		}

		token, info, err := app.Exchange(r.Context(), callbackURL(r), code)
		if err != nil {
			authFailed(w, err)
			return
		}
		if info.Email == "" {
			http.Error(w, "Could not retrieve user email.", http.StatusBadRequest)
			return
		}

		result, err := connector.Connect(r.Context(), info.Email, info.Name, token.RefreshToken)
		if errors.Is(err, accounts.ErrNoRefreshToken) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			authFailed(w, err)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, ConnectMessage(result))
	}
}

// ConnectMessage tells the user how to manage the accounts just linked.
func ConnectMessage(result *accounts.ConnectResult) string {
	id := result.User.ID
	msg := fmt.Sprintf("Successfully connected! User ID: %s. Discovered %d account(s).\n", id, result.Discovered) +
		fmt.Sprintf("List linked accounts: GET /users/%s/accounts\n", id) +
		fmt.Sprintf(`Select included accounts for MCP calls: POST /users/%s/accounts/select with JSON { "customerIds": ["1234567890"] }`, id)
	if result.Warning != "" {
		msg += "\nWarning: " + result.Warning
	}
	return msg
}

func authFailed(w http.ResponseWriter, err error) {
	log.Printf("❌ OAuth error: %v", err)
	detail := ads.ErrorHint(err)
	if detail == "" {
		detail = apperrors.Message(err)
	}
	http.Error(w, "Authentication failed: "+detail, http.StatusInternalServerError)
}
