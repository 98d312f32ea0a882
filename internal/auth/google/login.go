package google

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
)

// CallbackPath is where Google redirects after consent.
const CallbackPath = "/oauth2callback"

// stateToken is used to protect against CSRF attacks
var stateToken string

func init() {
	b := make([]byte, 16)
	rand.Read(b)
	stateToken = hex.EncodeToString(b)
}

// GetStateToken returns the current CSRF state token for validation.
func GetStateToken() string {
	return stateToken
}

// callbackURL rebuilds the redirect URL from the incoming request so the
// gateway works behind any host name.
func callbackURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s%s", scheme, r.Host, CallbackPath)
}

// HandleLogin redirects to Google's consent page.
func HandleLogin(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, app.AuthCodeURL(callbackURL(r), stateToken), http.StatusTemporaryRedirect)
	}
}
