package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pysugar/ads-account-gateway/internal/db"
	"github.com/pysugar/ads-account-gateway/internal/db/models"
	apperrors "github.com/pysugar/ads-account-gateway/internal/errors"
)

// UserAccounts is the account management surface behind the user routes.
// *accounts.Service satisfies it.
type UserAccounts interface {
	User(ctx context.Context, userID string) (*models.User, error)
	LinkedAccounts(ctx context.Context, userID string) ([]models.AccountAssociation, error)
	SelectAccounts(ctx context.Context, userID string, customerIDs []string) ([]models.AccountAssociation, error)
}

const selectBodyHint = `Body must be JSON: { "customerIds": ["1234567890", "..."] }`

// ListUserAccountsHandler returns the user and their linked accounts.
func ListUserAccountsHandler(svc UserAccounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		user, err := svc.User(r.Context(), userID)
		if err != nil {
			if !userMissing(w, err) {
				log.Printf("❌ List linked accounts error: %v", err)
				writeError(w, http.StatusInternalServerError, "Failed to list linked accounts.")
			}
			return
		}
		links, err := svc.LinkedAccounts(r.Context(), userID)
		if err != nil {
			log.Printf("❌ List linked accounts error: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to list linked accounts.")
			return
		}

		type userView struct {
			ID    string `json:"id"`
			Email string `json:"email"`
			Name  string `json:"name"`
		}
		type linkView struct {
			CustomerID string `json:"customerId"`
			Selected   bool   `json:"selected"`
		}
		views := make([]linkView, 0, len(links))
		for _, l := range links {
			views = append(views, linkView{CustomerID: l.CustomerID, Selected: l.IsDefault})
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"user":           userView{ID: user.ID, Email: user.Email, Name: user.Name},
			"linkedAccounts": views,
		})
	}
}

// SelectUserAccountsHandler replaces the user's selection with the posted ids.
func SelectUserAccountsHandler(svc UserAccounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		var body struct {
			CustomerIDs json.RawMessage `json:"customerIds"`
		}
		var ids []string
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil ||
			len(body.CustomerIDs) == 0 || string(body.CustomerIDs) == "null" ||
			json.Unmarshal(body.CustomerIDs, &ids) != nil {
			writeError(w, http.StatusBadRequest, selectBodyHint)
			return
		}

		if _, err := svc.User(r.Context(), userID); err != nil {
			if !userMissing(w, err) {
				log.Printf("❌ Select accounts error: %v", err)
				writeError(w, http.StatusInternalServerError, "Failed to update selected accounts.")
			}
			return
		}

		links, err := svc.SelectAccounts(r.Context(), userID, ids)
		if err != nil {
			log.Printf("❌ Select accounts error: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to update selected accounts.")
			return
		}

		selected := db.SelectedIDs(links)
		if selected == nil {
			selected = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"userId":              userID,
			"selectedCustomerIds": selected,
			"linkedCustomerIds":   db.CustomerIDs(links),
		})
	}
}

func userMissing(w http.ResponseWriter, err error) bool {
	var notFound *apperrors.UserNotFoundError
	if errors.As(err, &notFound) {
		writeError(w, http.StatusNotFound, notFound.Error())
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
