// Package errors defines the typed errors shared across the gateway.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
)

// Configuration errors

type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Field, e.Reason)
}

// Credential errors

// NotConnectedError means no refresh credential is available for the caller.
// An empty UserID denotes single-user (environment) mode.
type NotConnectedError struct {
	UserID string
}

func (e *NotConnectedError) Error() string {
	if e.UserID == "" {
		return "GOOGLE_ADS_REFRESH_TOKEN is missing. Use per-user OAuth login (recommended) or set GOOGLE_ADS_REFRESH_TOKEN for single-user mode."
	}
	return fmt.Sprintf("No credentials found for user %s. Please connect your account first.", e.UserID)
}

type AccountNotUsableError struct {
	UserID     string
	CustomerID string
}

func (e *AccountNotUsableError) Error() string {
	return fmt.Sprintf("Customer %s is not linked or not selected for user %s. Use the auth API to link/select accounts first.",
		e.CustomerID, e.UserID)
}

type UserNotFoundError struct {
	UserID string
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("User %s not found.", e.UserID)
}

// Authorization errors

type AccessDeniedError struct {
	Tool       string
	CustomerID string
	Reason     string
}

func (e *AccessDeniedError) Error() string {
	msg := "Access denied for tool " + e.Tool
	if e.CustomerID != "" {
		msg += fmt.Sprintf(" (customer %s)", e.CustomerID)
	}
	return msg + "."
}

// Mutation payload errors

type NormalizationError struct {
	Key    string
	Keys   []string
	Reason string
}

func (e *NormalizationError) Error() string {
	switch {
	case e.Key != "":
		return fmt.Sprintf("Invalid mutation payload at '%s': %s", e.Key, e.Reason)
	case e.Keys != nil:
		return fmt.Sprintf("Invalid mutation payload: %s. Keys: %s", e.Reason, strings.Join(e.Keys, ", "))
	default:
		return "Invalid mutation payload: " + e.Reason
	}
}

// Message extracts a non-empty, human readable message from err. Vendor
// errors that wrap a JSON body with an "errors" list surface the first entry.
func Message(err error) string {
	if err == nil {
		return "Unknown error"
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	var withErrors interface{ Details() []string }
	if stderrors.As(err, &withErrors) {
		for _, d := range withErrors.Details() {
			if strings.TrimSpace(d) != "" {
				return d
			}
		}
	}
	if b, jerr := json.Marshal(err); jerr == nil && string(b) != "{}" {
		return string(b)
	}
	return "Unknown error"
}
