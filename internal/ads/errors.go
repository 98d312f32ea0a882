package ads

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// APIError is a non-2xx answer from the advertising API.
type APIError struct {
	HTTPStatus int
	// Status is the RPC status name, e.g. PERMISSION_DENIED.
	Status  string
	Message string
	// Reasons holds the vendor error codes, e.g. USER_PERMISSION_DENIED.
	Reasons []string
	// Messages holds the per-error messages from the failure details.
	Messages []string
	Body     string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && len(e.Messages) > 0 {
		msg = e.Messages[0]
	}
	if msg == "" {
		msg = strings.TrimSpace(e.Body)
	}
	if len(e.Reasons) > 0 {
		return fmt.Sprintf("ads api %d %s: %s [%s]", e.HTTPStatus, e.Status, msg, strings.Join(e.Reasons, ", "))
	}
	return fmt.Sprintf("ads api %d %s: %s", e.HTTPStatus, e.Status, msg)
}

// Details exposes the per-error messages for errors.Message.
func (e *APIError) Details() []string {
	return e.Messages
}

type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Errors []struct {
				ErrorCode map[string]string `json:"errorCode"`
				Message   string            `json:"message"`
			} `json:"errors"`
		} `json:"details"`
	} `json:"error"`
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{HTTPStatus: status, Body: string(body)}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return apiErr
	}
	apiErr.Status = env.Error.Status
	apiErr.Message = env.Error.Message
	for _, d := range env.Error.Details {
		for _, e := range d.Errors {
			for _, code := range e.ErrorCode {
				apiErr.Reasons = append(apiErr.Reasons, code)
			}
			if e.Message != "" {
				apiErr.Messages = append(apiErr.Messages, e.Message)
			}
		}
	}
	return apiErr
}

var errorHints = []struct {
	marker string
	hint   string
}{
	{"NOT_ADS_USER", "The Google account used for login is not linked to any Google Ads account."},
	{"DEVELOPER_TOKEN_NOT_APPROVED", "Developer token is not approved for this type of request/account."},
	{"UNAUTHENTICATED", "OAuth token is invalid/expired or the OAuth client configuration is incorrect."},
	{"USER_PERMISSION_DENIED", "The logged-in user does not have permissions on the requested Google Ads accounts."},
}

// ErrorHint returns an operator-facing explanation for well-known vendor
// failures, or "" when err matches none.
func ErrorHint(err error) string {
	if err == nil {
		return ""
	}
	haystack := err.Error()
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		haystack += " " + apiErr.Status + " " + strings.Join(apiErr.Reasons, " ") + " " + apiErr.Body
	}
	for _, h := range errorHints {
		if strings.Contains(haystack, h.marker) {
			return h.hint
		}
	}
	return ""
}
