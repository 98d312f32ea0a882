package gateway

import (
	"context"
	"net/http"
	"strconv"

	"github.com/pysugar/ads-account-gateway/internal/db/models"
	"github.com/pysugar/ads-account-gateway/internal/monitor"
)

// CallLog is the audit trail read side. *monitor.CallMonitor satisfies it.
type CallLog interface {
	Logs(ctx context.Context, q monitor.Query) []models.ToolCallLog
	Stats() models.ToolCallStats
}

// ToolCallsHandler returns recent tool calls with the running counts.
// Query parameters: limit, since (minutes), tool, user, outcome.
func ToolCallsHandler(calls CallLog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := r.URL.Query()
		q := monitor.Query{
			Tool:    params.Get("tool"),
			UserID:  params.Get("user"),
			Outcome: params.Get("outcome"),
		}

		var err error
		if q.Limit, err = intParam(params.Get("limit")); err != nil {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer.")
			return
		}
		if q.SinceMinutes, err = intParam(params.Get("since")); err != nil {
			writeError(w, http.StatusBadRequest, "since must be a non-negative number of minutes.")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"stats": calls.Stats(),
			"calls": calls.Logs(r.Context(), q),
		})
	}
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
