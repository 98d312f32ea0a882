package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pysugar/ads-account-gateway/internal/logging"
	"github.com/pysugar/ads-account-gateway/internal/tools"
)

const maxToolArgsBytes = 1 << 20

// ListToolsHandler lists the registered tools and their access class.
func ListToolsHandler(registry *tools.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"tools": registry.List()})
	}
}

// CallToolHandler invokes the named tool with the request body as its
// arguments. Tool failures are part of the result, so any call that reaches
// the tool answers 200.
func CallToolHandler(registry *tools.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if _, ok := registry.Lookup(name); !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown tool %s.", name))
			return
		}

		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxToolArgsBytes))
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "Tool arguments too large.")
			return
		}
		if len(raw) > 0 && !json.Valid(raw) {
			writeError(w, http.StatusBadRequest, "Tool arguments must be a JSON object.")
			return
		}

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = logging.GenerateRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)

		result := registry.Call(logging.WithRequestID(r.Context(), requestID), name, raw)
		writeJSON(w, http.StatusOK, result)
	}
}
