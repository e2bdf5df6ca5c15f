package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/erazemk/invadmin/internal/model"
)

// MsgInternal is the error message for transport-level proxy failures.
const MsgInternal = "Internal server error"

// MsgTooLarge is the error message for request bodies over the proxy limit.
const MsgTooLarge = "Request body too large"

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, model.ErrorBody{Error: message})
}

// rawJSON writes an already encoded JSON body.
func rawJSON(w http.ResponseWriter, status int, body []byte) {
	if len(body) == 0 {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Error("error writing response", "error", err)
	}
}
