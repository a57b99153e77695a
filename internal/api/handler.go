// Package api provides HTTP handlers for the Arc Wardens API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/arcwardens/outreach/internal/session"
	"github.com/arcwardens/outreach/internal/wallet"
)

// maxRequestBodySize caps request bodies (1MB).
const maxRequestBodySize = 1 << 20

// Handler provides common handler utilities and dependencies.
type Handler struct {
	controller *session.Controller
	wallet     *wallet.Client
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(controller *session.Controller, walletClient *wallet.Client) *Handler {
	return &Handler{
		controller: controller,
		wallet:     walletClient,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decode reads a JSON request body into v, enforcing the body limit.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	return json.NewDecoder(r.Body).Decode(v)
}
