package handler

import (
	"encoding/json"
	"net/http"
	"strings"
)

// KeyHandler serves the credential to the legacy client-side flow, where
// the browser talks to the video service directly.
type KeyHandler struct {
	apiKey string
}

func NewKeyHandler(apiKey string) *KeyHandler {
	return &KeyHandler{apiKey: strings.TrimSpace(apiKey)}
}

func (h *KeyHandler) HandleGetKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if h.apiKey == "" {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": "API key is not configured on the server",
		})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"apiKey": h.apiKey,
	})
}
