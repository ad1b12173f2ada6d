package server

import (
	"net/http"
	"strings"

	"github.com/Sumner-Digital/coloringpage-fun/internal/gateway/handler"
	"github.com/Sumner-Digital/coloringpage-fun/internal/gateway/middleware"
)

func NewMux(
	keyHandler *handler.KeyHandler,
	generationHandler *handler.GenerationHandler,
	progressHandler *handler.ProgressHandler,
	assetsDir string,
) http.Handler {
	mux := http.NewServeMux()

	// Legacy client-side flow
	mux.HandleFunc("/api/get-key", keyHandler.HandleGetKey)

	// Server-side generation flow
	mux.HandleFunc("POST /api/generations", generationHandler.HandleSubmit)
	mux.HandleFunc("GET /api/generations", generationHandler.HandleList)
	mux.HandleFunc("GET /api/generations/{id}", generationHandler.HandleStatus)
	mux.HandleFunc("GET /api/generations/{id}/video", generationHandler.HandleVideo)
	mux.HandleFunc("GET /api/generations/{id}/share", generationHandler.HandleShare)

	// Progress stream
	mux.HandleFunc("/ws/generations", progressHandler.HandleProgressWS)

	// Browser UI
	if dir := strings.TrimSpace(assetsDir); dir != "" {
		mux.Handle("/", http.FileServer(http.Dir(dir)))
	}

	return middleware.CORS(mux)
}
