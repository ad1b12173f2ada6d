package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Sumner-Digital/coloringpage-fun/internal/gateway/service/generation"
)

// ProgressHandler streams job progress events over a websocket so the
// browser doesn't have to poll the status endpoint.
type ProgressHandler struct {
	svc *generation.Service
}

func NewProgressHandler(svc *generation.Service) *ProgressHandler {
	return &ProgressHandler{svc: svc}
}

const (
	progressWSWriteWait = 10 * time.Second
	progressWSPongWait  = 60 * time.Second
	progressWSPingEvery = (progressWSPongWait * 9) / 10
)

var progressWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

func (h *ProgressHandler) HandleProgressWS(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimSpace(r.URL.Query().Get("id"))
	if jobID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	job, events, unsubscribe, err := h.svc.Subscribe(jobID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	defer unsubscribe()

	conn, err := progressWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(progressWSPongWait)); err != nil {
		log.Printf("progress ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(progressWSPongWait))
	})

	// reader only services control frames; inbound data is ignored
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(ev generation.Event) bool {
		if err := conn.SetWriteDeadline(time.Now().Add(progressWSWriteWait)); err != nil {
			return false
		}
		return conn.WriteJSON(ev) == nil
	}

	// snapshot first so late subscribers see the current phase
	if !write(generation.Event{JobID: job.ID, Phase: job.Phase, Error: job.Error, VideoKey: job.VideoKey}) {
		return
	}
	if job.Phase.Terminal() {
		return
	}

	ticker := time.NewTicker(progressWSPingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !write(ev) {
				return
			}
			if ev.Phase.Terminal() {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(progressWSWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
