package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Sumner-Digital/coloringpage-fun/internal/gateway/repository/jobstore"
	"github.com/Sumner-Digital/coloringpage-fun/internal/gateway/repository/media"
	"github.com/Sumner-Digital/coloringpage-fun/internal/gateway/service/generation"
)

const maxUploadBytes = 10 << 20

// GenerationHandler exposes the server-side generation workflow: submit
// an image + prompt, poll job status, fetch or share the video.
type GenerationHandler struct {
	svc *generation.Service
}

func NewGenerationHandler(svc *generation.Service) *GenerationHandler {
	return &GenerationHandler{svc: svc}
}

type jobResponse struct {
	ID        string `json:"id"`
	Prompt    string `json:"prompt"`
	Phase     string `json:"phase"`
	Error     string `json:"error,omitempty"`
	VideoURL  string `json:"videoUrl,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func toJobResponse(job jobstore.Job) jobResponse {
	resp := jobResponse{
		ID:        job.ID,
		Prompt:    job.Prompt,
		Phase:     string(job.Phase),
		Error:     job.Error,
		CreatedAt: job.CreatedAt.Format(time.RFC3339),
		UpdatedAt: job.UpdatedAt.Format(time.RFC3339),
	}
	if job.Phase == jobstore.PhaseDone && job.VideoKey != "" {
		resp.VideoURL = fmt.Sprintf("/api/generations/%s/video", job.ID)
	}
	return resp
}

func (h *GenerationHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	// cap the body before parsing so an oversized upload is cut off
	// instead of spooling to multipart temp files
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "expected multipart form with image and prompt")
		return
	}
	prompt := strings.TrimSpace(r.FormValue("prompt"))
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	imageBytes, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read image")
		return
	}
	if len(imageBytes) > maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "image is too large")
		return
	}
	mimeType := strings.TrimSpace(header.Header.Get("Content-Type"))
	if mimeType == "" {
		mimeType = http.DetectContentType(imageBytes)
	}

	job, err := h.svc.Submit(r.Context(), prompt, imageBytes, mimeType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	log.Printf("generation %s submitted (%d byte %s image)", job.ID, len(imageBytes), mimeType)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(toJobResponse(job))
}

func (h *GenerationHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	job, ok := h.svc.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown generation")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toJobResponse(job))
}

func (h *GenerationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	jobs := h.svc.List()
	out := make([]jobResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, toJobResponse(job))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"generations": out})
}

func (h *GenerationHandler) HandleVideo(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	data, mime, err := h.svc.Video(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, generation.ErrUnknownJob):
			writeError(w, http.StatusNotFound, "unknown generation")
		case errors.Is(err, media.ErrNotFound):
			writeError(w, http.StatusNotFound, "video not found")
		default:
			writeError(w, http.StatusConflict, err.Error())
		}
		return
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	_, _ = w.Write(data)
}

func (h *GenerationHandler) HandleShare(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	url, err := h.svc.ShareURL(r.Context(), id)
	if errors.Is(err, media.ErrShareUnavailable) {
		// no object storage: hand out the gateway's own video URL
		url = fmt.Sprintf("/api/generations/%s/video", id)
		err = nil
	}
	if err != nil {
		if errors.Is(err, generation.ErrUnknownJob) {
			writeError(w, http.StatusNotFound, "unknown generation")
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"url": url})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg})
}
