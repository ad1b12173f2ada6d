package jobstore

import (
	"strings"
	"time"
)

type Phase string

const (
	PhasePending     Phase = "pending"
	PhaseGenerating  Phase = "generating"
	PhaseDownloading Phase = "downloading"
	PhaseDone        Phase = "done"
	PhaseFailed      Phase = "failed"
)

func (p Phase) Terminal() bool { return p == PhaseDone || p == PhaseFailed }

// Job is one video-generation request and its outcome. VideoKey points
// into the media store once the result has been persisted.
type Job struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	ImageMIME string    `json:"image_mime"`
	Phase     Phase     `json:"phase"`
	Error     string    `json:"error,omitempty"`
	VideoKey  string    `json:"video_key,omitempty"`
	VideoMIME string    `json:"video_mime,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func normalizeJob(j Job) Job {
	j.ID = strings.TrimSpace(j.ID)
	j.Prompt = strings.TrimSpace(j.Prompt)
	if j.Phase == "" {
		j.Phase = PhasePending
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC()
	}
	if j.UpdatedAt.IsZero() {
		j.UpdatedAt = j.CreatedAt
	}
	return j
}
