package generation

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Sumner-Digital/coloringpage-fun/internal/gateway/repository/jobstore"
	"github.com/Sumner-Digital/coloringpage-fun/internal/gateway/repository/media"
	"github.com/Sumner-Digital/coloringpage-fun/internal/veo"
)

// Generator is the remote video-generation workflow: submit, poll to
// completion, extract the result. Implemented by veo.Client.
type Generator interface {
	Generate(ctx context.Context, prompt string, imageBytes []byte, mimeType string) (*veo.Operation, error)
	Wait(ctx context.Context, op *veo.Operation) (*veo.Operation, error)
	Result(ctx context.Context, op *veo.Operation) ([]byte, string, error)
}

const maxImageBytes = 8 << 20

var (
	// ErrUnknownJob reports a job ID with no record behind it.
	ErrUnknownJob = errors.New("unknown generation job")
	// ErrNotReady reports a job whose video has not finished yet.
	ErrNotReady = errors.New("video is not ready")
)

// Service owns generation jobs end to end: it creates the job record,
// runs the remote operation in a background worker, stores the video and
// fans progress events out to subscribers.
type Service struct {
	jobs    *jobstore.Store
	media   media.Store
	gen     Generator
	timeout time.Duration

	hub *eventHub
}

func New(jobs *jobstore.Store, mediaStore media.Store, gen Generator, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Service{
		jobs:    jobs,
		media:   mediaStore,
		gen:     gen,
		timeout: timeout,
		hub:     newEventHub(),
	}
}

// Submit validates the request, records the job and kicks off the
// background worker. The worker runs on its own context so it outlives
// the HTTP request that started it.
func (s *Service) Submit(_ context.Context, prompt string, imageBytes []byte, mimeType string) (jobstore.Job, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return jobstore.Job{}, fmt.Errorf("prompt is required")
	}
	if len(imageBytes) == 0 {
		return jobstore.Job{}, fmt.Errorf("image is required")
	}
	if len(imageBytes) > maxImageBytes {
		return jobstore.Job{}, fmt.Errorf("image is too large (max %d bytes)", maxImageBytes)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return jobstore.Job{}, fmt.Errorf("unsupported image type %q", mimeType)
	}

	now := time.Now().UTC()
	job := jobstore.Job{
		ID:        newJobID(),
		Prompt:    prompt,
		ImageMIME: mimeType,
		Phase:     jobstore.PhasePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs.Put(job)

	go s.run(job, imageBytes, mimeType)

	return job, nil
}

func (s *Service) Get(jobID string) (jobstore.Job, bool) {
	return s.jobs.Get(jobID)
}

func (s *Service) List() []jobstore.Job {
	return s.jobs.List()
}

// Subscribe returns the current job snapshot plus a channel of progress
// events. The returned func unsubscribes; it is safe to call twice.
// Registration happens before the snapshot read: any event published
// after the snapshot is on the channel, and any event published before
// it is reflected in the snapshot itself, so a terminal transition can
// never fall between the two.
func (s *Service) Subscribe(jobID string) (jobstore.Job, <-chan Event, func(), error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return jobstore.Job{}, nil, nil, fmt.Errorf("%w: empty id", ErrUnknownJob)
	}
	ch, cancel := s.hub.subscribe(jobID)
	job, ok := s.jobs.Get(jobID)
	if !ok {
		cancel()
		return jobstore.Job{}, nil, nil, fmt.Errorf("%w: %s", ErrUnknownJob, jobID)
	}
	return job, ch, cancel, nil
}

// ShareURL resolves a share link for a finished job's video.
// media.ErrShareUnavailable is returned verbatim so the handler can fall
// back to a gateway-served URL.
func (s *Service) ShareURL(ctx context.Context, jobID string) (string, error) {
	job, ok := s.jobs.Get(jobID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownJob, jobID)
	}
	if job.Phase != jobstore.PhaseDone || job.VideoKey == "" {
		return "", ErrNotReady
	}
	return s.media.ShareURL(ctx, job.VideoKey)
}

// Video returns the stored video bytes and MIME type for a finished job.
func (s *Service) Video(ctx context.Context, jobID string) ([]byte, string, error) {
	job, ok := s.jobs.Get(jobID)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownJob, jobID)
	}
	if job.Phase != jobstore.PhaseDone || job.VideoKey == "" {
		return nil, "", ErrNotReady
	}
	data, err := s.media.Get(ctx, job.VideoKey)
	if err != nil {
		return nil, "", err
	}
	mime := job.VideoMIME
	if mime == "" {
		mime = "video/mp4"
	}
	return data, mime, nil
}

func (s *Service) run(job jobstore.Job, imageBytes []byte, mimeType string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.setPhase(job.ID, jobstore.PhaseGenerating)

	op, err := s.gen.Generate(ctx, job.Prompt, imageBytes, mimeType)
	if err != nil {
		s.fail(job.ID, fmt.Errorf("start generation: %w", err))
		return
	}

	stopTicker := s.startProgressTicker(ctx, job.ID)
	op, err = s.gen.Wait(ctx, op)
	stopTicker()
	if err != nil {
		s.fail(job.ID, fmt.Errorf("generation: %w", err))
		return
	}

	s.setPhase(job.ID, jobstore.PhaseDownloading)

	data, videoMIME, err := s.gen.Result(ctx, op)
	if err != nil {
		s.fail(job.ID, err)
		return
	}

	key := job.ID + "/video" + extFor(videoMIME)
	if err := s.media.Put(ctx, key, data, videoMIME); err != nil {
		s.fail(job.ID, fmt.Errorf("store video: %w", err))
		return
	}

	done, ok := s.jobs.Update(job.ID, func(j *jobstore.Job) {
		j.Phase = jobstore.PhaseDone
		j.VideoKey = key
		j.VideoMIME = videoMIME
		j.Error = ""
		j.UpdatedAt = time.Now().UTC()
	})
	if !ok {
		log.Printf("generation %s finished but its record is gone", job.ID)
		return
	}
	s.hub.publish(Event{JobID: job.ID, Phase: done.Phase, VideoKey: done.VideoKey})
	log.Printf("generation %s done (%d bytes)", job.ID, len(data))
}

func (s *Service) setPhase(jobID string, phase jobstore.Phase) {
	updated, ok := s.jobs.Update(jobID, func(j *jobstore.Job) {
		j.Phase = phase
		j.UpdatedAt = time.Now().UTC()
	})
	if !ok {
		return
	}
	s.hub.publish(Event{JobID: jobID, Phase: updated.Phase})
}

func (s *Service) fail(jobID string, cause error) {
	msg := "generation failed"
	if cause != nil {
		msg = cause.Error()
	}
	updated, ok := s.jobs.Update(jobID, func(j *jobstore.Job) {
		j.Phase = jobstore.PhaseFailed
		j.Error = msg
		j.UpdatedAt = time.Now().UTC()
	})
	if !ok {
		return
	}
	s.hub.publish(Event{JobID: jobID, Phase: updated.Phase, Error: msg})
	log.Printf("generation %s failed: %s", jobID, msg)
}

// newJobID mints an ID from the clock plus a random suffix so that
// concurrent submits landing on the same nanosecond still get distinct
// records.
func newJobID() string {
	var suffix [4]byte
	_, _ = rand.Read(suffix[:])
	return fmt.Sprintf("gen-%d-%x", time.Now().UnixNano(), suffix)
}

func extFor(mime string) string {
	switch mime {
	case "video/webm":
		return ".webm"
	case "video/quicktime":
		return ".mov"
	default:
		return ".mp4"
	}
}
