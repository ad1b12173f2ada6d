package veo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	genai "google.golang.org/genai"
)

var (
	// ErrKeyNotConfigured means no credential was available at startup.
	ErrKeyNotConfigured = errors.New("video API key is not configured")
	// ErrInvalidKey is the user-facing failure for a rejected credential.
	ErrInvalidKey = errors.New("the video service rejected the API key")
	// ErrNoVideo means the operation finished without a usable result.
	ErrNoVideo = errors.New("the video service returned no video")
)

// Operation is the opaque handle for an in-progress remote generation.
type Operation = genai.GenerateVideosOperation

// Client is a thin wrapper around the official genai client, scoped to
// the Veo video models. It only focuses on the API calls themselves;
// job bookkeeping and storage live in the generation service.
type Client struct {
	cli          *genai.Client
	model        string
	pollInterval time.Duration
}

func NewClient(ctx context.Context, apiKey, model string, pollInterval time.Duration) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrKeyNotConfigured
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("init genai client: %w", err)
	}
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	return &Client{cli: cli, model: model, pollInterval: pollInterval}, nil
}

func (c *Client) Name() string { return "Veo:" + c.model }

// Generate submits a video-generation request. The image is optional;
// when present it seeds the first frame.
func (c *Client) Generate(ctx context.Context, prompt string, imageBytes []byte, mimeType string) (*Operation, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	var image *genai.Image
	if len(imageBytes) > 0 {
		image = &genai.Image{ImageBytes: imageBytes, MIMEType: mimeType}
	}
	op, err := c.cli.Models.GenerateVideos(ctx, c.model, prompt, image, nil)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return op, nil
}

// Poll re-submits the operation handle once and returns the refreshed one.
func (c *Client) Poll(ctx context.Context, op *Operation) (*Operation, error) {
	next, err := c.cli.Operations.GetVideosOperation(ctx, op, nil)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return next, nil
}

// Wait polls on a fixed interval until the operation reports done or the
// context is cancelled. No backoff and no retry: a poll error ends the wait.
func (c *Client) Wait(ctx context.Context, op *Operation) (*Operation, error) {
	if op == nil {
		return nil, fmt.Errorf("operation is required")
	}
	cur := op
	err := waitDone(ctx, c.pollInterval, func(ctx context.Context) (bool, error) {
		if cur.Done {
			return true, nil
		}
		next, err := c.Poll(ctx, cur)
		if err != nil {
			return false, err
		}
		cur = next
		return cur.Done, nil
	})
	if err != nil {
		return nil, err
	}
	return cur, nil
}

// Result extracts the generated video from a completed operation,
// downloading the bytes when the service only returned a reference.
func (c *Client) Result(ctx context.Context, op *Operation) ([]byte, string, error) {
	if op == nil || !op.Done {
		return nil, "", fmt.Errorf("operation is not done")
	}
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		if op.Response != nil && len(op.Response.RAIMediaFilteredReasons) > 0 {
			return nil, "", fmt.Errorf("%w: %s", ErrNoVideo, strings.Join(op.Response.RAIMediaFilteredReasons, "; "))
		}
		return nil, "", ErrNoVideo
	}
	video := op.Response.GeneratedVideos[0].Video
	if video == nil {
		return nil, "", ErrNoVideo
	}
	if len(video.VideoBytes) == 0 {
		data, err := c.cli.Files.Download(ctx, video, nil)
		if err != nil {
			return nil, "", wrapAPIError(err)
		}
		if len(video.VideoBytes) == 0 {
			video.VideoBytes = data
		}
	}
	if len(video.VideoBytes) == 0 {
		return nil, "", ErrNoVideo
	}
	mime := strings.TrimSpace(video.MIMEType)
	if mime == "" {
		mime = "video/mp4"
	}
	return video.VideoBytes, mime, nil
}

func waitDone(ctx context.Context, interval time.Duration, poll func(context.Context) (bool, error)) error {
	for {
		done, err := poll(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// wrapAPIError maps credential rejections to the user-facing sentinel so
// the UI can tell "bad key" apart from "service unreachable".
func wrapAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrInvalidKey, apiErr.Message)
		}
	}
	return err
}
