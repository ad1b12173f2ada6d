package veo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	genai "google.golang.org/genai"
)

func TestWaitDone_TerminatesOnDone(t *testing.T) {
	polls := 0
	err := waitDone(context.Background(), time.Millisecond, func(context.Context) (bool, error) {
		polls++
		return polls >= 3, nil
	})
	if err != nil {
		t.Fatalf("waitDone error: %v", err)
	}
	if polls != 3 {
		t.Fatalf("expected 3 polls, got %d", polls)
	}
}

func TestWaitDone_PollErrorEndsWait(t *testing.T) {
	wantErr := errors.New("poll failed")
	polls := 0
	err := waitDone(context.Background(), time.Millisecond, func(context.Context) (bool, error) {
		polls++
		return false, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected poll error, got %v", err)
	}
	if polls != 1 {
		t.Fatalf("no retry expected, got %d polls", polls)
	}
}

func TestWaitDone_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := waitDone(ctx, time.Hour, func(context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewClient_MissingKey(t *testing.T) {
	_, err := NewClient(context.Background(), "  ", "veo-2.0-generate-001", time.Second)
	if !errors.Is(err, ErrKeyNotConfigured) {
		t.Fatalf("expected ErrKeyNotConfigured, got %v", err)
	}
}

func TestWrapAPIError_InvalidKey(t *testing.T) {
	for _, code := range []int{400, 401, 403} {
		err := wrapAPIError(genai.APIError{Code: code, Message: "API key not valid"})
		if !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("code %d: expected ErrInvalidKey, got %v", code, err)
		}
	}
}

func TestWrapAPIError_PassesThroughOtherErrors(t *testing.T) {
	transport := fmt.Errorf("dial tcp: connection refused")
	if err := wrapAPIError(transport); !errors.Is(err, transport) {
		t.Fatalf("transport errors must pass through, got %v", err)
	}
	if err := wrapAPIError(genai.APIError{Code: 500, Message: "internal"}); errors.Is(err, ErrInvalidKey) {
		t.Fatalf("server errors must not map to ErrInvalidKey")
	}
}

func TestResult_RequiresDoneOperation(t *testing.T) {
	c := &Client{}
	if _, _, err := c.Result(context.Background(), &Operation{}); err == nil {
		t.Fatalf("expected error for pending operation")
	}
}

func TestResult_FilteredResponse(t *testing.T) {
	c := &Client{}
	op := &Operation{
		Done: true,
		Response: &genai.GenerateVideosResponse{
			RAIMediaFilteredReasons: []string{"unsafe content"},
		},
	}
	_, _, err := c.Result(context.Background(), op)
	if !errors.Is(err, ErrNoVideo) {
		t.Fatalf("expected ErrNoVideo, got %v", err)
	}
}

func TestResult_InlineBytes(t *testing.T) {
	c := &Client{}
	op := &Operation{
		Done: true,
		Response: &genai.GenerateVideosResponse{
			GeneratedVideos: []*genai.GeneratedVideo{
				{Video: &genai.Video{VideoBytes: []byte("mp4data"), MIMEType: "video/mp4"}},
			},
		},
	}
	data, mime, err := c.Result(context.Background(), op)
	if err != nil {
		t.Fatalf("Result error: %v", err)
	}
	if string(data) != "mp4data" || mime != "video/mp4" {
		t.Fatalf("unexpected result: %q %q", data, mime)
	}
}
