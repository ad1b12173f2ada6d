package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	genai "google.golang.org/genai"

	"github.com/Sumner-Digital/coloringpage-fun/internal/gateway/handler"
	"github.com/Sumner-Digital/coloringpage-fun/internal/gateway/repository/jobstore"
	"github.com/Sumner-Digital/coloringpage-fun/internal/gateway/repository/media"
	"github.com/Sumner-Digital/coloringpage-fun/internal/gateway/server"
	"github.com/Sumner-Digital/coloringpage-fun/internal/gateway/service/generation"
	"github.com/Sumner-Digital/coloringpage-fun/internal/veo"
)

type stubGenerator struct{}

func (stubGenerator) Generate(context.Context, string, []byte, string) (*veo.Operation, error) {
	return &veo.Operation{Name: "operations/stub"}, nil
}

func (stubGenerator) Wait(_ context.Context, op *veo.Operation) (*veo.Operation, error) {
	op.Done = true
	op.Response = &genai.GenerateVideosResponse{}
	return op, nil
}

func (stubGenerator) Result(context.Context, *veo.Operation) ([]byte, string, error) {
	return []byte("mp4data"), "video/mp4", nil
}

// parkedGenerator never finishes until its gate closes, keeping a job
// out of the done phase for as long as a test needs.
type parkedGenerator struct {
	stubGenerator
	gate chan struct{}
}

func (p parkedGenerator) Wait(_ context.Context, op *veo.Operation) (*veo.Operation, error) {
	<-p.gate
	op.Done = true
	op.Response = &genai.GenerateVideosResponse{}
	return op, nil
}

func newTestMux(t *testing.T) (http.Handler, *generation.Service) {
	t.Helper()
	return newTestMuxWith(t, stubGenerator{})
}

func newTestMuxWith(t *testing.T, gen generation.Generator) (http.Handler, *generation.Service) {
	t.Helper()
	jobs := jobstore.New(filepath.Join(t.TempDir(), "jobs.json"))
	store, err := media.NewFileStore(t.TempDir())
	require.NoError(t, err)
	svc := generation.New(jobs, store, gen, time.Minute)

	mux := server.NewMux(
		handler.NewKeyHandler("secret"),
		handler.NewGenerationHandler(svc),
		handler.NewProgressHandler(svc),
		"",
	)
	return mux, svc
}

func multipartBody(t *testing.T, prompt string, image []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if prompt != "" {
		require.NoError(t, w.WriteField("prompt", prompt))
	}
	if image != nil {
		part, err := w.CreatePart(map[string][]string{
			"Content-Disposition": {`form-data; name="image"; filename="drawing.png"`},
			"Content-Type":        {"image/png"},
		})
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func awaitDone(t *testing.T, svc *generation.Service, id string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		job, ok := svc.Get(id)
		require.True(t, ok)
		if job.Phase.Terminal() {
			require.Equal(t, jobstore.PhaseDone, job.Phase)
			return
		}
		select {
		case <-deadline:
			t.Fatalf("job %s still %s", id, job.Phase)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSubmitAndStatus(t *testing.T) {
	mux, svc := newTestMux(t)

	body, contentType := multipartBody(t, "make it fly", []byte("pngbytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/generations", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var submitted struct {
		ID    string `json:"id"`
		Phase string `json:"phase"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))
	require.NotEmpty(t, submitted.ID)
	require.Equal(t, "pending", submitted.Phase)

	awaitDone(t, svc, submitted.ID)

	req = httptest.NewRequest(http.MethodGet, "/api/generations/"+submitted.ID, nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var status struct {
		Phase    string `json:"phase"`
		VideoURL string `json:"videoUrl"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, "done", status.Phase)
	require.Equal(t, "/api/generations/"+submitted.ID+"/video", status.VideoURL)
}

func TestSubmit_MissingImage(t *testing.T) {
	mux, _ := newTestMux(t)

	body, contentType := multipartBody(t, "make it fly", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/generations", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmit_MissingPrompt(t *testing.T) {
	mux, _ := newTestMux(t)

	body, contentType := multipartBody(t, "", []byte("pngbytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/generations", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmit_OversizedBodyRejected(t *testing.T) {
	mux, _ := newTestMux(t)

	body, contentType := multipartBody(t, "make it fly", bytes.Repeat([]byte("x"), 11<<20))
	req := httptest.NewRequest(http.MethodPost, "/api/generations", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestStatus_UnknownJob(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, "/api/generations/gen-404", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVideo_ServesStoredBytes(t *testing.T) {
	mux, svc := newTestMux(t)

	job, err := svc.Submit(context.Background(), "prompt", []byte("png"), "image/png")
	require.NoError(t, err)
	awaitDone(t, svc, job.ID)

	req := httptest.NewRequest(http.MethodGet, "/api/generations/"+job.ID+"/video", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	require.Equal(t, "mp4data", rec.Body.String())
}

func TestVideo_UnknownJob(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, "/api/generations/gen-404/video", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVideo_NotReady(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	mux, svc := newTestMuxWith(t, parkedGenerator{gate: gate})

	job, err := svc.Submit(context.Background(), "prompt", []byte("png"), "image/png")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/generations/"+job.ID+"/video", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestShare_UnknownJob(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, "/api/generations/gen-404/share", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShare_FallsBackToGatewayURL(t *testing.T) {
	mux, svc := newTestMux(t)

	job, err := svc.Submit(context.Background(), "prompt", []byte("png"), "image/png")
	require.NoError(t, err)
	awaitDone(t, svc, job.ID)

	req := httptest.NewRequest(http.MethodGet, "/api/generations/"+job.ID+"/share", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "/api/generations/"+job.ID+"/video", body.URL)
}

func TestList(t *testing.T) {
	mux, svc := newTestMux(t)

	job, err := svc.Submit(context.Background(), "prompt", []byte("png"), "image/png")
	require.NoError(t, err)
	awaitDone(t, svc, job.ID)

	req := httptest.NewRequest(http.MethodGet, "/api/generations", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Generations []struct {
			ID string `json:"id"`
		} `json:"generations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Generations, 1)
	require.Equal(t, job.ID, body.Generations[0].ID)
}
