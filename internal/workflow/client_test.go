package workflow

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rpkm.wdl"), []byte("workflow geneSummarization {}"), 0o600))

	return NewClient(srv.URL+"/", dir, srv.Client())
}

func TestClient_Submit(t *testing.T) {
	var gotSource string
	var gotInputs map[string]any

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/workflows/v1", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))

		src, hdr, err := r.FormFile("workflowSource")
		require.NoError(t, err)
		assert.Equal(t, "rpkm.wdl", hdr.Filename)
		b, _ := io.ReadAll(src)
		gotSource = string(b)

		in, _, err := r.FormFile("workflowInputs")
		require.NoError(t, err)
		require.NoError(t, json.NewDecoder(in).Decode(&gotInputs))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"5f1c6a5e-2d4b-4a4e-9a57-0c1f5f0f2b11","status":"Submitted"}`))
	})

	def := DefaultCatalog().Workflows[Summarize]
	status, err := client.Submit(context.Background(), def, def.Inputs(map[string]any{"species": "Athaliana"}))
	require.NoError(t, err)

	assert.Equal(t, "5f1c6a5e-2d4b-4a4e-9a57-0c1f5f0f2b11", status.ID)
	assert.Equal(t, "Submitted", status.Status)
	assert.Equal(t, "workflow geneSummarization {}", gotSource)
	assert.Equal(t, "Athaliana", gotInputs["geneSummarization.species"])
	assert.Equal(t, "./chrs.py", gotInputs["geneSummarization.chrsScript"])
}

func TestClient_SubmitEngineError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	def := DefaultCatalog().Workflows[Summarize]
	_, err := client.Submit(context.Background(), def, nil)
	assert.ErrorIs(t, err, ErrEngine)
}

func TestClient_SubmitMissingID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"Submitted"}`))
	})

	def := DefaultCatalog().Workflows[Summarize]
	_, err := client.Submit(context.Background(), def, nil)
	assert.ErrorIs(t, err, ErrEngine)
}

func TestClient_SubmitMissingSource(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("engine must not be called")
	})

	def := DefaultCatalog().Workflows[TSVUpload]
	_, err := client.Submit(context.Background(), def, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEngine)
}

func TestClient_Status(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/workflows/v1/abc/status", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"abc","status":"Running"}`))
	})

	status, err := client.Status(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "Running", status.Status)
}

func TestClient_StatusNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.Status(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestClient_Unreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", t.TempDir(), nil)

	_, err := client.Status(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrEngine)
}
