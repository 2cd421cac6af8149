package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"karaokebox/config"
	"karaokebox/task"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubRunner mimics a successful pipeline run by materializing the song
// directory the way the real orchestrator would.
type stubRunner struct {
	outputDir string
	fail      bool
}

func (s *stubRunner) Run(ctx context.Context, videoPath, taskID, originalName string) (string, error) {
	if s.fail {
		return "", fmt.Errorf("no stems found")
	}
	base := strings.TrimSuffix(originalName, filepath.Ext(originalName))
	songDir := filepath.Join(s.outputDir, base)
	if err := os.MkdirAll(songDir, 0o755); err != nil {
		return "", err
	}
	for _, stem := range []string{"vocals.wav", "no_vocals.wav"} {
		if err := os.WriteFile(filepath.Join(songDir, stem), []byte("RIFFstem"), 0o644); err != nil {
			return "", err
		}
	}
	return "Files saved in: " + songDir, nil
}

func setupTest(t *testing.T, runner task.JobRunner) (*gin.Engine, *config.Config, *task.Registry, *task.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	root := t.TempDir()
	cfg := &config.Config{
		OutputDir:      filepath.Join(root, "karaoke_output"),
		UploadDir:      filepath.Join(root, "uploads"),
		MaxUploadSize:  10 * 1024 * 1024,
		MaxConcurrency: 1,
		TaskTimeout:    10 * time.Second,
	}
	registry := task.NewRegistry()
	manager := task.NewManager(cfg, zap.NewNop(), registry, runner)
	router := SetupRouter(NewHandler(cfg, zap.NewNop(), manager, registry))
	return router, cfg, registry, manager
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func makeSong(t *testing.T, outputDir, name string, files ...string) {
	t.Helper()
	dir := filepath.Join(outputDir, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("RIFFdata"), 0o644))
	}
}

func TestHandleUpload(t *testing.T) {
	router, cfg, registry, _ := setupTest(t, &stubRunner{})

	body, contentType := multipartBody(t, "file", "song.mp4", []byte("fake video"))
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	id := resp["task_id"]
	require.NotEmpty(t, id)

	// Registered as processing, scratch file named after the task id.
	got, found := registry.Get(id)
	require.True(t, found)
	assert.Equal(t, task.StatusProcessing, got.Status)
	assert.FileExists(t, filepath.Join(cfg.UploadDir, id+"_song.mp4"))
}

func TestHandleUpload_MissingFile(t *testing.T) {
	router, _, _, _ := setupTest(t, &stubRunner{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/upload", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleStatus(t *testing.T) {
	router, _, registry, _ := setupTest(t, &stubRunner{})
	registry.Create("abc", "song.mp4")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/status/abc", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "processing", resp["status"])
	assert.NotEmpty(t, resp["message"])

	// Unknown id
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/status/nonexistent", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleTracks(t *testing.T) {
	router, cfg, _, _ := setupTest(t, &stubRunner{})
	makeSong(t, cfg.OutputDir, "complete", "vocals.wav", "no_vocals.wav")
	makeSong(t, cfg.OutputDir, "partial", "vocals.wav")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/tracks", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"complete"}, resp["tracks"])
}

func TestHandleTracks_EmptyLibrary(t *testing.T) {
	router, _, _, _ := setupTest(t, &stubRunner{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/tracks", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tracks":[]}`, w.Body.String())
}

func TestHandleAudio(t *testing.T) {
	router, cfg, _, _ := setupTest(t, &stubRunner{})
	makeSong(t, cfg.OutputDir, "song", "vocals.wav", "no_vocals.wav")

	t.Run("serves wav bytes", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/audio/song/vocals.wav", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "audio/wav", w.Header().Get("Content-Type"))
		assert.Equal(t, "RIFFdata", w.Body.String())
	})

	t.Run("unknown song", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/audio/nope/vocals.wav", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown track type", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/audio/song/drums.wav", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandleVideo(t *testing.T) {
	router, cfg, _, _ := setupTest(t, &stubRunner{})
	makeSong(t, cfg.OutputDir, "song", "vocals.wav", "no_vocals.wav", "video.mp4")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/video/song", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/video/other", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// Full upload -> poll -> tracks -> audio cycle against a running manager.
func TestUploadPollPlayCycle(t *testing.T) {
	runner := &stubRunner{}
	router, cfg, _, manager := setupTest(t, runner)
	runner.outputDir = cfg.OutputDir

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	manager.Start(ctx)

	body, contentType := multipartBody(t, "file", "song.mp4", []byte("fake video"))
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var uploadResp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploadResp))
	id := uploadResp["task_id"]

	var statusResp map[string]string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		w = httptest.NewRecorder()
		req, _ = http.NewRequest("GET", "/status/"+id, nil)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &statusResp))
		if statusResp["status"] != "processing" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, "completed", statusResp["status"])
	assert.Equal(t, "Files saved in: "+filepath.Join(cfg.OutputDir, "song"), statusResp["message"])

	// The song shows up in the listing.
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/tracks", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"song"`)

	// And its stems are downloadable.
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/audio/song/vocals.wav", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "my_song.mp4", sanitizeFileName("my song.mp4"))
	assert.Equal(t, "song.mp4", sanitizeFileName("../../song.mp4"))
	assert.Equal(t, "video.bin", sanitizeFileName(""))
}
