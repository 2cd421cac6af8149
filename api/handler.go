package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"karaokebox/config"
	"karaokebox/karaoke"
	"karaokebox/task"

	"github.com/gin-gonic/gin"
	"github.com/lithammer/shortuuid/v4"
	"go.uber.org/zap"
)

type Handler struct {
	cfg      *config.Config
	log      *zap.Logger
	manager  *task.Manager
	registry *task.Registry
}

func NewHandler(cfg *config.Config, log *zap.Logger, manager *task.Manager, registry *task.Registry) *Handler {
	return &Handler{
		cfg:      cfg,
		log:      log,
		manager:  manager,
		registry: registry,
	}
}

// handleUpload accepts a multipart video upload, persists it to the scratch
// area under a task-id-prefixed name and schedules processing. The response
// is sent without waiting for the job.
func (h *Handler) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
		return
	}
	if h.cfg.MaxUploadSize > 0 && fileHeader.Size > h.cfg.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload exceeds size limit"})
		return
	}

	if err := os.MkdirAll(h.cfg.UploadDir, 0o755); err != nil {
		h.log.Error("could not ensure upload dir", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store upload"})
		return
	}

	id := shortuuid.New()
	safeName := sanitizeFileName(fileHeader.Filename)
	dst := filepath.Join(h.cfg.UploadDir, id+"_"+safeName)

	if err := c.SaveUploadedFile(fileHeader, dst); err != nil {
		h.log.Error("could not save upload", zap.String("path", dst), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store upload"})
		return
	}

	h.manager.Submit(id, dst, safeName)
	c.JSON(http.StatusOK, gin.H{"task_id": id})
}

// handleStatus reports a task's current status. Processing errors never
// surface as HTTP errors; they arrive embedded in the body as a failed
// status, polled rather than pushed.
func (h *Handler) handleStatus(c *gin.Context) {
	t, found := h.registry.Get(c.Param("task_id"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": t.Status, "message": t.Message})
}

// handleTracks lists fully processed songs.
func (h *Handler) handleTracks(c *gin.Context) {
	songs, err := karaoke.ListSongs(h.cfg.OutputDir)
	if err != nil {
		h.log.Error("could not list songs", zap.Error(err))
		songs = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"tracks": songs})
}

// handleAudio serves one stem as raw WAV bytes.
func (h *Handler) handleAudio(c *gin.Context) {
	path, err := karaoke.TrackPath(h.cfg.OutputDir, c.Param("song_name"), c.Param("track_type"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Audio track not found"})
		return
	}
	c.Header("Content-Type", "audio/wav")
	c.File(path)
}

// handleVideo serves the muted video copy for a song.
func (h *Handler) handleVideo(c *gin.Context) {
	path, err := karaoke.VideoPath(h.cfg.OutputDir, c.Param("song_name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
		return
	}
	c.File(path)
}

// sanitizeFileName reduces an upload name to a safe base name.
func sanitizeFileName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, name)
	if name == "" || name == "." || name == ".." {
		return "video.bin"
	}
	return name
}
