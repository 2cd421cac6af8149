package karaoke

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"karaokebox/config"

	"go.uber.org/zap"
)

// VideoFileName is the muted video copy kept alongside the stems.
const VideoFileName = "video.mp4"

// ErrNoStems is reported when the separator exits cleanly but none of the
// expected stem files show up.
var ErrNoStems = errors.New("no stems found")

// AudioExtractor is the media-extraction half of the pipeline.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoPath, wavPath string) error
	MuteVideo(ctx context.Context, videoPath, outPath string) error
}

// StemSeparator is the external separation tool.
type StemSeparator interface {
	Separate(ctx context.Context, wavPath, outRoot string) error
	StemsDir(outRoot, wavPath string) string
	ModelDir(outRoot string) string
}

// Pipeline runs one video through extract -> separate -> collect stems.
type Pipeline struct {
	cfg       *config.Config
	log       *zap.Logger
	extractor AudioExtractor
	separator StemSeparator
	stems     []string
}

func NewPipeline(cfg *config.Config, log *zap.Logger, extractor AudioExtractor, separator StemSeparator, stems []string) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		log:       log,
		extractor: extractor,
		separator: separator,
		stems:     stems,
	}
}

// Run processes one video. On success the returned message names the song
// output directory; on failure the directory is gone and the error message
// is fit for direct display to the user.
//
// Temporary artifacts (the per-task WAV and the separator's nested working
// subtree) are always removed, success or failure. The paths are computed
// up front so the cleanup never depends on how far the run got, and each
// removal is guarded independently.
func (p *Pipeline) Run(ctx context.Context, videoPath, taskID, originalName string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	tempWav := filepath.Join(p.cfg.OutputDir, fmt.Sprintf("temp_%s.wav", taskID))
	songDir := filepath.Join(p.cfg.OutputDir, base)
	stemsDir := p.separator.StemsDir(p.cfg.OutputDir, tempWav)
	modelDir := p.separator.ModelDir(p.cfg.OutputDir)

	defer func() {
		p.removeFile(tempWav)
		p.removeTree(modelDir)
	}()

	message, err := p.run(ctx, videoPath, tempWav, songDir, stemsDir)
	if err != nil {
		p.log.Error("pipeline failed", zap.String("task_id", taskID), zap.Error(err))
		p.removeTree(songDir)
		return "", err
	}
	return message, nil
}

func (p *Pipeline) run(ctx context.Context, videoPath, tempWav, songDir, stemsDir string) (string, error) {
	if err := os.MkdirAll(songDir, 0o755); err != nil {
		return "", fmt.Errorf("create song directory: %w", err)
	}

	p.log.Info("extracting audio", zap.String("video", videoPath))
	if err := p.extractor.ExtractAudio(ctx, videoPath, tempWav); err != nil {
		return "", err
	}

	if p.cfg.KeepVideo {
		if err := p.extractor.MuteVideo(ctx, videoPath, filepath.Join(songDir, VideoFileName)); err != nil {
			return "", err
		}
	}

	p.log.Info("separating stems", zap.String("wav", tempWav))
	if err := p.separator.Separate(ctx, tempWav, p.cfg.OutputDir); err != nil {
		return "", err
	}

	// Copy rather than move: the separator process only just exited and its
	// output files can still be subject to OS-level handle delays.
	found := false
	for _, stem := range p.stems {
		src := filepath.Join(stemsDir, stem)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := copyFile(src, filepath.Join(songDir, stem)); err != nil {
			return "", fmt.Errorf("collect stem %s: %w", stem, err)
		}
		found = true
	}
	if !found {
		return "", ErrNoStems
	}

	p.log.Info("song ready", zap.String("dir", songDir))
	return fmt.Sprintf("Files saved in: %s", songDir), nil
}

// removeFile deletes a file, treating "already gone" as success.
func (p *Pipeline) removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		p.log.Warn("cleanup failed", zap.String("path", path), zap.Error(err))
	}
}

// removeTree deletes a directory tree, treating "already gone" as success.
func (p *Pipeline) removeTree(path string) {
	if err := os.RemoveAll(path); err != nil {
		p.log.Warn("cleanup failed", zap.String("path", path), zap.Error(err))
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
