package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"karaokebox/config"

	"go.uber.org/zap"
)

// Extractor wraps ffmpeg/ffprobe subprocess runs. Every run is fully scoped:
// by the time a method returns, the subprocess has exited and no handle on
// the input file remains, so callers may delete it immediately.
type Extractor struct {
	cfg *config.Config
	log *zap.Logger
}

func NewExtractor(cfg *config.Config, log *zap.Logger) (*Extractor, error) {
	if _, err := exec.LookPath(cfg.FFBin); err != nil {
		return nil, fmt.Errorf("ffmpeg binary not found or not in PATH: %s", cfg.FFBin)
	}
	if _, err := exec.LookPath(cfg.FFProbeBin); err != nil {
		return nil, fmt.Errorf("ffprobe binary not found or not in PATH: %s", cfg.FFProbeBin)
	}
	return &Extractor{cfg: cfg, log: log}, nil
}

// ExtractAudio writes the container's audio stream as PCM 16-bit WAV to wavPath.
func (e *Extractor) ExtractAudio(ctx context.Context, videoPath, wavPath string) error {
	if err := e.probeAudioStream(ctx, videoPath); err != nil {
		return err
	}

	args := []string{"-y"}
	extra, err := SplitExtraArgs(e.cfg.FFExtraArgs)
	if err != nil {
		return &Error{Op: "extract", Path: videoPath, Err: err}
	}
	args = append(args, extra...)
	args = append(args,
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		wavPath,
	)

	if err := e.runFF(ctx, "extract", videoPath, wavPath, args); err != nil {
		return err
	}

	e.log.Info("audio extracted", zap.String("input", videoPath), zap.String("wav", wavPath))
	return nil
}

// MuteVideo writes a copy of the video stream with the audio removed.
func (e *Extractor) MuteVideo(ctx context.Context, videoPath, outPath string) error {
	args := []string{
		"-y",
		"-i", videoPath,
		"-an",
		"-c:v", "copy",
		outPath,
	}

	if err := e.runFF(ctx, "mute", videoPath, outPath, args); err != nil {
		return err
	}

	e.log.Info("muted video written", zap.String("input", videoPath), zap.String("output", outPath))
	return nil
}

// runFF executes ffmpeg and removes the partial output file on failure.
func (e *Extractor) runFF(ctx context.Context, op, inPath, outPath string, args []string) error {
	cmd := exec.CommandContext(ctx, e.cfg.FFBin, args...)
	var outputBuf bytes.Buffer
	cmd.Stdout = &outputBuf
	cmd.Stderr = &outputBuf

	e.log.Debug("running ffmpeg", zap.Strings("args", args))

	if err := cmd.Run(); err != nil {
		os.Remove(outPath)
		return &Error{Op: op, Path: inPath, Detail: lastLine(outputBuf.String()), Err: err}
	}
	return nil
}

// probeAudioStream fails with ErrNoAudioStream when the container has no
// audio, and with the underlying error when ffprobe cannot read it at all.
func (e *Extractor) probeAudioStream(ctx context.Context, videoPath string) error {
	cmd := exec.CommandContext(ctx, e.cfg.FFProbeBin,
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=codec_type",
		"-of", "csv=p=0",
		videoPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return &Error{Op: "probe", Path: videoPath, Detail: lastLine(stderr.String()), Err: err}
	}
	if strings.TrimSpace(string(out)) == "" {
		return &Error{Op: "probe", Path: videoPath, Err: ErrNoAudioStream}
	}
	return nil
}

// lastLine returns the last non-empty line of subprocess output, which is
// where ffmpeg puts the actual reason for a failure.
func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
