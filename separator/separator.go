package separator

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"karaokebox/config"
	"karaokebox/media"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

// StemNames are the canonical two-stem output files demucs produces in
// --two-stems mode.
var StemNames = []string{"vocals.wav", "no_vocals.wav"}

// Error is a separation failure.
type Error struct {
	Path   string
	Detail string // trailing demucs output, if any
	Err    error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("separation of %s failed: %v: %s", e.Path, e.Err, e.Detail)
	}
	return fmt.Sprintf("separation of %s failed: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Runner invokes the external demucs model as a blocking subprocess.
type Runner struct {
	cfg    *config.Config
	log    *zap.Logger
	device string
}

func NewRunner(cfg *config.Config, log *zap.Logger) (*Runner, error) {
	if _, err := exec.LookPath(cfg.DemucsBin); err != nil {
		return nil, fmt.Errorf("demucs binary not found or not in PATH: %s", cfg.DemucsBin)
	}

	device := cfg.DemucsDevice
	if device == "" || device == "auto" {
		device = DetectDevice()
	}
	log.Info("separator ready",
		zap.String("bin", cfg.DemucsBin),
		zap.String("model", cfg.DemucsModel),
		zap.String("device", device))

	return &Runner{cfg: cfg, log: log, device: device}, nil
}

// DetectDevice picks cuda when an NVIDIA GPU is visible, cpu otherwise.
func DetectDevice() string {
	smi, err := exec.LookPath("nvidia-smi")
	if err != nil {
		return "cpu"
	}
	if err := exec.Command(smi, "-L").Run(); err != nil {
		return "cpu"
	}
	return "cuda"
}

// Device reports the resolved inference device.
func (r *Runner) Device() string { return r.device }

// Separate runs demucs on wavPath, writing its nested output tree under
// outRoot. The call blocks until the model finishes or ctx expires.
func (r *Runner) Separate(ctx context.Context, wavPath, outRoot string) error {
	if err := r.checkResources(outRoot); err != nil {
		return &Error{Path: wavPath, Err: err}
	}

	args := []string{
		"--two-stems", "vocals",
		"-n", r.cfg.DemucsModel,
		"-d", r.device,
		"-o", outRoot,
	}
	extra, err := media.SplitExtraArgs(r.cfg.DemucsExtraArgs)
	if err != nil {
		return &Error{Path: wavPath, Err: err}
	}
	args = append(args, extra...)
	args = append(args, wavPath)

	cmd := exec.CommandContext(ctx, r.cfg.DemucsBin, args...)
	var outputBuf bytes.Buffer
	cmd.Stdout = &outputBuf
	cmd.Stderr = &outputBuf

	r.log.Info("running separation",
		zap.String("wav", wavPath),
		zap.String("device", r.device),
		zap.String("model", r.cfg.DemucsModel))

	if err := cmd.Run(); err != nil {
		return &Error{Path: wavPath, Detail: lastLine(outputBuf.String()), Err: err}
	}
	return nil
}

// StemsDir is where demucs places its stems for a given input: the model
// name and the input's base name, nested under the output root.
func (r *Runner) StemsDir(outRoot, wavPath string) string {
	base := strings.TrimSuffix(filepath.Base(wavPath), filepath.Ext(wavPath))
	return filepath.Join(outRoot, r.cfg.DemucsModel, base)
}

// ModelDir is the root of the tool's nested working subtree under outRoot.
func (r *Runner) ModelDir(outRoot string) string {
	return filepath.Join(outRoot, r.cfg.DemucsModel)
}

// checkResources refuses to start a run when the machine is too low on
// memory or disk for model inference plus stem output.
func (r *Runner) checkResources(outRoot string) error {
	vm, err := mem.VirtualMemory()
	if err != nil {
		r.log.Warn("could not get memory usage", zap.Error(err))
	} else if vm.Available < uint64(r.cfg.ThrottleFreeMem) {
		return fmt.Errorf("not enough free memory: available %d, required %d", vm.Available, r.cfg.ThrottleFreeMem)
	}

	d, err := disk.Usage(outRoot)
	if err != nil {
		r.log.Warn("could not get disk usage", zap.String("path", outRoot), zap.Error(err))
	} else if d.Free < uint64(r.cfg.ThrottleFreeDisk) {
		return fmt.Errorf("not enough free disk space: available %d, required %d", d.Free, r.cfg.ThrottleFreeDisk)
	}
	return nil
}

func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
