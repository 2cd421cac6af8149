package media

import (
	"errors"
	"fmt"

	"github.com/google/shlex"
)

// ErrNoAudioStream is reported when the input container carries no audio.
var ErrNoAudioStream = errors.New("no audio stream in input file")

// Error is an extraction failure with enough context to show the user.
type Error struct {
	Op     string // "probe", "extract" or "mute"
	Path   string
	Detail string // trailing ffmpeg output, if any
	Err    error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: %v: %s", e.Op, e.Path, e.Err, e.Detail)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// SplitExtraArgs splits operator-configured extra command arguments.
// It uses shell-style quoting rules without ever invoking a shell.
func SplitExtraArgs(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	args, err := shlex.Split(s)
	if err != nil {
		return nil, fmt.Errorf("invalid extra args syntax: %w", err)
	}
	return args, nil
}
