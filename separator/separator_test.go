package separator

import (
	"errors"
	"path/filepath"
	"testing"

	"karaokebox/config"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testRunner(model string) *Runner {
	return &Runner{
		cfg:    &config.Config{DemucsModel: model},
		log:    zap.NewNop(),
		device: "cpu",
	}
}

func TestStemsDir(t *testing.T) {
	r := testRunner("htdemucs_ft")

	dir := r.StemsDir("karaoke_output", filepath.Join("karaoke_output", "temp_abc123.wav"))
	assert.Equal(t, filepath.Join("karaoke_output", "htdemucs_ft", "temp_abc123"), dir)
}

func TestModelDir(t *testing.T) {
	r := testRunner("htdemucs")
	assert.Equal(t, filepath.Join("out", "htdemucs"), r.ModelDir("out"))
}

func TestStemNames(t *testing.T) {
	assert.Equal(t, []string{"vocals.wav", "no_vocals.wav"}, StemNames)
}

func TestError(t *testing.T) {
	cause := errors.New("exit status 1")
	err := &Error{Path: "temp.wav", Detail: "CUDA out of memory", Err: cause}
	assert.Contains(t, err.Error(), "temp.wav")
	assert.Contains(t, err.Error(), "CUDA out of memory")
	assert.True(t, errors.Is(err, cause))
}
