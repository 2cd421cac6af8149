package task

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CreateAndGet(t *testing.T) {
	r := NewRegistry()
	r.Create("abc", "song.mp4")

	got, ok := r.Get("abc")
	require.True(t, ok)
	assert.Equal(t, "abc", got.ID)
	assert.Equal(t, StatusProcessing, got.Status)
	assert.Equal(t, "song.mp4", got.SourceName)
	assert.NotEmpty(t, got.Message)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_Update(t *testing.T) {
	r := NewRegistry()
	r.Create("abc", "song.mp4")
	r.Update("abc", StatusCompleted, "Files saved in: karaoke_output/song")

	got, ok := r.Get("abc")
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "Files saved in: karaoke_output/song", got.Message)
	// Fields not touched by Update survive.
	assert.Equal(t, "song.mp4", got.SourceName)
}

func TestRegistry_UpdateUnknownIDIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Update("ghost", StatusFailed, "boom")
	_, ok := r.Get("ghost")
	assert.False(t, ok)
}

// A poller racing the single writer must always observe a coherent task:
// status and message change together or not at all.
func TestRegistry_ReadersNeverSeeTornUpdates(t *testing.T) {
	r := NewRegistry()
	r.Create("abc", "song.mp4")

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			r.Update("abc", StatusCompleted, fmt.Sprintf("done %d", i))
			r.Update("abc", StatusFailed, fmt.Sprintf("failed %d", i))
		}
		close(stop)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			got, ok := r.Get("abc")
			if !ok {
				t.Error("task disappeared")
				return
			}
			switch got.Status {
			case StatusProcessing:
				assert.Equal(t, "separation in progress", got.Message)
			case StatusCompleted:
				assert.Contains(t, got.Message, "done")
			case StatusFailed:
				assert.Contains(t, got.Message, "failed")
			}
		}
	}()

	wg.Wait()
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}
