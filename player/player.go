// Package player coordinates synchronized playback of one song's three
// streams: vocal audio, instrumental audio and the muted video. The
// instrumental element is the timing master; every user-driven play, pause
// or seek is broadcast from here to all three so they stay sample-aligned.
// Followers never originate timing events.
package player

import (
	"sync"
	"time"
)

const (
	DefaultVocalVolume        = 50
	DefaultInstrumentalVolume = 100
)

// Element is one independently positioned media stream. Implementations
// wrap whatever audio/video backend the host UI uses.
type Element interface {
	Play()
	Pause()
	Seek(pos time.Duration)
	Position() time.Duration
	SetVolume(percent int) // 0-100
}

// Sync is the authoritative clock for one loaded song.
type Sync struct {
	mu           sync.Mutex
	vocal        Element
	instrumental Element // timing master
	video        Element
	playing      bool
	vocalVol     int
	instVol      int
}

// NewSync wires the three streams together. The video element is muted for
// good: its own audio track is never used for sound output.
func NewSync(vocal, instrumental, video Element) *Sync {
	s := &Sync{
		vocal:        vocal,
		instrumental: instrumental,
		video:        video,
		vocalVol:     DefaultVocalVolume,
		instVol:      DefaultInstrumentalVolume,
	}
	vocal.SetVolume(s.vocalVol)
	instrumental.SetVolume(s.instVol)
	video.SetVolume(0)
	return s
}

func (s *Sync) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = true
	s.vocal.Play()
	s.instrumental.Play()
	s.video.Play()
}

func (s *Sync) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
	s.vocal.Pause()
	s.instrumental.Pause()
	s.video.Pause()
}

// Toggle flips between playing and paused and reports the new state.
func (s *Sync) Toggle() bool {
	s.mu.Lock()
	playing := s.playing
	s.mu.Unlock()
	if playing {
		s.Pause()
	} else {
		s.Play()
	}
	return !playing
}

// Seek repositions all three streams to the same point.
func (s *Sync) Seek(pos time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vocal.Seek(pos)
	s.instrumental.Seek(pos)
	s.video.Seek(pos)
}

// Position reports the master clock's position.
func (s *Sync) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instrumental.Position()
}

func (s *Sync) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *Sync) SetVocalVolume(percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vocalVol = clampVolume(percent)
	s.vocal.SetVolume(s.vocalVol)
}

func (s *Sync) SetInstrumentalVolume(percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instVol = clampVolume(percent)
	s.instrumental.SetVolume(s.instVol)
}

func (s *Sync) VocalVolume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vocalVol
}

func (s *Sync) InstrumentalVolume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instVol
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
