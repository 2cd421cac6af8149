package karaoke

import (
	"errors"
	"os"
	"path/filepath"

	"karaokebox/separator"
)

// ErrTrackNotFound is returned for unknown songs, unknown track types and
// missing files alike; the HTTP layer maps it to a plain 404.
var ErrTrackNotFound = errors.New("track not found")

// ListSongs returns the names of fully populated song directories under
// outputDir. Directories missing either stem never surface: a failed or
// in-flight run must not be listed.
func ListSongs(outputDir string) ([]string, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	songs := []string{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		complete := true
		for _, stem := range separator.StemNames {
			if _, err := os.Stat(filepath.Join(outputDir, entry.Name(), stem)); err != nil {
				complete = false
				break
			}
		}
		if complete {
			songs = append(songs, entry.Name())
		}
	}
	return songs, nil
}

// TrackPath resolves a stem file for a song, validating both names so a
// request can never escape the output directory.
func TrackPath(outputDir, song, trackType string) (string, error) {
	if !validSegment(song) {
		return "", ErrTrackNotFound
	}
	known := false
	for _, stem := range separator.StemNames {
		if trackType == stem {
			known = true
			break
		}
	}
	if !known {
		return "", ErrTrackNotFound
	}

	path := filepath.Join(outputDir, song, trackType)
	if _, err := os.Stat(path); err != nil {
		return "", ErrTrackNotFound
	}
	return path, nil
}

// VideoPath resolves the muted video for a song.
func VideoPath(outputDir, song string) (string, error) {
	if !validSegment(song) {
		return "", ErrTrackNotFound
	}
	path := filepath.Join(outputDir, song, VideoFileName)
	if _, err := os.Stat(path); err != nil {
		return "", ErrTrackNotFound
	}
	return path, nil
}

// validSegment rejects anything that is not a plain base name.
func validSegment(name string) bool {
	return name != "" && name != "." && name != ".." && filepath.Base(name) == name
}
