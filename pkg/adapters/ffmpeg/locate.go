// Package ffmpeg locates the ffmpeg and ffprobe executables shared by the
// subprocess-based adapters.
package ffmpeg

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
)

var (
	// ErrFFmpegNotFound is returned when ffmpeg is not found.
	ErrFFmpegNotFound = errors.New("ffmpeg: ffmpeg not found in PATH")

	// ErrFFprobeNotFound is returned when ffprobe is not found.
	ErrFFprobeNotFound = errors.New("ffmpeg: ffprobe not found in PATH")
)

var (
	mu         sync.RWMutex
	customPath string
)

// SetFFmpegPath overrides ffmpeg discovery. An empty path restores it.
func SetFFmpegPath(path string) {
	mu.Lock()
	customPath = path
	mu.Unlock()
}

// IsAvailable checks if ffmpeg is available on the system.
func IsAvailable() bool {
	_, err := FindFFmpeg()
	return err == nil
}

// FindFFmpeg searches for ffmpeg.
// Priority: 1) SetFFmpegPath, 2) FFMPEG_PATH env, 3) PATH, 4) common locations
func FindFFmpeg() (string, error) {
	mu.RLock()
	custom := customPath
	mu.RUnlock()

	if custom != "" {
		if _, err := os.Stat(custom); err == nil {
			return custom, nil
		}
		return "", fmt.Errorf("%w: custom path %s not found", ErrFFmpegNotFound, custom)
	}

	if envPath := os.Getenv("FFMPEG_PATH"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
		return "", fmt.Errorf("%w: FFMPEG_PATH %s not found", ErrFFmpegNotFound, envPath)
	}

	if p, ok := lookup("ffmpeg"); ok {
		return p, nil
	}
	return "", ErrFFmpegNotFound
}

// FindFFprobe searches for ffprobe, preferring the one next to ffmpeg.
func FindFFprobe() (string, error) {
	if ff, err := FindFFmpeg(); err == nil {
		sibling := filepath.Join(filepath.Dir(ff), executable("ffprobe"))
		if _, err := os.Stat(sibling); err == nil {
			return sibling, nil
		}
	}
	if p, ok := lookup("ffprobe"); ok {
		return p, nil
	}
	return "", ErrFFprobeNotFound
}

func executable(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

// lookup checks PATH and then common install locations.
func lookup(name string) (string, bool) {
	exe := executable(name)
	if p, err := exec.LookPath(exe); err == nil {
		return p, true
	}

	var dirs []string
	switch runtime.GOOS {
	case "windows":
		dirs = []string{`C:\ffmpeg\bin`, `C:\Program Files\ffmpeg\bin`, `C:\Program Files (x86)\ffmpeg\bin`}
	case "darwin":
		dirs = []string{"/opt/homebrew/bin", "/usr/local/bin", "/usr/bin"}
	default:
		dirs = []string{"/usr/bin", "/usr/local/bin", "/opt/homebrew/bin", "/snap/bin"}
	}
	for _, d := range dirs {
		p := filepath.Join(d, exe)
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}
