// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/multicam/pkg/adapters/ggrenderer"
	"github.com/user/multicam/pkg/adapters/wsviewer"
	"github.com/user/multicam/pkg/diskmonitor"
	"github.com/user/multicam/pkg/orchestrator"
	"github.com/user/multicam/pkg/pipeline"
	"github.com/user/multicam/pkg/ports"
)

var (
	// ErrUnknownSource is returned when a list names a source missing from cameras.
	ErrUnknownSource = errors.New("config: unknown source")

	// ErrNoSources is returned when nothing is left to display.
	ErrNoSources = errors.New("config: no sources configured")
)

// Config represents the full configuration for multicam.
type Config struct {
	// Sources: name -> device index or file path/URL.
	Cameras map[string]string `yaml:"cameras"`
	// Display is a comma separated list of source names, in grid order.
	// Empty displays every camera, sorted by name.
	Display string `yaml:"display"`
	// Record is a comma separated list of displayed sources that record from start.
	Record string `yaml:"record"`

	// Output
	VideosDir string `yaml:"videos_dir"`
	ImagesDir string `yaml:"images_dir"`
	VideoExt  string `yaml:"video_ext"`
	ImageExt  string `yaml:"image_ext"`

	// Encoding
	FPS          float64 `yaml:"fps"`
	Quality      int     `yaml:"quality"`
	Bitrate      int     `yaml:"bitrate"`
	ImageQuality int     `yaml:"image_quality"`

	// Display
	ConvertScale float64 `yaml:"convert_scale"`
	ProcessAll   bool    `yaml:"process_all"`
	Fullscreen   bool    `yaml:"fullscreen"`
	ViewerAddr   string  `yaml:"viewer_addr"`
	FontPath     string  `yaml:"font_path"`

	// Disk
	DiskFloorGB  float64 `yaml:"disk_floor_gb"`
	DiskPeriodMs int     `yaml:"disk_period_ms"`

	// Misc
	LogLevel   string `yaml:"log_level"`
	FFmpegPath string `yaml:"ffmpeg_path"`
	Summary    string `yaml:"summary"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		VideosDir: "videos",
		ImagesDir: "images",
		VideoExt:  "mp4",
		ImageExt:  "jpg",

		FPS:          30,
		Quality:      0,
		ImageQuality: 90,

		ConvertScale: 1,

		DiskFloorGB:  2,
		DiskPeriodMs: 1000,

		LogLevel: "info",
	}
}

// LoadFromFile loads configuration from a YAML file on top of Defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// SplitList splits a comma separated list, trimming blanks and dropping empties.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Resolve turns the camera map and the display and record lists into
// pipeline specs in display order.
func (c Config) Resolve() ([]pipeline.SourceSpec, error) {
	names := SplitList(c.Display)
	if len(names) == 0 {
		for name := range c.Cameras {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	if len(names) == 0 {
		return nil, ErrNoSources
	}

	displayed := make(map[string]bool, len(names))
	specs := make([]pipeline.SourceSpec, 0, len(names))
	for _, name := range names {
		if displayed[name] {
			return nil, fmt.Errorf("config: source %q listed twice in display", name)
		}
		value, ok := c.Cameras[name]
		if !ok {
			return nil, fmt.Errorf("%w %q in display", ErrUnknownSource, name)
		}
		desc, err := ports.ParseSourceDescriptor(name, value)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		displayed[name] = true
		specs = append(specs, pipeline.SourceSpec{Descriptor: desc})
	}

	for _, name := range SplitList(c.Record) {
		if !displayed[name] {
			return nil, fmt.Errorf("%w %q in record (only displayed sources record)", ErrUnknownSource, name)
		}
		for i := range specs {
			if specs[i].Descriptor.Name == name {
				specs[i].RecordOnStart = true
			}
		}
	}
	return specs, nil
}

// FloorBytes returns the disk floor in bytes.
func (c Config) FloorBytes() uint64 {
	if c.DiskFloorGB <= 0 {
		return diskmonitor.DefaultFloor
	}
	return uint64(c.DiskFloorGB * (1 << 30))
}

// ToOrchestratorConfig converts Config to orchestrator.Config.
func (c Config) ToOrchestratorConfig() (orchestrator.Config, error) {
	specs, err := c.Resolve()
	if err != nil {
		return orchestrator.Config{}, err
	}

	out := orchestrator.DefaultConfig()
	out.Sources = specs

	opts := &out.Pipeline
	opts.Recorder.Dir = c.VideosDir
	opts.Recorder.Ext = c.VideoExt
	opts.Recorder.Encoder = ports.EncoderOptions{Quality: c.Quality, Bitrate: c.Bitrate}

	opts.Capture.ImagesDir = c.ImagesDir
	opts.Capture.ImageFormat = ports.ParseImageFormat(strings.ToLower(c.ImageExt))
	if c.ImageQuality > 0 {
		opts.Capture.ImageQuality = c.ImageQuality
	}
	if c.FPS > 0 {
		opts.Capture.DeviceFPS = c.FPS
	}
	opts.Capture.LabelStyle = ggrenderer.DefaultLabelStyle()
	opts.Capture.LabelStyle.FontPath = c.FontPath

	opts.Convert.Scale = c.ConvertScale
	opts.Convert.ProcessAll = c.ProcessAll

	out.Disk = diskmonitor.Options{
		Dir:    c.VideosDir,
		Period: time.Duration(c.DiskPeriodMs) * time.Millisecond,
		Floor:  c.FloorBytes(),
	}
	out.Viewer = wsviewer.Options{Addr: c.ViewerAddr, Fullscreen: c.Fullscreen}
	out.SummaryPath = c.Summary
	return out, nil
}
