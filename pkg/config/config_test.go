package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/multicam/pkg/ports"
)

func TestSplitList(t *testing.T) {
	got := SplitList(" cam0, ,cam1,")
	if len(got) != 2 || got[0] != "cam0" || got[1] != "cam1" {
		t.Errorf("SplitList = %q", got)
	}
	if SplitList("") != nil {
		t.Error("empty list must be nil")
	}
}

func TestResolve_DisplayOrderAndRecord(t *testing.T) {
	cfg := Defaults()
	cfg.Cameras = map[string]string{"front": "0", "back": "clips/back.mp4", "side": "1"}
	cfg.Display = "side, front"
	cfg.Record = "front"

	specs, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("expected 2 specs, got %d", len(specs))
	}
	if specs[0].Descriptor.Name != "side" || specs[1].Descriptor.Name != "front" {
		t.Errorf("unexpected order %q, %q", specs[0].Descriptor.Name, specs[1].Descriptor.Name)
	}
	if specs[0].RecordOnStart || !specs[1].RecordOnStart {
		t.Errorf("only front records on start: %+v", specs)
	}
	if specs[1].Descriptor.Kind != ports.SourceDevice {
		t.Errorf("expected device kind for index, got %v", specs[1].Descriptor.Kind)
	}
}

func TestResolve_EmptyDisplayUsesAllSorted(t *testing.T) {
	cfg := Defaults()
	cfg.Cameras = map[string]string{"b": "1", "a": "movie.mp4"}

	specs, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(specs) != 2 || specs[0].Descriptor.Name != "a" || specs[1].Descriptor.Name != "b" {
		t.Errorf("unexpected specs %+v", specs)
	}
	if specs[0].Descriptor.Kind != ports.SourceFile || specs[0].Descriptor.Path != "movie.mp4" {
		t.Errorf("expected file descriptor, got %+v", specs[0].Descriptor)
	}
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name    string
		cameras map[string]string
		display string
		record  string
		want    error
	}{
		{"no cameras", nil, "", "", ErrNoSources},
		{"unknown display", map[string]string{"a": "0"}, "a,z", "", ErrUnknownSource},
		{"record not displayed", map[string]string{"a": "0", "b": "1"}, "a", "b", ErrUnknownSource},
		{"duplicate display", map[string]string{"a": "0"}, "a,a", "", nil},
		{"negative index", map[string]string{"a": "-1"}, "", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Cameras = tt.cameras
			cfg.Display = tt.display
			cfg.Record = tt.record
			_, err := cfg.Resolve()
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multicam.yaml")
	data := []byte(`
cameras:
  cam0: "0"
  clip: demo.mp4
display: clip,cam0
record: cam0
videos_dir: /data/videos
video_ext: mkv
image_ext: png
quality: 23
convert_scale: 0.5
process_all: true
fullscreen: true
disk_floor_gb: 0.5
disk_period_ms: 250
viewer_addr: ":8080"
summary: out/summary.md
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.ImagesDir != "images" || cfg.ImageQuality != 90 {
		t.Errorf("defaults must survive partial files: %+v", cfg)
	}

	oc, err := cfg.ToOrchestratorConfig()
	if err != nil {
		t.Fatalf("ToOrchestratorConfig: %v", err)
	}
	if len(oc.Sources) != 2 || oc.Sources[0].Descriptor.Name != "clip" || !oc.Sources[1].RecordOnStart {
		t.Errorf("unexpected sources %+v", oc.Sources)
	}
	if oc.Pipeline.Recorder.Dir != "/data/videos" || oc.Pipeline.Recorder.Ext != "mkv" {
		t.Errorf("unexpected recorder options %+v", oc.Pipeline.Recorder)
	}
	if oc.Pipeline.Recorder.Encoder.Quality != 23 {
		t.Errorf("expected quality 23, got %d", oc.Pipeline.Recorder.Encoder.Quality)
	}
	if oc.Pipeline.Capture.ImageFormat != ports.FormatPNG {
		t.Errorf("expected png snapshots")
	}
	if oc.Pipeline.Convert.Scale != 0.5 || !oc.Pipeline.Convert.ProcessAll {
		t.Errorf("unexpected convert options %+v", oc.Pipeline.Convert)
	}
	if oc.Disk.Dir != "/data/videos" || oc.Disk.Period != 250*time.Millisecond || oc.Disk.Floor != 1<<29 {
		t.Errorf("unexpected disk options %+v", oc.Disk)
	}
	if oc.Viewer.Addr != ":8080" || !oc.Viewer.Fullscreen {
		t.Errorf("unexpected viewer options %+v", oc.Viewer)
	}
	if oc.SummaryPath != "out/summary.md" {
		t.Errorf("unexpected summary path %q", oc.SummaryPath)
	}
}

func TestLoadFromFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("cameras: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected parse error")
	}
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFloorBytes_Default(t *testing.T) {
	cfg := Defaults()
	cfg.DiskFloorGB = 0
	if cfg.FloorBytes() != 2<<30 {
		t.Errorf("unexpected default floor %d", cfg.FloorBytes())
	}
}
