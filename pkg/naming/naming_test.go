package naming

import (
	"path/filepath"
	"testing"
	"time"
)

func TestFileName(t *testing.T) {
	ts := time.Date(2024, time.March, 7, 9, 5, 3, 0, time.Local)

	tests := []struct {
		name string
		src  string
		ext  string
		want string
	}{
		{"video", "cam0", "mp4", "cam0 07032024_090503.mp4"},
		{"dotted extension", "cam0", ".jpg", "cam0 07032024_090503.jpg"},
		{"unsafe characters", "rtsp://a/b", "mp4", "rtsp___a_b 07032024_090503.mp4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FileName(tt.src, ts, tt.ext); got != tt.want {
				t.Errorf("FileName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPathAndParse(t *testing.T) {
	ts := time.Date(2023, time.December, 31, 23, 59, 58, 0, time.Local)
	p := Path(filepath.Join("videos", "front"), "front door", ts, "mp4")

	name, got, ext, err := Parse(p)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if name != "front door" || ext != "mp4" || !got.Equal(ts) {
		t.Errorf("Parse() = %q %v %q", name, got, ext)
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, s := range []string{"noext", "cam0.mp4", "cam0 2024-01-01.mp4"} {
		if _, _, _, err := Parse(s); err == nil {
			t.Errorf("Parse(%q) expected error", s)
		}
	}
}
