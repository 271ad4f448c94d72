package ports

import "testing"

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{" INFO ", LevelInfo},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"off", LevelQuiet},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseSourceDescriptor(t *testing.T) {
	tests := []struct {
		value   string
		kind    SourceKind
		target  string
		wantErr bool
	}{
		{"0", SourceDevice, "0", false},
		{" 2 ", SourceDevice, "2", false},
		{"clips/a.mp4", SourceFile, "clips/a.mp4", false},
		{"rtsp://host/stream", SourceFile, "rtsp://host/stream", false},
		{"-1", 0, "", true},
		{"  ", 0, "", true},
	}
	for _, tt := range tests {
		d, err := ParseSourceDescriptor("cam", tt.value)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseSourceDescriptor(%q): expected error", tt.value)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSourceDescriptor(%q): %v", tt.value, err)
			continue
		}
		if d.Name != "cam" || d.Kind != tt.kind || d.Target() != tt.target {
			t.Errorf("ParseSourceDescriptor(%q) = %+v", tt.value, d)
		}
	}
}

func TestParseImageFormat(t *testing.T) {
	if ParseImageFormat("png") != FormatPNG || ParseImageFormat(".png") != FormatPNG {
		t.Error("expected png")
	}
	if ParseImageFormat("jpeg") != FormatJPEG || ParseImageFormat("") != FormatJPEG {
		t.Error("unknown extensions mean jpeg")
	}
	if FormatPNG.Extension() != "png" || FormatJPEG.Extension() != "jpg" {
		t.Error("unexpected extensions")
	}
}
