package opener

import (
	"context"
	"testing"

	"github.com/user/multicam/pkg/mocks"
	"github.com/user/multicam/pkg/ports"
)

func TestRouter_DispatchesByKind(t *testing.T) {
	dev := &mocks.SourceOpener{}
	file := &mocks.SourceOpener{}
	r := &Router{Device: dev, File: file}

	cam, _ := ports.ParseSourceDescriptor("cam0", "0")
	clip, _ := ports.ParseSourceDescriptor("clip", "/tmp/a.mp4")

	if _, err := r.Open(context.Background(), cam); err != nil {
		t.Fatalf("open device: %v", err)
	}
	if _, err := r.Open(context.Background(), clip); err != nil {
		t.Fatalf("open file: %v", err)
	}
	if len(dev.Opened) != 1 || dev.Opened[0].Name != "cam0" {
		t.Errorf("device opener saw %+v", dev.Opened)
	}
	if len(file.Opened) != 1 || file.Opened[0].Path != "/tmp/a.mp4" {
		t.Errorf("file opener saw %+v", file.Opened)
	}
}

func TestRouter_MissingAdapter(t *testing.T) {
	r := &Router{}
	cam, _ := ports.ParseSourceDescriptor("cam0", "0")
	if _, err := r.Open(context.Background(), cam); err == nil {
		t.Error("expected error without a device adapter")
	}
}
