package osfilesystem

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestFileSystem_WriteCreatesParentsAndReadsBack(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "images", "cam0", "still.jpg")

	if err := fs.WriteFile(path, []byte{0xFF, 0xD8}); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := fs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(data) != 2 || data[0] != 0xFF {
		t.Errorf("unexpected contents %v", data)
	}
}

func TestFileSystem_ExistsAndRemove(t *testing.T) {
	fs := New()
	dir := t.TempDir()
	path := filepath.Join(dir, "cam0.mp4")

	if ok, err := fs.Exists(path); err != nil || ok {
		t.Fatalf("expected missing file, got ok=%v err=%v", ok, err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if ok, _ := fs.Exists(path); !ok {
		t.Fatal("expected file to exist")
	}
	if err := fs.Remove(path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if ok, _ := fs.Exists(path); ok {
		t.Error("expected file to be removed")
	}
}

func TestFileSystem_MkdirAll(t *testing.T) {
	fs := New()
	dir := filepath.Join(t.TempDir(), "videos", "2026")
	if err := fs.MkdirAll(dir); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if ok, _ := fs.Exists(dir); !ok {
		t.Error("expected directory to exist")
	}
}

func TestFileSystem_WalkIsRecursiveAndOrdered(t *testing.T) {
	fs := New()
	root := t.TempDir()
	for _, p := range []string{"b/2.jpg", "a/1.png", "a/sub/0.jpg", "c.txt"} {
		if err := fs.WriteFile(filepath.Join(root, p), nil); err != nil {
			t.Fatal(err)
		}
	}

	got, err := fs.Walk(root)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	want := []string{
		filepath.Join(root, "a", "1.png"),
		filepath.Join(root, "a", "sub", "0.jpg"),
		filepath.Join(root, "b", "2.jpg"),
		filepath.Join(root, "c.txt"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Walk = %v, want %v", got, want)
	}
}

func TestFileSystem_WalkMissingRoot(t *testing.T) {
	if _, err := New().Walk(filepath.Join(t.TempDir(), "none")); err == nil {
		t.Error("expected error for missing root")
	}
}
