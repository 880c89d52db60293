package fsutil

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_ReadDir(t *testing.T) {
	dir := t.TempDir()
	fs := OSFileSystem{}

	if err := os.WriteFile(filepath.Join(dir, "b.csv"), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := fs.MkdirAll(filepath.Join(dir, "a"), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	entries, err := fs.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 2 || entries[0].Name() != "a" || !entries[0].IsDir() || entries[1].Name() != "b.csv" {
		t.Errorf("unexpected entries: %v", entries)
	}
	if !fs.Exists(filepath.Join(dir, "b.csv")) {
		t.Error("Exists should report written file")
	}
}

func TestOSFileSystem_CreateAndOpen(t *testing.T) {
	dir := t.TempDir()
	fs := OSFileSystem{}
	path := filepath.Join(dir, "out.txt")

	w, err := fs.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := fs.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("got %q, want hello", data)
	}
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	fs := NewMemoryFileSystem()

	if err := fs.WriteFile("/day1/Batch 1/Well 1-position.csv", []byte("a,b"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data, err := fs.ReadFile("/day1/Batch 1/Well 1-position.csv")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "a,b" {
		t.Errorf("got %q", data)
	}

	// Returned data must be a copy.
	data[0] = 'z'
	again, _ := fs.ReadFile("/day1/Batch 1/Well 1-position.csv")
	if string(again) != "a,b" {
		t.Errorf("stored data mutated: %q", again)
	}
}

func TestMemoryFileSystem_ParentsCreated(t *testing.T) {
	fs := NewMemoryFileSystem()
	_ = fs.WriteFile("/root/a/b/file.csv", nil, 0644)

	for _, dir := range []string{"/root/a/b", "/root/a", "/root", "/"} {
		info, err := fs.Stat(dir)
		if err != nil {
			t.Fatalf("Stat(%s): %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("%s should be a directory", dir)
		}
	}
}

func TestMemoryFileSystem_ReadDir(t *testing.T) {
	fs := NewMemoryFileSystem()
	_ = fs.WriteFile("/t/Batch 2/w.csv", nil, 0644)
	_ = fs.WriteFile("/t/Batch 1/w.csv", nil, 0644)
	_ = fs.WriteFile("/t/notes.txt", []byte("n"), 0644)
	_ = fs.MkdirAll("/t/empty", 0755)

	entries, err := fs.ReadDir("/t")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}

	want := []struct {
		name  string
		isDir bool
	}{
		{"Batch 1", true},
		{"Batch 2", true},
		{"empty", true},
		{"notes.txt", false},
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, w := range want {
		if entries[i].Name() != w.name || entries[i].IsDir() != w.isDir {
			t.Errorf("entry %d = (%s, %v), want (%s, %v)", i, entries[i].Name(), entries[i].IsDir(), w.name, w.isDir)
		}
	}
}

func TestMemoryFileSystem_ReadDirNonExistent(t *testing.T) {
	fs := NewMemoryFileSystem()
	if _, err := fs.ReadDir("/nope"); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestMemoryFileSystem_CreateAndOpen(t *testing.T) {
	fs := NewMemoryFileSystem()

	w, err := fs.Create("/plots/well.png")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, _ = w.Write([]byte("png"))
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := fs.Open("/plots/well.png")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	info, err := f.Stat()
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 3 || info.Name() != "well.png" {
		t.Errorf("unexpected info: %s %d", info.Name(), info.Size())
	}
	if !fs.Exists("/plots") {
		t.Error("parent directory should exist")
	}
}

func TestMemoryFileSystem_PathCleaning(t *testing.T) {
	fs := NewMemoryFileSystem()
	_ = fs.WriteFile("/a/./b/../c.csv", []byte("x"), 0644)

	if !fs.Exists("/a/c.csv") {
		t.Error("cleaned path should exist")
	}
	if _, err := fs.Open("/a/c.csv"); err != nil {
		t.Errorf("Open cleaned path: %v", err)
	}
}
