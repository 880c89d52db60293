// Package fsutil provides the filesystem abstraction trajectory ingestion and
// plot output go through, so batches can be exercised in memory.
package fsutil

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileSystem abstracts filesystem operations for testability.
// Use OSFileSystem for production; MemoryFileSystem for testing.
type FileSystem interface {
	// Open opens the named file for reading.
	Open(name string) (fs.File, error)

	// Create creates or truncates the named file.
	Create(name string) (io.WriteCloser, error)

	// ReadFile reads the named file and returns its contents.
	ReadFile(name string) ([]byte, error)

	// ReadDir lists the direct children of a directory, sorted by name.
	ReadDir(name string) ([]fs.DirEntry, error)

	// Stat returns a FileInfo describing the named file.
	Stat(name string) (fs.FileInfo, error)

	// MkdirAll creates a directory and all necessary parents.
	MkdirAll(path string, perm os.FileMode) error

	// Exists checks if a file or directory exists.
	Exists(name string) bool
}

// OSFileSystem implements FileSystem using the os package.
type OSFileSystem struct{}

// Open opens the named file.
func (OSFileSystem) Open(name string) (fs.File, error) {
	return os.Open(name)
}

// Create creates the named file.
func (OSFileSystem) Create(name string) (io.WriteCloser, error) {
	return os.Create(name)
}

// ReadFile reads the named file.
func (OSFileSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// ReadDir reads the named directory.
func (OSFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	return os.ReadDir(name)
}

// Stat returns file info for the named file.
func (OSFileSystem) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

// MkdirAll creates a directory path.
func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Exists checks if a file exists.
func (OSFileSystem) Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// MemoryFileSystem is an in-memory FileSystem for tests. Files and
// directories share one node table keyed by cleaned path; writing a file
// registers every ancestor directory.
type MemoryFileSystem struct {
	mu    sync.RWMutex
	nodes map[string]*node
}

type node struct {
	data []byte
	mode os.FileMode
}

func (n *node) isDir() bool { return n.mode.IsDir() }

// NewMemoryFileSystem returns an empty filesystem containing only "/".
func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{nodes: map[string]*node{
		string(filepath.Separator): {mode: fs.ModeDir | 0755},
	}}
}

// lookup returns the node at the cleaned path. Callers hold m.mu.
func (m *MemoryFileSystem) lookup(op, name string) (string, *node, error) {
	name = filepath.Clean(name)
	n, ok := m.nodes[name]
	if !ok {
		return name, nil, &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
	}
	return name, n, nil
}

// put stores a file node and its ancestors. Callers hold m.mu.
func (m *MemoryFileSystem) put(name string, data []byte, perm os.FileMode) {
	m.nodes[name] = &node{data: data, mode: perm.Perm()}
	m.mkdirs(filepath.Dir(name))
}

// mkdirs registers dir and every ancestor. Callers hold m.mu.
func (m *MemoryFileSystem) mkdirs(dir string) {
	for {
		if n, ok := m.nodes[dir]; !ok || !n.isDir() {
			m.nodes[dir] = &node{mode: fs.ModeDir | 0755}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

// Open opens a file for reading.
func (m *MemoryFileSystem) Open(name string) (fs.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name, n, err := m.lookup("open", name)
	if err != nil {
		return nil, err
	}
	return &memReader{Reader: bytes.NewReader(n.data), info: infoOf(name, n)}, nil
}

// Create creates or truncates a file. Contents become visible on Close.
func (m *MemoryFileSystem) Create(name string) (io.WriteCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = filepath.Clean(name)
	m.put(name, nil, 0644)
	return &memWriter{fs: m, name: name}, nil
}

// WriteFile stores a copy of data, creating parent directories. It is not
// part of FileSystem; tests use it to seed fixtures.
func (m *MemoryFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.put(filepath.Clean(name), bytes.Clone(data), perm)
	return nil
}

// ReadFile returns a copy of a file's contents.
func (m *MemoryFileSystem) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, n, err := m.lookup("read", name)
	if err != nil {
		return nil, err
	}
	return append([]byte{}, n.data...), nil
}

// ReadDir lists the direct children of a directory, sorted by name.
func (m *MemoryFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name, n, err := m.lookup("readdir", name)
	if err == nil && !n.isDir() {
		err = &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	if err != nil {
		return nil, err
	}

	var entries []fs.DirEntry
	for path, child := range m.nodes {
		if path != name && filepath.Dir(path) == name {
			entries = append(entries, fs.FileInfoToDirEntry(infoOf(path, child)))
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

// Stat describes a file or directory.
func (m *MemoryFileSystem) Stat(name string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name, n, err := m.lookup("stat", name)
	if err != nil {
		return nil, err
	}
	return infoOf(name, n), nil
}

// MkdirAll creates a directory and its parents.
func (m *MemoryFileSystem) MkdirAll(path string, _ os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path = filepath.Clean(path)
	if n, ok := m.nodes[path]; ok && !n.isDir() {
		return &fs.PathError{Op: "mkdir", Path: path, Err: fs.ErrExist}
	}
	m.mkdirs(path)
	return nil
}

// Exists reports whether a file or directory is present.
func (m *MemoryFileSystem) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.nodes[filepath.Clean(name)]
	return ok
}

type memReader struct {
	*bytes.Reader
	info fs.FileInfo
}

func (r *memReader) Stat() (fs.FileInfo, error) { return r.info, nil }
func (r *memReader) Close() error               { return nil }

type memWriter struct {
	fs   *MemoryFileSystem
	name string
	buf  bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *memWriter) Close() error {
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	w.fs.put(w.name, bytes.Clone(w.buf.Bytes()), 0644)
	return nil
}

// nodeInfo implements fs.FileInfo.
type nodeInfo struct {
	name string
	size int64
	mode os.FileMode
}

func infoOf(path string, n *node) *nodeInfo {
	return &nodeInfo{name: filepath.Base(path), size: int64(len(n.data)), mode: n.mode}
}

func (i *nodeInfo) Name() string       { return i.name }
func (i *nodeInfo) Size() int64        { return i.size }
func (i *nodeInfo) Mode() os.FileMode  { return i.mode }
func (i *nodeInfo) ModTime() time.Time { return time.Time{} }
func (i *nodeInfo) IsDir() bool        { return i.mode.IsDir() }
func (i *nodeInfo) Sys() any           { return nil }
