package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File is a KV persisted as a single JSON document on disk. The whole
// document is rewritten on every Put and Delete.
type File struct {
	path string
	mu   sync.Mutex
	data map[string]json.RawMessage
}

// OpenFile loads the document at path. A missing file is an empty store.
func OpenFile(path string) (*File, error) {
	fs := &File{path: path, data: make(map[string]json.RawMessage)}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *File) load() error {
	f, err := os.Open(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open store file: %w", err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&fs.data); err != nil {
		return fmt.Errorf("decode store file: %w", err)
	}
	if fs.data == nil {
		fs.data = make(map[string]json.RawMessage)
	}
	return nil
}

// save writes to a temp file and renames it over the target.
func (fs *File) save() error {
	if dir := filepath.Dir(fs.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
	}
	tmp := fs.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create store file: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fs.data); err != nil {
		f.Close()
		return fmt.Errorf("encode store file: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, fs.path)
}

func (fs *File) Get(_ context.Context, key string) ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	v, ok := fs.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Put stores value, which must be valid JSON.
func (fs *File) Put(_ context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("store file: value for %q is not JSON", key)
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.data[key] = append(json.RawMessage(nil), value...)
	return fs.save()
}

func (fs *File) Delete(_ context.Context, key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.data[key]; !ok {
		return nil
	}
	delete(fs.data, key)
	return fs.save()
}
