package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"GoModelRouter/pkg/candidate"
)

// MemoryBackend keeps the pool in process memory.
type MemoryBackend struct {
	mu    sync.Mutex
	pool  candidate.Pool
	saves int
}

// NewMemoryBackend returns a backend pre-populated with pool.
func NewMemoryBackend(pool candidate.Pool) *MemoryBackend {
	return &MemoryBackend{pool: pool.Clone()}
}

func (m *MemoryBackend) Load(_ context.Context) (candidate.Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pool.Clone(), nil
}

func (m *MemoryBackend) Save(_ context.Context, pool candidate.Pool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pool = pool.Clone()
	m.saves++
	return nil
}

// Saves reports how many times Save was called.
func (m *MemoryBackend) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// FileBackend stores the pool as an indented JSON document.
type FileBackend struct {
	Path string
}

// NewFileBackend returns a JSON file backend at path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{Path: path}
}

// Load reads the pool file. A missing file is an empty pool, not an error.
func (f *FileBackend) Load(_ context.Context) (candidate.Pool, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return candidate.Pool{}, nil
	}
	if err != nil {
		return candidate.Pool{}, fmt.Errorf("read pool file: %w", err)
	}
	var pool candidate.Pool
	if err := json.Unmarshal(data, &pool); err != nil {
		return candidate.Pool{}, fmt.Errorf("decode pool file %s: %w", f.Path, err)
	}
	return pool, nil
}

// Save writes to a temp file in the same directory and renames it over the
// target, so readers never observe a partial document.
func (f *FileBackend) Save(_ context.Context, pool candidate.Pool) error {
	data, err := json.MarshalIndent(pool, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pool: %w", err)
	}
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure pool dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp pool file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp pool file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp pool file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("replace pool file: %w", err)
	}
	return nil
}
