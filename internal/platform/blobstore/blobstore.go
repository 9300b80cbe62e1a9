// Package blobstore stores binary objects (client photos) under slash
// separated paths and resolves them to public URLs.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotFound     = errors.New("object not found")
	ErrFileTooLarge = errors.New("object exceeds maximum allowed size")
	ErrInvalidPath  = errors.New("invalid object path")
)

// MaxObjectSize bounds any single object regardless of caller limits.
const MaxObjectSize = 20 << 20

// Object describes a stored blob.
type Object struct {
	Path        string    `json:"path"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store is implemented by every storage backend.
type Store interface {
	Put(ctx context.Context, objectPath, contentType string, content io.Reader) (*Object, error)
	Get(ctx context.Context, objectPath string) (io.ReadCloser, *Object, error)
	Delete(ctx context.Context, objectPath string) error
	URL(objectPath string) string
}

// CleanPath validates a relative object path and returns its canonical form.
func CleanPath(p string) (string, error) {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}

func joinURL(base, objectPath string) string {
	return strings.TrimRight(base, "/") + "/" + objectPath
}

func contentTypeFor(objectPath, declared string) string {
	if declared != "" {
		return declared
	}
	if ct := mime.TypeByExtension(path.Ext(objectPath)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func readLimited(content io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(content, MaxObjectSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxObjectSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

type storedObject struct {
	meta    Object
	content []byte
}

// MemoryStore is a thread-safe in-memory Store for tests and development.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*storedObject
	baseURL string
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{objects: make(map[string]*storedObject), baseURL: baseURL}
}

// Put stores content, replacing any object at the same path.
func (s *MemoryStore) Put(_ context.Context, objectPath, contentType string, content io.Reader) (*Object, error) {
	p, err := CleanPath(objectPath)
	if err != nil {
		return nil, err
	}
	data, err := readLimited(content)
	if err != nil {
		return nil, err
	}

	meta := Object{
		Path:        p,
		ContentType: contentTypeFor(p, contentType),
		Size:        int64(len(data)),
		URL:         s.URL(p),
		CreatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	s.objects[p] = &storedObject{meta: meta, content: data}
	s.mu.Unlock()

	out := meta
	return &out, nil
}

func (s *MemoryStore) Get(_ context.Context, objectPath string) (io.ReadCloser, *Object, error) {
	p, err := CleanPath(objectPath)
	if err != nil {
		return nil, nil, err
	}
	s.mu.RLock()
	obj, ok := s.objects[p]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, ErrNotFound
	}
	meta := obj.meta
	return io.NopCloser(bytes.NewReader(obj.content)), &meta, nil
}

func (s *MemoryStore) Delete(_ context.Context, objectPath string) error {
	p, err := CleanPath(objectPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[p]; !ok {
		return ErrNotFound
	}
	delete(s.objects, p)
	return nil
}

func (s *MemoryStore) URL(objectPath string) string {
	return joinURL(s.baseURL, objectPath)
}
