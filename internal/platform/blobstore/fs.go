package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FSStore keeps objects as files below a root directory.
type FSStore struct {
	root    string
	baseURL string
}

func NewFSStore(root, baseURL string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FSStore{root: root, baseURL: baseURL}, nil
}

func (s *FSStore) file(p string) string {
	return filepath.Join(s.root, filepath.FromSlash(p))
}

// Put writes to a temp file in the target directory and renames it into
// place, so readers never observe a partial object.
func (s *FSStore) Put(ctx context.Context, objectPath, contentType string, content io.Reader) (*Object, error) {
	p, err := CleanPath(objectPath)
	if err != nil {
		return nil, err
	}
	data, err := readLimited(content)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dst := s.file(p)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, fmt.Errorf("create object dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return nil, fmt.Errorf("store object: %w", err)
	}

	return &Object{
		Path:        p,
		ContentType: contentTypeFor(p, contentType),
		Size:        int64(len(data)),
		URL:         s.URL(p),
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (s *FSStore) Get(_ context.Context, objectPath string) (io.ReadCloser, *Object, error) {
	p, err := CleanPath(objectPath)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(s.file(p))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, ErrNotFound
	}
	return f, &Object{
		Path:        p,
		ContentType: contentTypeFor(p, ""),
		Size:        info.Size(),
		URL:         s.URL(p),
		CreatedAt:   info.ModTime().UTC(),
	}, nil
}

func (s *FSStore) Delete(_ context.Context, objectPath string) error {
	p, err := CleanPath(objectPath)
	if err != nil {
		return err
	}
	err = os.Remove(s.file(p))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (s *FSStore) URL(objectPath string) string {
	return joinURL(s.baseURL, objectPath)
}
