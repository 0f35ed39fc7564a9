package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
)

// LocalStore keeps blobs as files in a single directory.
type LocalStore struct {
	dir string
}

// NewLocalStore creates dir if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) path(name string) (string, error) {
	if !ValidName(name) {
		return "", ErrInvalidName
	}
	return filepath.Join(s.dir, name), nil
}

func (s *LocalStore) Put(_ context.Context, name string, r io.Reader, _ int64, _ string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return fmt.Errorf("create blob: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return fmt.Errorf("write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(p)
		return fmt.Errorf("close blob: %w", err)
	}
	return nil
}

func (s *LocalStore) Open(_ context.Context, name string) (io.ReadSeekCloser, Info, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, Info{}, err
	}

	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, Info{}, ErrNotFound
		}
		return nil, Info{}, fmt.Errorf("open blob: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, Info{}, fmt.Errorf("stat blob: %w", err)
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, Info{}, ErrNotFound
	}
	return f, Info{
		Size:        st.Size(),
		ModTime:     st.ModTime(),
		ContentType: mime.TypeByExtension(filepath.Ext(name)),
	}, nil
}

func (s *LocalStore) Remove(_ context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}
