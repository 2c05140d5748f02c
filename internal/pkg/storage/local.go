package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Local stores objects below a root directory on the public disk.
type Local struct {
	root      string
	publicURL string
}

// NewLocal creates a disk backend rooted at root whose files are served under publicURL.
func NewLocal(root, publicURL string) *Local {
	return &Local{root: root, publicURL: publicURL}
}

// Root returns the directory the backend writes to.
func (l *Local) Root() string {
	return l.root
}

func (l *Local) fullPath(p string) (string, error) {
	key := cleanKey(p)
	if key == "" || key == "." {
		return "", fmt.Errorf("invalid storage path %q", p)
	}
	return filepath.Join(l.root, filepath.FromSlash(key)), nil
}

func (l *Local) Exists(ctx context.Context, p string) (bool, error) {
	full, err := l.fullPath(p)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", p, err)
	}
	return !info.IsDir(), nil
}

func (l *Local) Put(ctx context.Context, p string, data []byte, contentType string) error {
	full, err := l.fullPath(p)
	if err != nil {
		return err
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	// Refuse to follow symlinks planted inside the public tree
	if fi, err := os.Lstat(full); err == nil && fi.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("refusing to write to symlink: %s", p)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", p, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write file %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close file %s: %w", p, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		log.Warnf("[LocalStorage] chmod %s: %v", p, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move file into place %s: %w", p, err)
	}

	log.Debugf("[LocalStorage] Saved %s (%d bytes, %s)", p, len(data), contentType)
	return nil
}

func (l *Local) Get(ctx context.Context, p string) ([]byte, error) {
	full, err := l.fullPath(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return data, nil
}

func (l *Local) Delete(ctx context.Context, p string) error {
	full, err := l.fullPath(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file %s: %w", p, err)
	}
	return nil
}

func (l *Local) URL(p string) string {
	return joinURL(l.publicURL, cleanKey(p))
}

func (l *Local) Size(ctx context.Context, p string) (int64, error) {
	info, err := l.stat(p)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (l *Local) LastModified(ctx context.Context, p string) (time.Time, error) {
	info, err := l.stat(p)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func (l *Local) stat(p string) (os.FileInfo, error) {
	full, err := l.fullPath(p)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", p, err)
	}
	return info, nil
}
