package downloads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Local is a download directory on the test runner's filesystem.
type Local struct {
	dir string
}

// NewLocal binds a Local directory to dir. The directory is not touched.
func NewLocal(dir string) *Local {
	return &Local{dir: dir}
}

func (d *Local) Kind() Kind { return KindLocal }

func (d *Local) ListFiles(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", d.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (d *Local) DeleteFiles(ctx context.Context) error {
	if err := os.RemoveAll(d.dir); err != nil {
		return fmt.Errorf("failed to delete %s: %w", d.dir, err)
	}
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return fmt.Errorf("failed to recreate %s: %w", d.dir, err)
	}
	return nil
}

func (d *Local) Exists(ctx context.Context, name string) (bool, error) {
	if err := validName(name); err != nil {
		return false, err
	}
	_, err := os.Lstat(filepath.Join(d.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (d *Local) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(d.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (d *Local) DeleteFile(ctx context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	err := os.RemoveAll(filepath.Join(d.dir, name))
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}
