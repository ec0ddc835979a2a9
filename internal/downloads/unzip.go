package downloads

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// extractFile decodes a base64 zip payload into a temporary directory owned
// by this call and returns the content of name. The directory is removed
// before returning, whatever the outcome.
func extractFile(tmpRoot, prefix, contents, name string) (data []byte, err error) {
	archive, err := base64.StdEncoding.DecodeString(contents)
	if err != nil {
		return nil, fmt.Errorf("failed to decode file contents: %w", err)
	}

	dir, err := os.MkdirTemp(tmpRoot, "files-"+tempPrefix(prefix)+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil && err == nil {
			err = fmt.Errorf("failed to remove temp directory: %w", rmErr)
		}
	}()

	if err := unzip(archive, dir); err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", name, err)
	}

	data, err = os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// tempPrefix makes an opaque session id usable inside a temp dir pattern.
func tempPrefix(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '*' {
			return '_'
		}
		return r
	}, s)
}

// unzip extracts every entry of archive below target.
func unzip(archive []byte, target string) error {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return err
	}

	for _, f := range zr.File {
		path := filepath.Join(target, f.Name)
		if !strings.HasPrefix(path, filepath.Clean(target)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal entry path %q", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(path, 0755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := writeEntry(f, path); err != nil {
			return err
		}
	}
	return nil
}

func writeEntry(f *zip.File, path string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
