package gridnode

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"io"
)

// zipBase64 packs a single file into a zip archive and returns it base64
// encoded, the payload format of POST /session/{id}/se/files.
func zipBase64(name string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create(name)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(w, r); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
