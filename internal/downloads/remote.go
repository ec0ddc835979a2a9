package downloads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/shehryarbajwa/gridharness/internal/transport"
	"github.com/shehryarbajwa/gridharness/pkg/models"
)

// Remote is a download directory held by a grid node that speaks the
// current file protocol at /session/{id}/se/files.
type Remote struct {
	base      string
	sessionID string
	t         transport.FileTransport
	// tmpRoot is where per-call extraction directories are created;
	// empty means os.TempDir.
	tmpRoot string
}

func newRemote(base, sessionID string, t transport.FileTransport) *Remote {
	return &Remote{base: base, sessionID: sessionID, t: t}
}

func (d *Remote) Kind() Kind { return KindRemote }

func (d *Remote) ListFiles(ctx context.Context) ([]string, error) {
	var resp models.FilesResponse
	if err := d.t.GetJSON(ctx, d.url(), &resp); err != nil {
		return nil, err
	}
	if resp.Value.Names == nil {
		return []string{}, nil
	}
	return resp.Value.Names, nil
}

func (d *Remote) DeleteFiles(ctx context.Context) error {
	return d.t.Delete(ctx, d.url())
}

func (d *Remote) Exists(ctx context.Context, name string) (bool, error) {
	names, err := d.ListFiles(ctx)
	if err != nil {
		return false, err
	}
	return contains(names, name), nil
}

func (d *Remote) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := validName(name); err != nil {
		return nil, err
	}

	var resp models.FileResponse
	if err := d.t.PostJSON(ctx, d.url(), models.GetFileRequest{Name: name}, &resp); err != nil {
		if transport.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, name, err)
		}
		return nil, err
	}

	data, err := extractFile(d.tmpRoot, d.sessionID, resp.Value.Contents, name)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (d *Remote) DeleteFile(ctx context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	return d.t.Delete(ctx, d.url()+"/"+url.PathEscape(name))
}

func (d *Remote) url() string {
	return fmt.Sprintf("%s/session/%s/se/files", d.base, url.PathEscape(d.sessionID))
}
