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

// RemoteDeprecated is a download directory held by a grid node that only
// speaks the older /downloads/{id}/ protocol. That protocol has no
// single-file delete.
type RemoteDeprecated struct {
	base      string
	sessionID string
	t         transport.FileTransport
}

func newRemoteDeprecated(base, sessionID string, t transport.FileTransport) *RemoteDeprecated {
	return &RemoteDeprecated{base: base, sessionID: sessionID, t: t}
}

func (d *RemoteDeprecated) Kind() Kind { return KindRemoteDeprecated }

func (d *RemoteDeprecated) ListFiles(ctx context.Context) ([]string, error) {
	var resp models.DeprecatedFilesResponse
	if err := d.t.GetJSON(ctx, d.url("/"), &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Files))
	for _, f := range resp.Files {
		names = append(names, f.Name)
	}
	return names, nil
}

func (d *RemoteDeprecated) DeleteFiles(ctx context.Context) error {
	return d.t.Delete(ctx, d.url("/"))
}

func (d *RemoteDeprecated) Exists(ctx context.Context, name string) (bool, error) {
	names, err := d.ListFiles(ctx)
	if err != nil {
		return false, err
	}
	return contains(names, name), nil
}

func (d *RemoteDeprecated) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	data, err := d.t.Get(ctx, d.url("/"+url.PathEscape(name)))
	if err != nil {
		if transport.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, name, err)
		}
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// DeleteFile always fails: the deprecated protocol cannot delete one file.
func (d *RemoteDeprecated) DeleteFile(ctx context.Context, name string) error {
	return fmt.Errorf("%w: per-file delete on %s directory", ErrUnsupported, d.Kind())
}

func (d *RemoteDeprecated) url(path string) string {
	return fmt.Sprintf("%s/downloads/%s%s", d.base, url.PathEscape(d.sessionID), path)
}
