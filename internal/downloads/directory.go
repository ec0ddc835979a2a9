// Package downloads gives the test suite one contract over the files a
// browser has downloaded, wherever the browser runs.
package downloads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/shehryarbajwa/gridharness/internal/transport"
	"github.com/shehryarbajwa/gridharness/pkg/models"
)

var (
	// ErrNotFound is returned when content is requested for an absent file.
	ErrNotFound = errors.New("file not found in download directory")
	// ErrUnsupported is returned by operations a protocol version lacks.
	ErrUnsupported = errors.New("operation not supported")
	// ErrInvalidName is returned for names that would escape the directory.
	ErrInvalidName = errors.New("invalid file name")
)

// DeprecatedEndpointsTag is the scenario tag that selects the deprecated
// grid file protocol.
const DeprecatedEndpointsTag = "use-deprecated-endpoints"

// Kind identifies which Directory variant is bound to a session.
type Kind int

const (
	KindLocal Kind = iota
	KindRemote
	KindRemoteDeprecated
)

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindRemote:
		return "remote"
	case KindRemoteDeprecated:
		return "remote-deprecated"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Directory is the download directory of one browser session.
type Directory interface {
	Kind() Kind
	// ListFiles returns the names currently present.
	ListFiles(ctx context.Context) ([]string, error)
	// DeleteFiles empties the directory. Calling it on an empty directory succeeds.
	DeleteFiles(ctx context.Context) error
	Exists(ctx context.Context, name string) (bool, error)
	// Open returns the content of name, or ErrNotFound.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// DeleteFile removes a single entry. Absent names are not an error.
	DeleteFile(ctx context.Context, name string) error
}

// Of selects the Directory for a session. It performs no I/O: local sessions
// get a Local directory, remote sessions get the current or deprecated
// protocol depending on useDeprecated.
func Of(sess models.Session, useDeprecated bool, t transport.FileTransport) (Directory, error) {
	if !sess.IsRemote() {
		if sess.DownloadsDir == "" {
			return nil, fmt.Errorf("local session %q has no downloads directory", sess.ID)
		}
		return NewLocal(sess.DownloadsDir), nil
	}

	if sess.ID == "" {
		return nil, fmt.Errorf("remote session requires a session id")
	}
	base, err := baseURL(sess.RemoteURL)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("remote session %q requires a transport", sess.ID)
	}

	if useDeprecated {
		return newRemoteDeprecated(base, sess.ID, t), nil
	}
	return newRemote(base, sess.ID, t), nil
}

// ForScenario is Of with the protocol flag taken from the scenario tags.
func ForScenario(sess models.Session, tags []string, t transport.FileTransport) (Directory, error) {
	deprecated := false
	for _, tag := range tags {
		if tag == DeprecatedEndpointsTag {
			deprecated = true
			break
		}
	}
	return Of(sess, deprecated, t)
}

// baseURL reduces a grid URL such as http://host:4444/wd/hub to
// scheme://host:port; file endpoints live at the server root.
func baseURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid remote url %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid remote url %q: missing scheme or host", raw)
	}
	return u.Scheme + "://" + u.Host, nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
