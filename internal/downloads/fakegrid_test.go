package downloads

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/gridharness/pkg/models"
)

// fakeGrid serves both file protocols for one session from memory.
type fakeGrid struct {
	t         *testing.T
	sessionID string

	mu       sync.Mutex
	files    map[string][]byte
	requests []string
	// contents, when set, replaces the base64 payload of POST se/files.
	contents *string
}

func newFakeGrid(t *testing.T, sessionID string) (*fakeGrid, *httptest.Server) {
	g := &fakeGrid{t: t, sessionID: sessionID, files: map[string][]byte{}}
	srv := httptest.NewServer(g)
	t.Cleanup(srv.Close)
	return g, srv
}

func (g *fakeGrid) put(name string, data []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.files[name] = data
}

func (g *fakeGrid) names() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	names := make([]string, 0, len(g.files))
	for n := range g.files {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (g *fakeGrid) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, r.Method+" "+r.URL.Path)

	current := "/session/" + g.sessionID + "/se/files"
	deprecated := "/downloads/" + g.sessionID + "/"

	switch {
	case r.URL.Path == current && r.Method == http.MethodGet:
		names := []string{}
		for n := range g.files {
			names = append(names, n)
		}
		sort.Strings(names)
		json.NewEncoder(w).Encode(models.FilesResponse{Value: models.FilesValue{Names: names}})

	case r.URL.Path == current && r.Method == http.MethodPost:
		var req models.GetFileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		contents := ""
		if g.contents != nil {
			contents = *g.contents
		} else {
			data, ok := g.files[req.Name]
			if !ok {
				http.Error(w, "no such file", http.StatusNotFound)
				return
			}
			contents = zipBase64(g.t, map[string][]byte{req.Name: data})
		}
		json.NewEncoder(w).Encode(models.FileResponse{Value: models.FileValue{Filename: req.Name, Contents: contents}})

	case r.URL.Path == current && r.Method == http.MethodDelete:
		g.files = map[string][]byte{}

	case strings.HasPrefix(r.URL.Path, current+"/") && r.Method == http.MethodDelete:
		delete(g.files, strings.TrimPrefix(r.URL.Path, current+"/"))

	case r.URL.Path == deprecated && r.Method == http.MethodGet:
		resp := models.DeprecatedFilesResponse{Files: []models.DeprecatedFile{}}
		for n := range g.files {
			resp.Files = append(resp.Files, models.DeprecatedFile{Name: n})
		}
		json.NewEncoder(w).Encode(resp)

	case r.URL.Path == deprecated && r.Method == http.MethodDelete:
		g.files = map[string][]byte{}

	case strings.HasPrefix(r.URL.Path, deprecated) && r.Method == http.MethodGet:
		data, ok := g.files[strings.TrimPrefix(r.URL.Path, deprecated)]
		if !ok {
			http.Error(w, "no such file", http.StatusNotFound)
			return
		}
		w.Write(data)

	default:
		http.Error(w, "unexpected request", http.StatusMethodNotAllowed)
	}
}

func zipBase64(t *testing.T, files map[string][]byte) string {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range files {
		fw, err := zw.Create(name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}
