package gridnode

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/gridharness/internal/downloads"
	"github.com/shehryarbajwa/gridharness/pkg/models"
)

// W3C error codes used by the node.
const (
	errInvalidArgument  = "invalid argument"
	errInvalidSession   = "invalid session id"
	errNoSuchFile       = "no such element"
	errSessionNotCreate = "session not created"
	errUnknown          = "unknown error"
)

type valueEnvelope struct {
	Value interface{} `json:"value"`
}

type errorValue struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, value interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(valueEnvelope{Value: value})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorValue{Error: code, Message: message})
}

// createSession handles POST /session
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req models.NewSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidArgument, "invalid request body: "+err.Error())
		return
	}

	sess, err := s.registry.Create(r.Context(), req.Capabilities.AlwaysMatch)
	if errors.Is(err, ErrNoCapacity) {
		writeError(w, http.StatusServiceUnavailable, errSessionNotCreate, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("failed to create session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, errSessionNotCreate, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, models.NewSessionValue{SessionID: sess.ID, Capabilities: sess.Capabilities})
}

// getSession handles GET /session/{id}
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Capabilities)
}

// listSessions handles GET /status
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.registry.List()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ready":    true,
		"sessions": sessions,
	})
}

// deleteSession handles DELETE /session/{id}
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.registry.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, errInvalidSession, err.Error())
			return
		}
		s.logger.Warn("session ended with errors", zap.String("session", id), zap.Error(err))
	}
	s.limiter.forget(id)
	writeJSON(w, http.StatusOK, nil)
}

// listFiles handles GET /session/{id}/se/files
func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	dir, ok := s.directory(w, r)
	if !ok {
		return
	}
	names, err := dir.ListFiles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, errUnknown, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.FilesValue{Names: names})
}

// getFile handles POST /session/{id}/se/files
func (s *Server) getFile(w http.ResponseWriter, r *http.Request) {
	dir, ok := s.directory(w, r)
	if !ok {
		return
	}

	var req models.GetFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidArgument, "invalid request body: "+err.Error())
		return
	}

	f, ok := s.open(w, r, dir, req.Name)
	if !ok {
		return
	}
	defer f.Close()

	contents, err := zipBase64(req.Name, f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errUnknown, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.FileValue{Filename: req.Name, Contents: contents})
}

// deleteFiles handles DELETE /session/{id}/se/files and DELETE /downloads/{id}/
func (s *Server) deleteFiles(w http.ResponseWriter, r *http.Request) {
	dir, ok := s.directory(w, r)
	if !ok {
		return
	}
	if err := dir.DeleteFiles(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, errUnknown, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// deleteFile handles DELETE /session/{id}/se/files/{name}
func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request) {
	dir, ok := s.directory(w, r)
	if !ok {
		return
	}
	err := dir.DeleteFile(r.Context(), mux.Vars(r)["name"])
	if errors.Is(err, downloads.ErrInvalidName) {
		writeError(w, http.StatusBadRequest, errInvalidArgument, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, errUnknown, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// listDownloads handles GET /downloads/{id}/
func (s *Server) listDownloads(w http.ResponseWriter, r *http.Request) {
	dir, ok := s.directory(w, r)
	if !ok {
		return
	}
	names, err := dir.ListFiles(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := models.DeprecatedFilesResponse{Files: make([]models.DeprecatedFile, 0, len(names))}
	for _, name := range names {
		resp.Files = append(resp.Files, models.DeprecatedFile{Name: name})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(resp)
}

// getDownload handles GET /downloads/{id}/{name}
func (s *Server) getDownload(w http.ResponseWriter, r *http.Request) {
	dir, ok := s.directory(w, r)
	if !ok {
		return
	}
	f, ok := s.open(w, r, dir, mux.Vars(r)["name"])
	if !ok {
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, f); err != nil {
		s.logger.Warn("failed to send file", zap.Error(err))
	}
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*models.NodeSession, bool) {
	sess, err := s.registry.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, errInvalidSession, err.Error())
		return nil, false
	}
	return sess, true
}

func (s *Server) directory(w http.ResponseWriter, r *http.Request) (*downloads.Local, bool) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return nil, false
	}
	return downloads.NewLocal(sess.DownloadsDir), true
}

func (s *Server) open(w http.ResponseWriter, r *http.Request, dir *downloads.Local, name string) (io.ReadCloser, bool) {
	f, err := dir.Open(r.Context(), name)
	switch {
	case errors.Is(err, downloads.ErrInvalidName):
		writeError(w, http.StatusBadRequest, errInvalidArgument, err.Error())
		return nil, false
	case errors.Is(err, downloads.ErrNotFound):
		writeError(w, http.StatusNotFound, errNoSuchFile, err.Error())
		return nil, false
	case err != nil:
		writeError(w, http.StatusInternalServerError, errUnknown, err.Error())
		return nil, false
	}
	return f, true
}
