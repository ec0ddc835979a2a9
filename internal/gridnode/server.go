package gridnode

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const filesBurst = 10

// Server exposes a Registry over the WebDriver session routes, both download
// protocols and the DevTools relay.
type Server struct {
	registry     *Registry
	limiter      *limiter
	filesPerHour int
	logger       *zap.Logger
}

// NewServer creates a Server allowing filesPerHour file requests per session.
func NewServer(registry *Registry, filesPerHour int, logger *zap.Logger) *Server {
	return &Server{
		registry:     registry,
		limiter:      newLimiter(filesPerHour, filesBurst),
		filesPerHour: filesPerHour,
		logger:       logger,
	}
}

// Routes configures all HTTP routes
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()

	// WebDriver commands are also accepted under the legacy /wd/hub prefix.
	for _, wd := range []*mux.Router{r, r.PathPrefix("/wd/hub").Subrouter()} {
		wd.HandleFunc("/status", s.listSessions).Methods("GET")
		wd.HandleFunc("/session", s.createSession).Methods("POST")
		wd.HandleFunc("/session/{id}", s.getSession).Methods("GET")
		wd.HandleFunc("/session/{id}", s.deleteSession).Methods("DELETE")
	}

	// DevTools relay (not rate limited, one long-lived connection)
	r.HandleFunc("/session/{id}/se/cdp", s.relayDevTools).Methods("GET")

	files := r.PathPrefix("/session/{id}/se/files").Subrouter()
	files.Use(s.rateLimit)
	files.HandleFunc("", s.listFiles).Methods("GET")
	files.HandleFunc("", s.getFile).Methods("POST")
	files.HandleFunc("", s.deleteFiles).Methods("DELETE")
	files.HandleFunc("/{name}", s.deleteFile).Methods("DELETE")

	legacy := r.PathPrefix("/downloads/{id}").Subrouter()
	legacy.Use(s.rateLimit)
	legacy.HandleFunc("/", s.listDownloads).Methods("GET")
	legacy.HandleFunc("/", s.deleteFiles).Methods("DELETE")
	legacy.HandleFunc("/{name}", s.getDownload).Methods("GET")

	r.Use(s.accessLog)

	return r
}

// rateLimit enforces the per-session file request budget.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		limit := strconv.Itoa(s.filesPerHour)

		if !s.limiter.allow(id) {
			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", "0")
			writeError(w, http.StatusTooManyRequests, errUnknown, "file request rate limit exceeded for session "+id)
			return
		}

		w.Header().Set("X-RateLimit-Limit", limit)
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(s.limiter.tokens(id))))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("request", zap.String("method", r.Method), zap.String("path", r.URL.Path))
		next.ServeHTTP(w, r)
	})
}
