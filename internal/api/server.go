package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/alevsk/macropolo/internal/logger"
	"github.com/alevsk/macropolo/internal/suite"
	"github.com/alevsk/macropolo/internal/types"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// ErrUnknownSuite is returned when a suite name is not served
var ErrUnknownSuite = fmt.Errorf("unknown suite")

// SuiteSource returns the suites served. It is called on every request so
// changes to specification documents are picked up without a restart.
type SuiteSource func() ([]*suite.Suite, error)

// SuiteInfo describes a served suite
type SuiteInfo struct {
	Name  string     `json:"name"`
	File  string     `json:"file"`
	Path  string     `json:"path"`
	Tests []TestInfo `json:"tests"`
}

// TestInfo describes one procedure of a suite
type TestInfo struct {
	Name  string `json:"name"`
	Macro string `json:"macro"`
	Skip  bool   `json:"skip"`
}

// Server represents the API server
type Server struct {
	router  *mux.Router
	source  SuiteSource
	version string
	engine  string
	log     zerolog.Logger

	// mu serialises suite execution
	mu sync.Mutex
}

// Option configures a Server
type Option func(*Server)

// WithVersion sets the version reported in run reports
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// WithEngine sets the engine name reported in run reports
func WithEngine(engine string) Option {
	return func(s *Server) { s.engine = engine }
}

// NewServer creates a new API server instance
func NewServer(source SuiteSource, opts ...Option) *Server {
	s := &Server{
		router: mux.NewRouter(),
		source: source,
		log:    logger.With("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// routes sets up the API routes
func (s *Server) routes() {
	s.router.Use(s.logRequests)
	s.router.HandleFunc("/api/v1/health", s.healthCheck).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/suites", s.listSuites).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/suites/{suite}/run", s.runSuite).Methods(http.MethodPost)
	s.router.HandleFunc("/api/v1/suites/{suite}/tests/{test}/run", s.runTest).Methods(http.MethodPost)
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the API server and shuts it down when ctx is done
func (s *Server) Start(ctx context.Context, addr string, timeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.log.Info().Msg("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Request served")
	})
}

// healthCheck handles the health check endpoint
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	}); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode health check response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
}

// listSuites handles the suite listing endpoint
func (s *Server) listSuites(w http.ResponseWriter, r *http.Request) {
	suites, err := s.source()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	infos := make([]SuiteInfo, 0, len(suites))
	for _, st := range suites {
		info := SuiteInfo{Name: st.Name, File: st.File, Path: st.Path, Tests: make([]TestInfo, 0, len(st.Tests))}
		for _, tc := range st.Tests {
			info.Tests = append(info.Tests, TestInfo{Name: tc.Name, Macro: tc.Macro, Skip: tc.Skip})
		}
		infos = append(infos, info)
	}
	s.writeJSON(w, http.StatusOK, infos)
}

// runSuite runs every test of a suite
func (s *Server) runSuite(w http.ResponseWriter, r *http.Request) {
	st, status, err := s.lookup(mux.Vars(r)["suite"])
	if err != nil {
		s.writeError(w, status, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	report := types.Report{
		Version:   s.version,
		Source:    st.Path,
		Engine:    s.engine,
		Timestamp: start.Unix(),
	}
	report.Add(st.Execute(r.Context())...)
	report.Duration = time.Since(start)

	s.writeJSON(w, http.StatusOK, report)
}

// runTest runs a single test of a suite
func (s *Server) runTest(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	st, status, err := s.lookup(vars["suite"])
	if err != nil {
		s.writeError(w, status, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := st.ExecuteTest(r.Context(), vars["test"])
	if errors.Is(err, suite.ErrUnknownTest) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) lookup(name string) (*suite.Suite, int, error) {
	suites, err := s.source()
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	for _, st := range suites {
		if st.Name == name {
			return st, http.StatusOK, nil
		}
	}
	return nil, http.StatusNotFound, fmt.Errorf("%w: %s", ErrUnknownSuite, name)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
