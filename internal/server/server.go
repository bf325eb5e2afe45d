package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"taskbridge/internal/history"
	"taskbridge/internal/jira"
	"taskbridge/internal/types"
)

// Drafter turns a natural-language instruction into an issue draft.
type Drafter interface {
	DraftIssue(ctx context.Context, project, instruction string) (*types.IssueDraft, error)
}

// IssueCreator submits a draft to the tracker, resolving its fields
// against project metadata first.
type IssueCreator interface {
	CreateIssue(ctx context.Context, project string, draft types.IssueDraft) (*jira.CreateResult, error)
}

// Recorder appends one created issue to the history ledger.
type Recorder interface {
	Record(ctx context.Context, entry history.Entry) error
}

// Options configures a Server.
type Options struct {
	Addr           string
	DefaultProject string
	Drafter        Drafter
	Creator        IssueCreator
	// Recorder is optional. When nil, creations are not persisted.
	Recorder Recorder
}

// Server is the HTTP face of the instruction-to-issue pipeline.
type Server struct {
	drafter        Drafter
	creator        IssueCreator
	recorder       Recorder
	defaultProject string
	httpServer     *http.Server
}

// New builds a Server with its routes registered.
func New(opts Options) *Server {
	s := &Server{
		drafter:        opts.Drafter,
		creator:        opts.Creator,
		recorder:       opts.Recorder,
		defaultProject: opts.DefaultProject,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /create-jira-task", s.handleCreateTask)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleIndex)

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.withObservability(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("shutting down http server")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// withObservability tags every request with an id, logs its outcome,
// and converts panics into a JSON 500 instead of a dropped connection.
func (s *Server) withObservability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.New().String()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("handler panic", "request_id", requestID, "method", r.Method, "path", r.URL.Path, "panic", rec)
				writeJSON(rw, http.StatusInternalServerError, TaskResponse{
					Success: false,
					Message: "internal server error",
				})
			}
			slog.Info("request",
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.status,
				"duration", time.Since(start))
		}()

		next.ServeHTTP(rw, r)
	})
}
