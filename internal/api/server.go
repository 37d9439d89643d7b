package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/delex/internal/hermes"
	"github.com/MikeSquared-Agency/delex/internal/store"
)

// RunLister is the read side of the run store.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
}

type Server struct {
	router *chi.Mux
	port   int
	logger *slog.Logger

	mu      sync.RWMutex
	vocab   []string
	runs    RunLister
	lastRun *hermes.RunCompleted
}

func NewServer(port int, apiToken string, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		logger: logger,
	}

	router.Get("/health", s.health)

	router.Route("/api/v1/delex", func(r chi.Router) {
		r.Get("/status", s.status)
		r.Group(func(r chi.Router) {
			r.Use(BearerAuthMiddleware(apiToken))
			r.Post("/mask", s.mask)
			r.Post("/label", s.label)
			r.Post("/canonicalize", s.canonicalize)
			r.Post("/dialogue", s.transformDialogue)
			r.Get("/runs", s.listRuns)
		})
	})

	return s
}

// SetVocabulary installs the flattened entity vocabulary used by the
// preprocess transform and as the default candidate list.
func (s *Server) SetVocabulary(vocab []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vocab = vocab
}

// SetRuns enables the run listing endpoint.
func (s *Server) SetRuns(runs RunLister) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = runs
}

// ObserveRun remembers the latest run event for the status endpoint.
func (s *Server) ObserveRun(ev hermes.RunCompleted) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = &ev
}

// Handler exposes the router, for embedding and tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Service    string               `json:"service"`
	Status     string               `json:"status"`
	Vocabulary int                  `json:"vocabulary"`
	LastRun    *hermes.RunCompleted `json:"last_run"`
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	resp := statusResponse{
		Service:    "delex",
		Status:     "ok",
		Vocabulary: len(s.vocab),
		LastRun:    s.lastRun,
	}
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, resp)
}
