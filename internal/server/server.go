// Package server exposes the card queue over HTTP for web and mobile
// front ends, with a websocket stream of queue snapshots.
package server

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
	"github.com/go-playground/validator/v10"

	"github.com/abhisek/shadowdeck/internal/queue"
	"github.com/abhisek/shadowdeck/internal/sentence"
	"github.com/abhisek/shadowdeck/internal/store"
)

// Queue is the subset of queue.Manager the server drives.
type Queue interface {
	Snapshot() queue.State
	Subscribe() (<-chan struct{}, func())
	Skip() bool
	Save(ctx context.Context) error
	SaveWithoutAdvancing(ctx context.Context) error
	ToggleDisplayForm()
	RequestFreshBatch(ctx context.Context) error
	StartFreshRun(ctx context.Context, level sentence.Level, speed float64) error
	LoadSingle(ctx context.Context, cardID string, speed float64) error
	Settings() (sentence.Level, float64)
	ClearError()
}

// Server wires HTTP handlers to the queue and the store.
type Server struct {
	queue    Queue
	vocab    store.VocabularyRepo
	library  store.SavedCardRepo
	hub      *Hub
	logger   *slog.Logger
	validate *validator.Validate

	// base scopes loads started by requests; they outlive the request.
	base   context.Context
	cancel context.CancelFunc
	loads  sync.WaitGroup
}

// New creates a Server.
func New(q Queue, vocab store.VocabularyRepo, library store.SavedCardRepo, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Server{
		queue:    q,
		vocab:    vocab,
		library:  library,
		hub:      NewHub(logger),
		logger:   logger,
		validate: validator.New(),
		base:     base,
		cancel:   cancel,
	}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			s.logger.Error("failed to write health check response", "error", err)
		}
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/queue", s.getQueue)
		r.Post("/queue/skip", s.skip)
		r.Post("/queue/save", s.save)
		r.Post("/queue/save-inline", s.saveInline)
		r.Post("/queue/toggle", s.toggle)
		r.Post("/queue/fresh", s.fresh)
		r.Post("/queue/reload", s.reload)
		r.Post("/queue/dismiss", s.dismiss)
		r.Post("/queue/load/{cardID}", s.loadSingle)
		r.Get("/cards/{id}/audio/{form}", s.audio)

		r.Get("/vocabulary", s.listVocabulary)
		r.Post("/vocabulary", s.addVocabulary)
		r.Delete("/vocabulary/{id}", s.deleteVocabulary)

		r.Get("/library", s.listLibrary)
	})

	r.Get("/ws", s.serveWS)
	return r
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// Broadcast pushes a snapshot to websocket clients after every queue
// change until ctx is done.
func (s *Server) Broadcast(ctx context.Context) {
	changes, unsubscribe := s.queue.Subscribe()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			data, err := json.Marshal(s.snapshot())
			if err != nil {
				s.logger.Error("failed to encode queue snapshot", "error", err)
				continue
			}
			s.hub.Broadcast(data)
		}
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	bctx, stop := context.WithCancel(ctx)
	defer stop()
	go s.Broadcast(bctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.hub.Close()
	err := srv.Shutdown(sctx)
	s.Close()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close cancels loads started by requests and waits for them.
func (s *Server) Close() {
	s.cancel()
	s.loads.Wait()
	s.hub.Close()
}

// goLoad runs a queue load detached from the request.
func (s *Server) goLoad(name string, fn func(ctx context.Context) error) {
	s.loads.Add(1)
	go func() {
		defer s.loads.Done()
		if err := fn(s.base); err != nil {
			s.logger.Warn("queue load failed", "op", name, "error", err)
		}
	}()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
