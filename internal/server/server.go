// Package server exposes the analysis engine over HTTP: derived-variable
// computation, data cleaning, sandboxed script execution, script
// generation, and live statistical analysis.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/marinad-syro/inferra/internal/config"
	"github.com/marinad-syro/inferra/internal/dataset"
	"github.com/marinad-syro/inferra/pkg/derive"
	"github.com/marinad-syro/inferra/pkg/sandbox"
)

// Server is the HTTP service.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *dataset.Store
	loader *dataset.Loader
	exec   *sandbox.Executor
	eval   *derive.Evaluator
}

// New creates a server from config. The sandbox executor and the
// derived-variable evaluator share the configured resource budgets.
func New(cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	exec := sandbox.NewExecutor(sandbox.Config{
		MaxSteps: cfg.Sandbox.MaxSteps,
		Timeout:  cfg.Sandbox.Timeout,
		Logger:   logger,
	})
	return &Server{
		cfg:    cfg,
		logger: logger,
		store:  dataset.NewStore(),
		loader: &dataset.Loader{Dir: cfg.Dataset.Dir, MaxRows: cfg.Dataset.MaxRows},
		exec:   exec,
		eval:   derive.NewEvaluator(exec, logger),
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Compress(5),
	)
	r.Use(s.logRequests)

	r.Get("/health", s.handleHealth)
	r.Post("/compute-variables", s.handleComputeVariables)
	r.Post("/apply-cleaning", s.handleApplyCleaning)
	r.Post("/execute-code", s.handleExecuteCode)
	r.Post("/generate-code", s.handleGenerateCode)
	r.Post("/analyze", s.handleAnalyze)

	r.Route("/datasets", func(r chi.Router) {
		r.Post("/", s.handleCreateDataset)
		r.Get("/", s.handleListDatasets)
		r.Get("/{id}", s.handleGetDataset)
		r.Delete("/{id}", s.handleDeleteDataset)
	})

	return r
}

// Serve starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting server", "addr", s.cfg.Server.Addr)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.cfg.Server.Addr,
		Handler: s.Routes(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// logRequests logs each request with the structured logger.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
