// Package api exposes the minter over an HTTP JSON API that a front end polls.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"sbt-minter/internal/domain"
	"sbt-minter/internal/observability"
)

// Minter is the orchestrator surface the API drives.
type Minter interface {
	Status() domain.MintStatus
	Busy() bool
	Network(ctx context.Context) (domain.NetworkContext, error)
	RequestNetworkSwitch(ctx context.Context) error
	SubmitAsync(ctx context.Context, intent domain.MintIntent) (domain.MintStatus, <-chan domain.MintStatus, error)
}

// Server routes HTTP requests to the minter.
type Server struct {
	minter         Minter
	logger         logrus.FieldLogger
	allowedOrigins []string

	// baseCtx outlives requests; background submissions are bound to it.
	baseCtx context.Context
}

// Options for creating Server.
type Options struct {
	Minter         Minter
	Logger         logrus.FieldLogger
	AllowedOrigins []string
	// BaseContext bounds background submissions. Cancel it on shutdown.
	BaseContext context.Context
}

// NewServer creates a new API server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	baseCtx := opts.BaseContext
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	return &Server{
		minter:         opts.Minter,
		logger:         logger.WithField("component", "api"),
		allowedOrigins: opts.AllowedOrigins,
		baseCtx:        baseCtx,
	}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(s.recoverPanics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", observability.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Get("/network", s.handleNetwork)
		r.Post("/network/switch", s.handleNetworkSwitch)

		r.Post("/batch/preview", s.handleBatchPreview)

		r.Route("/mint", func(r chi.Router) {
			r.Post("/self", s.handleMintSelf)
			r.Post("/single", s.handleMintSingle)
			r.Post("/batch", s.handleMintBatch)
		})
	})

	return r
}

// NewHTTPServer wraps the router in an http.Server with conservative timeouts.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
}
