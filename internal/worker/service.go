// Package worker provides the HTTP worker service for wellspring.
package worker

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/halcyonlabs/wellspring/internal/assessment"
	"github.com/halcyonlabs/wellspring/internal/config"
	"github.com/halcyonlabs/wellspring/internal/db/sqlite"
	"github.com/halcyonlabs/wellspring/internal/worker/sse"
	"github.com/halcyonlabs/wellspring/pkg/models"
)

// Service is the wellspring worker: it owns the session manager, the
// persistence stores and the HTTP surface the conversation widget and the
// dashboard talk to.
type Service struct {
	version string
	config  *config.Config
	log     zerolog.Logger

	store        *sqlite.Store
	outcomeStore *sqlite.OutcomeStore
	profileStore *sqlite.ProfileStore

	manager        *assessment.Manager
	sseBroadcaster *sse.Broadcaster

	router     chi.Router
	httpServer *http.Server

	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
	ready     atomic.Bool
}

// NewService wires the worker. assessDeps carries the extractor, scorer and
// media collaborators; the service fills in the stores and the state-change
// broadcast before building the session manager.
func NewService(version string, cfg *config.Config, store *sqlite.Store, assessDeps assessment.Deps, log zerolog.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	svc := &Service{
		version:        version,
		config:         cfg,
		log:            log,
		store:          store,
		outcomeStore:   sqlite.NewOutcomeStore(store),
		profileStore:   sqlite.NewProfileStore(store),
		sseBroadcaster: sse.NewBroadcaster(),
		router:         chi.NewRouter(),
		ctx:            ctx,
		cancel:         cancel,
		startTime:      time.Now(),
	}

	assessDeps.Outcomes = svc.outcomeStore
	assessDeps.Profiles = svc.profileStore
	assessDeps.Log = log
	assessDeps.OnStateChange = svc.broadcastState
	svc.manager = assessment.NewManager(assessDeps)

	svc.setupRoutes()
	return svc
}

// setupRoutes registers all HTTP routes.
func (s *Service) setupRoutes() {
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/events", s.sseBroadcaster.HandleSSE)

	s.router.Route("/api/session", func(r chi.Router) {
		r.Post("/start", s.handleStartSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Post("/events", s.handlePostEvent)
			r.Post("/finish", s.handleFinishSession)
			r.Delete("/", s.handleAbandonSession)
		})
	})

	s.router.Get("/api/outcomes", s.handleListOutcomes)
	s.router.Get("/api/outcomes/{sessionID}", s.handleGetOutcome)
}

// Start begins serving HTTP on the configured port. It blocks until the
// listener fails or Stop is called.
func (s *Service) Start() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.config.WorkerPort)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.ready.Store(true)
	s.log.Info().Str("addr", addr).Str("version", s.version).Msg("worker listening")

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts the worker down: finish live sessions so their
// outcomes still land, then close the listener.
func (s *Service) Stop(ctx context.Context) error {
	s.ready.Store(false)
	s.manager.ShutdownAll(ctx)
	s.cancel()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Router exposes the handler tree. Used by tests.
func (s *Service) Router() http.Handler { return s.router }

// broadcastState pushes a session state transition to SSE subscribers.
func (s *Service) broadcastState(sessionID string, state models.SessionState) {
	s.sseBroadcaster.Broadcast("session-state", map[string]string{
		"session_id": sessionID,
		"state":      string(state),
	})
}
