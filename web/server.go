package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gamestake/service"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
)

// Server exposes the leaderboard queries over HTTP and the live feed over a websocket
type Server struct {
	port       int
	service    service.LeaderboardService
	hub        *Hub
	metrics    http.Handler
	httpServer *http.Server
}

// NewServer creates a server on port. hub and metrics may be nil.
func NewServer(port int, svc service.LeaderboardService, hub *Hub, metrics http.Handler) *Server {
	return &Server{
		port:    port,
		service: svc,
		hub:     hub,
		metrics: metrics,
	}
}

// Handler returns the routed handler with CORS applied
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/leaderboard", s.handleLeaderboard).Methods(http.MethodGet)
	router.HandleFunc("/player/{address}", s.handlePlayer).Methods(http.MethodGet)
	router.HandleFunc("/recent", s.handleRecent).Methods(http.MethodGet)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	if s.metrics != nil {
		router.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}
	if s.hub != nil {
		router.HandleFunc("/ws", s.hub.ServeWS)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(router)
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", s.port).Info("HTTP server listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown error")
		return err
	}
	log.Info("HTTP server stopped")
	return nil
}
