// Package server exposes the bridge's SCIM surface over HTTP: resource
// endpoints behind bearer-token auth, plus unauthenticated liveness and
// metrics endpoints.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/MacJediWizard/scim-bridge-docker/pkg/bridge"
	"github.com/MacJediWizard/scim-bridge-docker/pkg/config"
)

type Server struct {
	cfg    *config.Config
	Router chi.Router

	httpServer http.Server
	stopped    bool
}

func New(cfg *config.Config, rec *bridge.Reconciler) *Server {
	s := &Server{cfg: cfg}

	h := &handlers{rec: rec}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(RequestLogger())
	router.Use(middleware.Recoverer)

	router.Get("/healthz", h.healthz)
	router.Get("/metrics", h.metrics)
	router.Get("/ServiceProviderConfig", h.serviceProviderConfig)

	router.Group(func(r chi.Router) {
		r.Use(BearerAuth(cfg.SCIMToken))
		r.Get("/Users", h.listUsers)
		r.Post("/Users", h.createUser)
		r.Get("/Users/{id}", h.getUser)
		r.Put("/Users/{id}", h.replaceUser)
		r.Get("/Groups", h.listGroups)
		r.Post("/Groups", h.createGroup)
		r.Get("/Groups/{id}", h.getGroup)
		r.Put("/Groups/{id}", h.replaceGroup)
		r.Patch("/Groups/{id}", h.patchGroup)
	})

	s.Router = router
	s.httpServer = http.Server{Handler: router}
	return s
}

// Start binds the listen address and serves in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return err
	}
	logrus.Infof("listening on %s", listener.Addr())

	go func() {
		if err := s.httpServer.Serve(listener); err != nil {
			if s.stopped || errors.Is(err, http.ErrServerClosed) {
				return
			}
			logrus.Fatalf("HTTP server: %v", err)
		}
	}()
	return nil
}

// Stop gracefully shuts the server down, draining in-flight requests.
func (s *Server) Stop() {
	s.stopped = true
	if err := s.httpServer.Shutdown(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
		logrus.Warnf("shutdown: %v", err)
	}
}
