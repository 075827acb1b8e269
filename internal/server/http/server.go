// Package http exposes the gateway operations over HTTP. It owns only
// transport concerns: routing, DTO validation, and mapping the error taxonomy
// to status codes. All business rules live in the services package.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/authgate/internal/logging"
	"github.com/dmitrijs2005/authgate/internal/server/config"
	"github.com/dmitrijs2005/authgate/internal/server/services"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

type Server struct {
	address   string
	logger    logging.Logger
	auth      *services.AuthService
	jwtSecret []byte
	validate  *validator.Validate
}

func NewServer(cfg *config.Config, l logging.Logger, as *services.AuthService) *Server {
	return &Server{
		address:   cfg.EndpointAddr,
		logger:    l.With("module", "http_server"),
		auth:      as,
		jwtSecret: []byte(cfg.SecretKey),
		validate:  validator.New(),
	}
}

// Handler builds the full route table, wrapped in CORS.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
	r.HandleFunc("/request-change-password", s.handleRequestChangePassword).Methods(http.MethodPost)
	r.HandleFunc("/confirm-change-password/{token}", s.handleConfirmChangePassword).Methods(http.MethodGet)

	r.Handle("/validate", s.withAccessToken(s.handleValidate)).Methods(http.MethodGet)
	r.Handle("/me", s.withAccessToken(s.handleGetMe)).Methods(http.MethodGet)
	r.Handle("/me", s.withAccessToken(s.handleUpdateMe)).Methods(http.MethodPut)
	r.Handle("/me", s.withAccessToken(s.handleDeleteMe)).Methods(http.MethodDelete)
	r.Handle("/change-password", s.withAccessToken(s.handleChangePassword)).Methods(http.MethodPatch)

	return cors.AllowAll().Handler(r)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
