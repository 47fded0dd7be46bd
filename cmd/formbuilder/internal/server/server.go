// Package server provides HTTP server setup and routing. Table forms are
// served at {prefix}/{table}:form and accept submissions at
// {prefix}/{table}:submit.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/thalib/formbuilder/cmd/formbuilder/internal/config"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/constants"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/database"
	apperrors "github.com/thalib/formbuilder/cmd/formbuilder/internal/errors"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/handlers"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/logging"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/middleware"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/record"
)

// Server represents the HTTP server
type Server struct {
	config  *config.AppConfig
	db      database.Driver
	store   *record.Store
	mux     *http.ServeMux
	server  *http.Server
	version string
	logger  *logging.Logger

	errors        *apperrors.ErrorHandler
	requestLogger *logging.RequestLogger
	auth          *middleware.JWTMiddleware
}

// New creates a new server instance
func New(cfg *config.AppConfig, db database.Driver, store *record.Store, version string) *Server {
	mux := http.NewServeMux()
	logger := logging.GetLogger()

	srv := &Server{
		config:  cfg,
		db:      db,
		store:   store,
		mux:     mux,
		version: version,
		logger:  logger.WithComponent("server"),
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      mux,
			ReadTimeout:  constants.HTTPReadTimeout,
			WriteTimeout: constants.HTTPWriteTimeout,
			IdleTimeout:  constants.HTTPIdleTimeout,
		},
		errors:        apperrors.NewErrorHandler(apperrors.ErrorHandlerConfig{LogStackTrace: true, Logger: logger}),
		requestLogger: logging.NewRequestLogger(logger, cfg.Server.Prefix+"/health"),
	}

	protected := []string{"*:submit"}
	if cfg.Auth.ProtectForms {
		protected = append(protected, "*:form", "*/tables:list")
	}
	srv.auth = middleware.NewJWTMiddleware(middleware.JWTConfig{
		Secret:         cfg.Auth.JWTSecret,
		ProtectedPaths: protected,
		Logger:         logger,
	})

	srv.setupRoutes()
	return srv
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	formsHandler := handlers.NewFormsHandler(s.store, s.config.FormOptions(), s.errors)

	prefix := s.config.Server.Prefix

	s.mux.HandleFunc("GET "+prefix+"/health", s.wrap(s.healthHandler))
	s.mux.HandleFunc("GET "+prefix+"/tables:list", s.wrap(formsHandler.ListTables))

	if prefix == "" {
		s.mux.HandleFunc("/", s.wrap(s.dynamicFormHandler(formsHandler)))
	} else {
		s.mux.HandleFunc(prefix+"/", s.wrap(s.dynamicFormHandler(formsHandler)))
		s.mux.HandleFunc("/", s.wrap(s.notFoundHandler))
	}
}

// wrap applies request logging, panic recovery and authentication
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return s.requestLogger.Middleware(s.errors.RecoveryMiddleware(s.auth.Authenticate(next)))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Infof("Starting server on %s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

// Run starts the server and handles graceful shutdown
func (s *Server) Run() error {
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- s.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		s.logger.Infof("Received signal: %v", sig)

		ctx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()

		if err := s.Shutdown(ctx); err != nil {
			if err := s.server.Close(); err != nil {
				return fmt.Errorf("could not stop server gracefully: %w", err)
			}
		}
	}

	return nil
}

// healthHandler always answers 200; clients check the status field
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.HealthCheckTimeout)
	defer cancel()

	status := "live"
	if err := s.db.Ping(ctx); err != nil {
		s.logger.WithContext(r.Context()).Warnf("health check failed: %v", err)
		status = "down"
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"name":    "formbuilder",
		"version": s.version,
	})
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.errors.WriteError(w, r, apperrors.NewNotFoundError("Endpoint"))
}

// dynamicFormHandler routes {prefix}/{table}:{action}
func (s *Server) dynamicFormHandler(formsHandler *handlers.FormsHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, s.config.Server.Prefix+"/")

		table, action, ok := strings.Cut(path, ":")
		if !ok || table == "" || strings.Contains(table, "/") {
			s.notFoundHandler(w, r)
			return
		}

		switch action {
		case "form":
			if r.Method != http.MethodGet {
				s.errors.WriteError(w, r, apperrors.NewMethodNotAllowedError(r.Method))
				return
			}
			formsHandler.Form(w, r, table)
		case "submit":
			if r.Method != http.MethodPost {
				s.errors.WriteError(w, r, apperrors.NewMethodNotAllowedError(r.Method))
				return
			}
			formsHandler.Submit(w, r, table)
		default:
			s.errors.WriteError(w, r, apperrors.NewAPIError(http.StatusNotFound, apperrors.CodeNotFound, "Unknown action"))
		}
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set(constants.HeaderContentType, constants.MIMEApplicationJSON)
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}
