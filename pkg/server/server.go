package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mnohosten/clara-db/pkg/auth"
	"github.com/mnohosten/clara-db/pkg/database"
	gql "github.com/mnohosten/clara-db/pkg/graphql"
	"github.com/mnohosten/clara-db/pkg/server/handlers"
)

// Server is the HTTP front-end over a database
type Server struct {
	config   *Config
	db       *database.Database
	router   *chi.Mux
	httpSrv  *http.Server
	authMgr  *auth.Manager
	hub      *handlers.ChangeHub
	handlers *handlers.Handlers
}

// New creates a server instance
func New(config *Config) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}

	db, err := database.Open(&database.Config{
		Name:        config.DatabaseName,
		Compression: config.Compression,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	authMgr := auth.NewManager()
	if config.AdminUser != "" && config.AdminPassword != "" {
		if err := authMgr.CreateUser(config.AdminUser, config.AdminPassword, auth.RoleAdmin); err != nil {
			return nil, fmt.Errorf("failed to create admin user: %w", err)
		}
	}

	hub := handlers.NewChangeHub()

	srv := &Server{
		config:   config,
		db:       db,
		router:   chi.NewRouter(),
		authMgr:  authMgr,
		hub:      hub,
		handlers: handlers.New(db, hub),
	}

	srv.setupMiddleware()
	if err := srv.setupRoutes(); err != nil {
		return nil, err
	}

	srv.httpSrv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      srv.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // watch connections are long-lived
	}

	return srv, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() error {
	h := s.handlers

	// health and login stay outside the auth guard
	s.router.Get("/health", h.Health)
	s.router.Post("/auth/login", s.handleLogin)

	var graphqlHandler http.Handler
	if s.config.EnableGraphQL {
		handler, err := gql.NewHandler(s.db)
		if err != nil {
			return fmt.Errorf("failed to setup GraphQL: %w", err)
		}
		graphqlHandler = handler
	}

	s.router.Group(func(r chi.Router) {
		r.Use(s.authMgr.Middleware())

		r.Get("/stats", h.DatabaseStats)
		if graphqlHandler != nil {
			r.Handle("/graphql", graphqlHandler)
		}

		r.Route("/collections", func(r chi.Router) {
			r.Get("/", h.ListCollections)

			r.Route("/{collection}", func(r chi.Router) {
				r.Delete("/", h.DropCollection)

				r.Post("/documents", h.Insert)
				r.Post("/query", h.Query)
				r.Post("/update", h.Update)
				r.Post("/delete", h.Delete)
				r.Post("/count", h.Count)
				r.Post("/distinct", h.Distinct)
				r.Post("/find-and-modify", h.FindAndModify)
				r.Post("/indexes", h.CreateIndex)

				r.Get("/stats", h.Stats)
				r.Get("/validate", h.Validate)
				r.Get("/watch", h.Watch)
			})
		})
	})
	return nil
}

// handleLogin exchanges credentials for a session token
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &credentials); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	session, err := s.authMgr.Authenticate(credentials.Username, credentials.Password)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	writeJSON(w, map[string]interface{}{
		"token":     session.Token,
		"role":      session.Role,
		"expiresAt": session.ExpiresAt,
	})
}

// Router exposes the HTTP handler, mainly for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// Database exposes the underlying database
func (s *Server) Database() *database.Database {
	return s.db
}

// Auth exposes the authentication manager
func (s *Server) Auth() *auth.Manager {
	return s.authMgr
}

// Start runs the HTTP server until Shutdown is called
func (s *Server) Start() error {
	log.Printf("clara-db listening on %s", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server and closes the database
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		return err
	}
	return s.db.Close()
}
