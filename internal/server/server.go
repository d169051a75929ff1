package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/inkpress/apiserver/config"
	"github.com/inkpress/apiserver/internal/handlers"
	"github.com/inkpress/apiserver/internal/identity"
	"github.com/inkpress/apiserver/internal/kv"
	"github.com/inkpress/apiserver/internal/mq"
	"github.com/inkpress/apiserver/internal/services"
	"github.com/inkpress/apiserver/internal/storage"
	"github.com/inkpress/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	kv         kv.Store
	storage    *storage.Storage
	mq         *mq.MQ
}

// New connects every backend and registers the routes.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	kvStore, err := kv.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open kv store: %w", err)
	}

	objects, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		_ = kvStore.Close()
		return nil, fmt.Errorf("open object storage: %w", err)
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		_ = objects.Close()
		_ = kvStore.Close()
		return nil, fmt.Errorf("ensure bucket %s: %w", objects.Bucket(), err)
	}

	broker, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = objects.Close()
		_ = kvStore.Close()
		return nil, fmt.Errorf("open mq: %w", err)
	}
	var events *services.Events
	if broker != nil {
		events = services.NewEvents(broker, cfg.MQ.Channel)
	}

	userRepo := store.NewUserRepository(kvStore)
	postRepo := store.NewPostRepository(kvStore)
	commentRepo := store.NewCommentRepository(kvStore)

	provider := identity.NewLocalProvider(kvStore, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	userService := services.NewUserService(userRepo, provider)
	postService := services.NewPostService(postRepo, userRepo, events)
	commentService := services.NewCommentService(commentRepo, userRepo, events)
	adminService := services.NewAdminService(userRepo, postRepo, commentRepo)
	uploadService := services.NewUploadService(objects, cfg.Storage.MaxUploadBytes, cfg.Storage.SignedURLTTL)

	auth := handlers.NewAuthenticator(userService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, auth)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, auth)
	})
	router.Route("/posts", func(r chi.Router) {
		handlers.PostRouter(r, postService, commentService, auth)
	})
	router.Route("/comments", func(r chi.Router) {
		handlers.CommentRouter(r, commentService, auth)
	})
	router.Route("/admin", func(r chi.Router) {
		handlers.AdminRouter(r, adminService, auth)
	})
	router.Route("/uploads", func(r chi.Router) {
		handlers.UploadRouter(r, uploadService, auth)
	})
	router.Group(func(r chi.Router) {
		handlers.TaxonomyRouter(r, postService)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		kv:         kvStore,
		storage:    objects,
		mq:         broker,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests, then closes the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.mq != nil {
		_ = s.mq.Close()
	}
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.kv != nil {
		_ = s.kv.Close()
	}
	return err
}
