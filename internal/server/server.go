package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/socialnote/apiserver/config"
	"github.com/socialnote/apiserver/internal/handlers"
	"github.com/socialnote/apiserver/internal/services"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *zap.Logger
	closers    []closeFunc
}

// New constructs a Server from configuration, opening the configured
// store and event backends.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	users, closeStore, err := OpenUserStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	queue, err := OpenQueue(ctx, cfg)
	if err != nil {
		_ = closeStore()
		return nil, err
	}
	closers := []closeFunc{closeStore}
	if queue != nil {
		closers = append(closers, queue.Close)
	}

	userService := services.NewUserService(users, services.NewBcryptHasher(), services.UUIDGenerator{}, log)
	socialService := services.NewSocialGraphService(users, newPublisher(queue, cfg.Events.Channel), log)

	router := NewRouter(userService, socialService, jwtSecret, cfg.TokenTTL, log)

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
		log:        log,
		closers:    closers,
	}, nil
}

// NewRouter wires middleware and routes around the given services.
func NewRouter(
	userService *services.UserService,
	socialService *services.SocialGraphService,
	jwtSecret string,
	tokenTTL time.Duration,
	log *zap.Logger,
) *chi.Mux {
	authMiddleware := handlers.RequireAuth(jwtSecret)
	social := handlers.NewSocialHandler(userService, socialService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		handlers.RequestLogger(log),
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, jwtSecret, tokenTTL)
	})
	router.Route("/profile", func(r chi.Router) {
		handlers.ProfileRouter(r, social, authMiddleware)
	})
	router.Route("/friends", func(r chi.Router) {
		handlers.FriendRouter(r, social, authMiddleware)
	})
	router.Route("/notifications", func(r chi.Router) {
		handlers.NotificationRouter(r, social, authMiddleware)
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until ctx is cancelled, then shuts down.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting server", zap.String("addr", s.httpServer.Addr))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		_ = s.closeBackends()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log.Info("shutting down server")
		return s.Shutdown()
	}
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	return errors.Join(err, s.closeBackends())
}

func (s *Server) closeBackends() error {
	var errs []error
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
