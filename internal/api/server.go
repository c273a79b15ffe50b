package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/reeys/reeys-backend/internal/service"
)

// Server exposes the request-style operations and the purchase-provider
// webhook over HTTP.
type Server struct {
	addr          string
	jwtSecret     []byte
	webhookSecret string
	log           *slog.Logger
	generator     *service.Generator
	suggestions   *service.Suggestions
	users         *service.Users
	subscriptions *service.Subscriptions
	ledger        *service.Ledger
	router        *chi.Mux
}

func NewServer(
	addr string,
	jwtSecret string,
	webhookSecret string,
	log *slog.Logger,
	generator *service.Generator,
	suggestions *service.Suggestions,
	users *service.Users,
	subscriptions *service.Subscriptions,
	ledger *service.Ledger,
) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		addr:          addr,
		jwtSecret:     []byte(jwtSecret),
		webhookSecret: webhookSecret,
		log:           log,
		generator:     generator,
		suggestions:   suggestions,
		users:         users,
		subscriptions: subscriptions,
		ledger:        ledger,
		router:        r,
	}

	r.Post("/webhooks/superwall", s.handleSuperwallWebhook)
	r.Group(func(protected chi.Router) {
		protected.Use(s.authMiddleware)
		protected.Post("/v1/images/generate", s.handleGenerateImage)
		protected.Post("/v1/images/suggestions", s.handleGenerateSuggestions)
		protected.Post("/v1/packs/generate", s.handleGeneratePack)
		protected.Post("/v1/users/first-time", s.handleFirstTimeUser)
		protected.Get("/v1/packs", s.handleListPacks)
		protected.Get("/v1/tokens/history", s.handleTokenHistory)
		protected.Get("/v1/images/{imageID}", s.handleGetImage)
	})
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // batch generation holds the response open
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("server shutdown error", "err", err)
		}
	}()

	s.log.Info("api listening", "addr", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api listen: %w", err)
	}
	return nil
}
