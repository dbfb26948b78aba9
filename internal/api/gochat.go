package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/npezzotti/go-dm/internal/chat"
	"github.com/npezzotti/go-dm/internal/config"
	"github.com/npezzotti/go-dm/internal/database"
	"github.com/npezzotti/go-dm/internal/stats"
	"github.com/sirupsen/logrus"
)

type GoDMApp struct {
	log            *logrus.Logger
	db             database.Repository
	identity       *chat.IdentityService
	convs          *chat.ConversationService
	mux            *http.Server
	signingKey     []byte
	allowedOrigins []string
}

func NewGoDMApp(mux *http.ServeMux, logger *logrus.Logger, db database.Repository, su stats.StatsProvider, cfg *config.Config) *GoDMApp {
	s := &GoDMApp{
		log:            logger,
		db:             db,
		identity:       chat.NewIdentityService(logger, db, su),
		convs:          chat.NewConversationService(logger, db, su),
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/register", s.register)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/logout", s.logout)
	mux.Handle("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("POST /api/messages", s.authMiddleware(s.sendMessage))
	mux.Handle("GET /api/messages/{username}", s.authMiddleware(s.getMessages))
	mux.Handle("GET /api/conversations", s.authMiddleware(s.getConversations))
	mux.Handle("DELETE /api/conversations/{username}", s.authMiddleware(s.deleteConversation))
	mux.Handle("POST /api/blocks/{username}", s.authMiddleware(s.blockUser))
	mux.Handle("GET /api/users/{username}", s.authMiddleware(s.searchUser))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = handlers.CustomLoggingHandler(io.Discard, h, s.logRequest)
	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *GoDMApp) Start() error {
	s.log.Infof("starting server on %s", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *GoDMApp) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
