package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/telegate/telegate/internal/config"
	"github.com/telegate/telegate/internal/domain"
)

// messagesService is the data-plane surface the transport consumes.
type messagesService interface {
	GetMessages(ctx context.Context, req domain.PageRequest) (*domain.Page, error)
	ChannelInfo(ctx context.Context) (domain.ChannelInfo, error)
	Health() domain.Health
}

// mediaService returns the on-disk path of a media file, fetching on miss.
type mediaService interface {
	Get(ctx context.Context, msgID int, fileName string) (string, error)
}

// authService drives the login state machine.
type authService interface {
	RequestCode(ctx context.Context, phone string) (string, error)
	VerifyCode(ctx context.Context, code string) error
	Verify2FA(ctx context.Context, password string) error
	Logout(ctx context.Context) error
	Status() domain.AuthStatus
}

// Server is the HTTP transport over the retrieval and auth services.
type Server struct {
	messages     messagesService
	media        mediaService
	auth         authService
	validate     *validator.Validate
	logger       *zap.Logger
	defaultLimit int

	router chi.Router
}

func NewServer(cfg *config.Config, messages messagesService, media mediaService, auth authService, logger *zap.Logger) *Server {
	s := &Server{
		messages:     messages,
		media:        media,
		auth:         auth,
		validate:     validator.New(),
		logger:       logger,
		defaultLimit: cfg.API.DefaultLimit,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observe(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(httprate.LimitByIP(cfg.Server.RateLimit, time.Minute))

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/request-code", s.requestCode)
			r.Post("/verify-code", s.verifyCode)
			r.Post("/verify-2fa", s.verify2FA)
			r.Get("/status", s.authStatus)
			r.Post("/logout", s.logout)
		})
		r.Get("/messages", s.getMessages)
		r.Get("/channel", s.getChannel)
		r.Get("/media/download/{message_id}/{file_name}", s.downloadMedia)
	})

	s.router = r
	return s
}

// Handler exposes the assembled router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// MediaURLPrefix is the public path prefix media download links point at.
const MediaURLPrefix = "/api/v1/media/download"
