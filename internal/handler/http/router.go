package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/k1nderko/goit-pythonweb-hw-12/internal/domain"
	"github.com/k1nderko/goit-pythonweb-hw-12/internal/service"
	"github.com/k1nderko/goit-pythonweb-hw-12/internal/storage"
	"github.com/k1nderko/goit-pythonweb-hw-12/pkg/health"
	"github.com/k1nderko/goit-pythonweb-hw-12/pkg/middleware"
)

// serviceName labels metrics and traces emitted by this router.
const serviceName = "contacts"

// mediaCacheMaxAge is the Cache-Control max-age for served avatar files.
const mediaCacheMaxAge = 86400

// RouterConfig holds the non-service dependencies of the router.
type RouterConfig struct {
	CORS           CORSConfig
	RateLimitRPS   int
	RateLimitBurst int
	AuthRateRPS    int
	AuthRateBurst  int
	MediaDir       string
	TracingEnabled bool
}

// NewRouter creates a chi router with all routes registered.
func NewRouter(
	authService *service.AuthService,
	contactService *service.ContactService,
	store storage.Storage,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS(cfg.CORS))
	r.Use(middleware.RequestLogging(logger))
	if cfg.TracingEnabled {
		r.Use(middleware.Tracing(serviceName))
	}
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))

	// Health check and metrics endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	// Uploaded avatars
	if cfg.MediaDir != "" {
		fileServer := http.StripPrefix("/media/", http.FileServer(http.Dir(cfg.MediaDir)))
		r.With(middleware.CacheControl(mediaCacheMaxAge)).Handle("/media/*", fileServer)
	}

	// Token validator that bridges the auth middleware to the service. The
	// service re-reads the user, so revoked accounts fail here too.
	tokenValidator := func(ctx context.Context, token string) (*middleware.Claims, error) {
		user, err := authService.ValidateAccessToken(ctx, token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID: user.ID,
			Email:  user.Email,
			Role:   user.Role,
		}, nil
	}

	authHandler := NewAuthHandler(authService, logger)
	userHandler := NewUserHandler(authService, store, logger)
	contactHandler := NewContactHandler(contactService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))

		r.Route("/auth", func(r chi.Router) {
			// Public endpoints get a stricter per-IP limit against
			// credential stuffing.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(cfg.AuthRateRPS, cfg.AuthRateBurst, logger))

				r.With(ContentTypeJSON).Post("/register", authHandler.Register)
				r.With(ContentTypeJSON).Post("/login", authHandler.Login)
				r.With(ContentTypeJSON).Post("/refresh", authHandler.Refresh)
				r.Post("/verify/{token}", authHandler.VerifyEmail)
				r.With(ContentTypeJSON).Post("/request-verification", authHandler.RequestVerification)
				r.With(ContentTypeJSON).Post("/forgot-password", authHandler.ForgotPassword)
				r.With(ContentTypeJSON).Post("/reset-password", authHandler.ResetPassword)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(tokenValidator))

				r.With(ContentTypeJSON).Post("/change-password", authHandler.ChangePassword)
				r.Post("/logout", authHandler.Logout)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))

			r.Get("/me", userHandler.GetProfile)
			r.With(ContentTypeJSON).Put("/me", userHandler.UpdateProfile)
			// Multipart upload, deliberately outside ContentTypeJSON.
			r.Post("/me/avatar", userHandler.UploadAvatar)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(domain.RoleAdmin))

				r.Get("/", userHandler.ListUsers)
				r.With(ContentTypeJSON).Put("/{id}/role", userHandler.UpdateRole)
				r.With(ContentTypeJSON).Put("/{id}/status", userHandler.UpdateStatus)
			})
		})

		r.Route("/contacts", func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))

			r.With(ContentTypeJSON).Post("/", contactHandler.Create)
			r.Get("/", contactHandler.List)
			r.Get("/search", contactHandler.Search)
			r.Get("/birthdays", contactHandler.UpcomingBirthdays)
			r.Get("/{id}", contactHandler.Get)
			r.With(ContentTypeJSON).Put("/{id}", contactHandler.Update)
			r.Delete("/{id}", contactHandler.Delete)
		})
	})

	return r
}
