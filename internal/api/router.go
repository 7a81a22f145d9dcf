package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"pokerplan/internal/auth"
	"pokerplan/internal/config"
	"pokerplan/internal/db"
	"pokerplan/internal/email"
	"pokerplan/internal/ws"
)

type Server struct {
	router *chi.Mux
	config *config.Config
	hub    *ws.Hub
}

func NewServer(
	cfg *config.Config,
	database *db.DB,
	emailService *email.SMTPService,
	userRepo *db.UserRepository,
	gameRepo *db.GameRepository,
) (*Server, error) {
	registerLimiter := NewRateLimiter(10, time.Minute)
	loginLimiter := NewRateLimiter(10, time.Minute)
	passwordLimiter := NewRateLimiter(5, time.Minute)

	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	passwordService := auth.NewPasswordService(cfg.Auth.HashCost, cfg.Auth.HashWorkers)
	authService := auth.NewService(userRepo, jwtService, passwordService, cfg.Auth.ResetTokenTTL)

	hub := ws.NewHub()
	go hub.Run()

	authHandler := NewAuthHandler(authService, emailService, cfg.Auth.ResetTokenTTL)
	gameHandler := NewGameHandler(gameRepo, hub)
	wsHandler := NewWebSocketHandler(hub, jwtService)
	healthHandler := NewHealthHandler(database)

	authMiddleware := NewAuthMiddleware(jwtService)

	r := chi.NewRouter()
	r.Use(slogRequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)
	r.Use(securityHeadersMiddleware)

	r.Get("/health", healthHandler.Check)

	r.Group(func(r chi.Router) {
		r.Use(maxBodySizeMiddleware(1 << 20)) // 1 MB

		r.Route("/auth", func(r chi.Router) {
			r.With(RateLimitMiddleware(registerLimiter)).Post("/register", authHandler.Register)
			r.With(RateLimitMiddleware(loginLimiter)).Post("/login", authHandler.Login)
			r.Post("/verify", authHandler.Verify)
			r.With(RateLimitMiddleware(passwordLimiter)).Post("/forgot-password", authHandler.ForgotPassword)
			r.With(RateLimitMiddleware(passwordLimiter)).Post("/reset-password", authHandler.ResetPassword)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.RequireAuth)
				r.Get("/me", authHandler.GetMe)
			})
		})

		r.Route("/games", func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Post("/", gameHandler.Create)
			r.Post("/join", gameHandler.Join)
			r.Get("/{gameID}", gameHandler.Get)
		})
	})

	r.With(httprate.LimitByIP(10, time.Minute)).Get("/ws", wsHandler.ServeWS)

	return &Server{
		router: r,
		config: cfg,
		hub:    hub,
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) Shutdown() {
	s.hub.Shutdown()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func maxBodySizeMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"remote", r.RemoteAddr,
		)
	})
}
