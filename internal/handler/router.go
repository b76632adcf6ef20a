/*
Package handler provides the HTTP handlers and routing setup for the relay server.

This file defines the main Router, applying logging, CORS, and IP-based rate
limiting middleware before delegating to the auth and WebSocket handlers.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"chatrelay/internal/pkg/limiter"
	"chatrelay/internal/pkg/logx"
	"chatrelay/internal/pkg/resp"
)

const (
	// AuthRate and AuthBurst limit register/login attempts per IP.
	AuthRate  = 0.2
	AuthBurst = 5

	// ConnectRate and ConnectBurst limit WebSocket connect attempts per IP.
	ConnectRate  = 0.5
	ConnectBurst = 5
)

// Router sets up the HTTP routing table (chi.Router) for the application.
// It initializes per-IP rate limiters, configures CORS, and applies global
// and per-route middleware.
func Router(deps *AppDeps) http.Handler {
	authLimiter := limiter.NewIPRateLimiter(rate.Limit(AuthRate), AuthBurst)
	connectLimiter := limiter.NewIPRateLimiter(rate.Limit(ConnectRate), ConnectBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]string{
			"status":  "ok",
			"service": "Chat Relay Server",
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Group(func(auth chi.Router) {
		auth.Use(authLimiter.Middleware)

		auth.Post("/register", HandleRegister(deps))
		auth.Post("/login", HandleLogin(deps))
	})

	r.Post("/logout", HandleLogout(deps))

	r.Get("/ws", HandleWebSocket(wsUpgrader, connectLimiter, deps))

	return r
}
