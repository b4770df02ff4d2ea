/*
Package handler provides the HTTP handlers and routing setup for the zone server.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers (API and WebSocket).
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"zone/internal/pkg/auth/jwt"
	"zone/internal/pkg/limiter"
	"zone/internal/pkg/logx"
	"zone/internal/pkg/resp"
)

const (
	JoinRate     = 0.2
	JoinBurst    = 5
	UpgradeRate  = 0.5
	UpgradeBurst = 5
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes IP-based rate limiters, configures CORS, and applies global and per-route middleware.
func Router(deps *AppDeps) http.Handler {
	joinLimiter := limiter.NewIPRateLimiter(rate.Limit(JoinRate), JoinBurst)
	upgradeLimiter := limiter.NewIPRateLimiter(rate.Limit(UpgradeRate), UpgradeBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
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

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
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
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-PoW-Token"},
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
			"service": "Zone Server",
		}
		resp.RespondSuccess(w, r, data)
	})

	r.With(joinLimiter.Middleware).Post("/join", HandleJoin(deps))

	if deps.Pow != nil {
		r.Get("/pow/challenge", HandlePowChallenge(deps))
		r.With(joinLimiter.Middleware).Post("/pow/verify", HandlePowVerify(deps))
	}

	r.Get("/zone/{ticket}", HandleWebSocket(wsUpgrader, upgradeLimiter, deps))

	r.Get("/users", HandleGetUsers(deps))
	r.Get("/queue", HandleGetQueue(deps))
	r.Get("/echoes", HandleGetEchoes(deps))

	r.Group(func(auth chi.Router) {
		auth.Use(jwt.RequireSession(deps.Config.TokenSecret, deps.Zone))

		auth.Post("/queue", HandleEnqueue(deps))
		auth.Post("/queue/skip", HandleSkip(deps))
		auth.Delete("/queue/{itemId}", HandleUnqueue(deps))
		auth.Post("/echoes", HandleWriteEcho(deps))

		auth.Route("/admin", func(admin chi.Router) {
			admin.Post("/authorize", HandleAuthorize(deps))
			admin.Post("/command", HandleCommand(deps))
		})
	})

	return r
}
