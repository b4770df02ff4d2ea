/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which is responsible for rate limiting, redeeming
the join ticket, upgrading the HTTP connection to WebSocket, and initiating the client lifecycle.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"zone/internal/app/zone"
	"zone/internal/pkg/errs"
	"zone/internal/pkg/limiter"
	"zone/internal/pkg/logx"
	"zone/internal/pkg/randx"
	"zone/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
// The upgrade is refused unless the ticket is valid, unused and unexpired.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)

		if !rateLimiter.Allow(ip) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", logx.AnonymizeIP(ip))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		ticketID := chi.URLParam(r, "ticket")
		if !randx.IsValidTicket(ticketID) {
			resp.RespondError(w, r, errs.NewError(errs.ErrTicketInvalid))
			return
		}

		banned, err := deps.Zone.IsBanned(r.Context(), ip)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}
		if banned {
			logx.Info("WebSocket connection rejected: IP is banned.", "ip", logx.AnonymizeIP(ip))
			resp.RespondError(w, r, errs.NewError(errs.ErrBanned))
			return
		}

		record, err := deps.Tickets.Consume(ticketID)
		if err != nil {
			logx.Info("WebSocket connection rejected: Ticket not redeemable.")
			resp.RespondError(w, r, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := zone.NewClient(deps.Zone, conn, record, ip)
		if !deps.Zone.Register(client) {
			logx.Warn("Zone is shutting down. Closing new connection.", "user_id", record.UserID)
			_ = conn.Close()
			return
		}

		go client.WritePump()

		logx.Info("WebSocket connection established and client registered", "user_id", record.UserID)

		client.ReadPump()
	}
}
