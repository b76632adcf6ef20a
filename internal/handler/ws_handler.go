/*
Package handler provides the HTTP handler for WebSocket connection upgrading.

This file contains HandleWebSocket, which authenticates the request via the
session cookie, resolves the identity through the directory, upgrades the
connection, and hands the resulting stream to the relay session lifecycle.
*/
package handler

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"chatrelay/internal/app/relay"
	"chatrelay/internal/pkg/errs"
	"chatrelay/internal/pkg/limiter"
	"chatrelay/internal/pkg/logx"
	"chatrelay/internal/pkg/resp"
	"chatrelay/internal/pkg/session"
)

// HandleWebSocket creates the HandlerFunc processing WebSocket connect requests.
// Every rejection happens before the upgrade, while a plain HTTP response is
// still possible.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		userKey, err := session.KeyFromRequest(r, deps.Config.SessionSecret)
		if err != nil {
			if errors.Is(err, session.ErrNoSession) {
				logx.Warn("WebSocket connection rejected: no session cookie.")
			} else {
				logx.Warn("WebSocket connection rejected: invalid session.", "error", err.Error())
			}
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		sess, err := relay.NewSession(r.Context(), userKey, deps.Directory, deps.Registry, deps.Broadcaster, deps.RelayOptions())
		if err != nil {
			logx.Warn("WebSocket connection rejected: identity resolution failed.", "error", err.Error())
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		logx.Info("WebSocket connection established.", "user_key", userKey)

		sess.Run(conn)
	}
}
