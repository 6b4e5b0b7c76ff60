package server

import (
	"context"
	"log/slog"
	"strconv"

	"driftline/internal/observability"
	"driftline/internal/remote"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketUpgrade rejects plain HTTP requests on websocket routes and
// validates the collection before the upgrade happens.
func (s *Server) WebSocketUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if _, ok := validCollections[c.Params("collection")]; !ok {
		return fiber.ErrNotFound
	}
	return c.Next()
}

// SubscribeHandler streams collection snapshots to the client. The current
// snapshot is delivered immediately on connect and again after every write to
// the collection. Subscriptions are read-only so no token is required, but a
// token passed in the query is verified to give clear feedback on bad tokens.
func (s *Server) SubscribeHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		defer func() {
			if err := conn.Close(); err != nil {
				s.logger.Debug("websocket close", slog.String("error", err.Error()))
			}
		}()

		collection := conn.Params("collection")

		if token := conn.Query("token"); token != "" {
			if _, err := s.auth.VerifyToken(token); err != nil {
				if werr := conn.WriteJSON(fiber.Map{"error": "invalid token"}); werr != nil {
					s.logger.Debug("websocket write", slog.String("error", werr.Error()))
				}
				return
			}
		}

		order := remote.Order{Field: conn.Query("orderBy")}
		if desc, err := strconv.ParseBool(conn.Query("desc")); err == nil {
			order.Desc = desc
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		snapshots, err := s.store.Subscribe(ctx, collection, order)
		if err != nil {
			s.logger.Error("subscribe failed",
				slog.String("collection", collection),
				slog.String("error", err.Error()))
			return
		}

		observability.WebSocketConnectionsTotal.Inc()
		defer observability.WebSocketConnectionsTotal.Dec()

		// The read loop exists only to notice the peer going away.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					cancel()
					return
				}
			}
		}()

		for snap := range snapshots {
			if err := conn.WriteJSON(snap); err != nil {
				s.logger.Debug("websocket write",
					slog.String("collection", collection),
					slog.String("error", err.Error()))
				return
			}
		}
	})
}
