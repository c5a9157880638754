package server

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Dashboard4-0/MS5-App-sub003/internal/version"
)

func (s *Server) handleLiveness(c echo.Context) error {
	uptime := s.clock.Since(s.startTime).Seconds()
	return c.JSON(200, map[string]any{
		"status": "ok",
		"uptime": uptime,
	})
}

// handleReadiness reports ready when the relay backend is reachable. With
// the relay disabled there is nothing external to check.
func (s *Server) handleReadiness(c echo.Context) error {
	if s.redis == nil {
		return c.JSON(200, map[string]string{"status": "ready"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := s.redis.Ping(ctx).Err(); err != nil {
		return c.JSON(503, map[string]any{
			"status":       "unhealthy",
			"failed_check": "redis",
			"error":        err.Error(),
		})
	}
	return c.JSON(200, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(200, version.Get())
}

// handleStats exposes the hub's consistent registry/index snapshot.
func (s *Server) handleStats(c echo.Context) error {
	return c.JSON(200, s.hub.Stats())
}

func (s *Server) handleBroadcastingStatus(c echo.Context) error {
	return c.JSON(200, map[string]bool{"enabled": s.bus.BroadcastingEnabled()})
}

// handleEnableBroadcasting and handleDisableBroadcasting flip the global
// dispatch flag at runtime. Hooks keep running while disabled.
func (s *Server) handleEnableBroadcasting(c echo.Context) error {
	s.bus.EnableBroadcasting()
	return c.JSON(200, map[string]bool{"enabled": true})
}

func (s *Server) handleDisableBroadcasting(c echo.Context) error {
	s.bus.DisableBroadcasting()
	return c.JSON(200, map[string]bool{"enabled": false})
}
