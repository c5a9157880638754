package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Diagnostics and operations (rate limited)
	s.echo.GET("/api/realtime/stats", s.handleStats, newRateLimiter(5, 10))
	s.echo.GET("/api/realtime/broadcasting", s.handleBroadcastingStatus, newRateLimiter(5, 10))
	s.echo.POST("/api/realtime/broadcasting/enable", s.handleEnableBroadcasting, newRateLimiter(5, 10))
	s.echo.POST("/api/realtime/broadcasting/disable", s.handleDisableBroadcasting, newRateLimiter(5, 10))

	// WebSocket endpoint (identity injected by the auth gateway)
	s.echo.GET("/ws", s.handleWebSocket)
}
