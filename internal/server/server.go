package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Dashboard4-0/MS5-App-sub003/internal/config"
	"github.com/Dashboard4-0/MS5-App-sub003/internal/events"
	"github.com/Dashboard4-0/MS5-App-sub003/internal/realtime"
)

// userIDHeader carries the authenticated user identity, set by the upstream
// gateway after token verification.
const userIDHeader = "X-User-ID"

// redisHealthChecker is the minimal interface for relay health checks.
type redisHealthChecker interface {
	Ping(ctx context.Context) *goredis.StatusCmd
}

type Server struct {
	echo          *echo.Echo
	config        *config.Config
	hub           *realtime.Hub
	bus           *events.Bus
	clock         clockwork.Clock
	redis         redisHealthChecker
	upgrader      websocket.Upgrader
	globalLimiter *GlobalConnectionLimiter
	ipLimiter     *IPConnectionLimiter
	startTime     time.Time
}

// NewServer wires the transport around the hub. redis may be nil when the
// cross-instance relay is disabled.
func NewServer(cfg *config.Config, hub *realtime.Hub, bus *events.Bus, clock clockwork.Clock, redis redisHealthChecker) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	srv := &Server{
		echo:   e,
		config: cfg,
		hub:    hub,
		bus:    bus,
		clock:  clock,
		redis:  redis,
		upgrader: websocket.Upgrader{
			CheckOrigin: newCheckOrigin(cfg.AppURL, cfg.IsDevelopment()),
		},
		globalLimiter: NewGlobalConnectionLimiter(cfg.MaxConnections),
		ipLimiter:     NewIPConnectionLimiter(cfg.MaxConnectionsPerIP),
		startTime:     clock.Now(),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the underlying router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
