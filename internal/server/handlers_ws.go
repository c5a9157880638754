package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/Dashboard4-0/MS5-App-sub003/internal/metrics"
	"github.com/Dashboard4-0/MS5-App-sub003/internal/realtime"
)

// A client is dropped after this many consecutive rate-limited frames.
const maxRateViolations = 20

// clientFrame is the inbound message format.
type clientFrame struct {
	Type             string `json:"type"`
	SubscriptionType string `json:"subscription_type"`
	Target           string `json:"target"`
}

type ackFrame struct {
	Type             string `json:"type"`
	SubscriptionType string `json:"subscription_type"`
	Target           string `json:"target"`
}

type heartbeatFrame struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// validCategories gates the subscription_type field of client frames.
var validCategories = map[string]realtime.Category{
	"line":       realtime.CategoryLine,
	"production": realtime.CategoryProduction,
	"job":        realtime.CategoryJob,
	"oee":        realtime.CategoryOee,
	"andon":      realtime.CategoryAndon,
	"equipment":  realtime.CategoryEquipment,
	"quality":    realtime.CategoryQuality,
	"downtime":   realtime.CategoryDowntime,
	"escalation": realtime.CategoryEscalation,
	"system":     realtime.CategorySystem,
}

func (s *Server) handleWebSocket(c echo.Context) error {
	ip := c.RealIP()

	if !s.globalLimiter.Acquire() {
		metrics.ConnectionsRejectedTotal.WithLabelValues("global_limit").Inc()
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "connection limit reached"})
	}
	defer s.globalLimiter.Release()

	if !s.ipLimiter.Acquire(ip) {
		metrics.ConnectionsRejectedTotal.WithLabelValues("ip_limit").Inc()
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many connections from this address"})
	}
	defer s.ipLimiter.Release(ip)

	userID := c.Request().Header.Get(userIDHeader)

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		metrics.ConnectionsRejectedTotal.WithLabelValues("upgrade_failed").Inc()
		slog.Warn("WebSocket upgrade failed", "remote_addr", ip, "error", err)
		return nil
	}

	connectionID, err := s.hub.AddConnection(conn, userID)
	if err != nil {
		slog.Error("Failed to register connection", "remote_addr", ip, "error", err)
		_ = conn.Close()
		return nil
	}

	log := slog.With("connection_id", connectionID.String(), "user_id", userID)
	log.Debug("Client connected")

	s.readLoop(conn, log)

	// Read loop exited: client closed, transport error, or abuse cutoff.
	s.hub.RemoveConnection(conn)
	log.Debug("Client disconnected")
	return nil
}

// readLoop processes inbound frames until the connection dies. All replies
// go through the hub so writes serialize with broadcast traffic.
func (s *Server) readLoop(conn *websocket.Conn, log *slog.Logger) {
	limiter := rate.NewLimiter(rate.Limit(s.config.ClientFrameRate), s.config.ClientFrameBurst)
	violations := 0

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		if !limiter.Allow() {
			violations++
			if violations >= maxRateViolations {
				log.Warn("Dropping connection: sustained frame rate abuse")
				return
			}
			s.sendError(conn, "rate limit exceeded")
			continue
		}
		violations = 0

		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			metrics.InvalidFramesTotal.Inc()
			s.sendError(conn, "invalid message format")
			continue
		}

		switch frame.Type {
		case "subscribe":
			s.handleSubscribe(conn, frame, log)
		case "unsubscribe":
			s.handleUnsubscribe(conn, frame, log)
		case "heartbeat":
			metrics.ClientFramesTotal.WithLabelValues("heartbeat").Inc()
			s.send(conn, heartbeatFrame{Type: "heartbeat_response", Timestamp: s.clock.Now().UTC()})
		default:
			metrics.InvalidFramesTotal.Inc()
			s.sendError(conn, "unknown message type: "+frame.Type)
		}
	}
}

func (s *Server) handleSubscribe(conn *websocket.Conn, frame clientFrame, log *slog.Logger) {
	metrics.ClientFramesTotal.WithLabelValues("subscribe").Inc()

	category, target, ok := s.resolveTopic(conn, frame)
	if !ok {
		return
	}

	// The membership edit happens before the ack is enqueued, so any
	// broadcast snapshotted after this point already includes the client.
	s.hub.Subscribe(conn, category, target)
	s.send(conn, ackFrame{
		Type:             "subscription_confirmed",
		SubscriptionType: frame.SubscriptionType,
		Target:           target,
	})
	log.Debug("Subscription confirmed", "subscription_type", frame.SubscriptionType, "target", target)
}

func (s *Server) handleUnsubscribe(conn *websocket.Conn, frame clientFrame, log *slog.Logger) {
	metrics.ClientFramesTotal.WithLabelValues("unsubscribe").Inc()

	category, target, ok := s.resolveTopic(conn, frame)
	if !ok {
		return
	}

	s.hub.Unsubscribe(conn, category, target)
	s.send(conn, ackFrame{
		Type:             "unsubscription_confirmed",
		SubscriptionType: frame.SubscriptionType,
		Target:           target,
	})
	log.Debug("Unsubscription confirmed", "subscription_type", frame.SubscriptionType, "target", target)
}

// resolveTopic validates subscription_type and target. System subscriptions
// default to the global sentinel target; everything else requires an
// explicit target id.
func (s *Server) resolveTopic(conn *websocket.Conn, frame clientFrame) (realtime.Category, string, bool) {
	category, ok := validCategories[frame.SubscriptionType]
	if !ok {
		metrics.InvalidFramesTotal.Inc()
		s.sendError(conn, "unknown subscription type: "+frame.SubscriptionType)
		return "", "", false
	}

	target := frame.Target
	if target == "" {
		if category != realtime.CategorySystem {
			metrics.InvalidFramesTotal.Inc()
			s.sendError(conn, "target is required for subscription type: "+frame.SubscriptionType)
			return "", "", false
		}
		target = realtime.TargetGlobal
	}
	return category, target, true
}

func (s *Server) send(conn *websocket.Conn, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal frame", "error", err)
		return
	}
	if err := s.hub.Send(conn, data); err != nil {
		slog.Debug("Failed to enqueue frame", "error", err)
	}
}

func (s *Server) sendError(conn *websocket.Conn, message string) {
	s.send(conn, errorFrame{Type: "error", Message: message})
}
