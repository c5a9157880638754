package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Dashboard4-0/MS5-App-sub003/internal/metrics"
)

const relayPublishTimeout = 2 * time.Second

// RelayPublisher forwards envelopes to other service instances. Implemented
// by the redis relay; nil disables cross-instance fan-out.
type RelayPublisher interface {
	Publish(ctx context.Context, topic Topic, env Envelope) error
}

// Broadcaster builds canonical envelopes and fans them out to the current
// subscribers of a topic. The typed Broadcast* helpers fix the wire tag, the
// topic keying rule, and the envelope shape for every event kind exactly
// once, so domain services never touch wire formats.
type Broadcaster struct {
	hub   *Hub
	clock clockwork.Clock
	relay RelayPublisher
}

func NewBroadcaster(hub *Hub, clock clockwork.Clock) *Broadcaster {
	return &Broadcaster{hub: hub, clock: clock}
}

// SetRelay attaches the cross-instance relay. Call before serving traffic.
func (b *Broadcaster) SetRelay(relay RelayPublisher) {
	b.relay = relay
}

// BroadcastToTopic sends one envelope to every current subscriber of
// (category, target) and forwards it to the relay when one is attached.
func (b *Broadcaster) BroadcastToTopic(category Category, target string, eventType EventType, data any) {
	topic := Topic{Category: category, Target: target}
	env := newEnvelope(eventType, topic, data, b.clock.Now())

	b.DeliverLocal(topic, env)

	if b.relay != nil {
		ctx, cancel := context.WithTimeout(context.Background(), relayPublishTimeout)
		defer cancel()
		if err := b.relay.Publish(ctx, topic, env); err != nil {
			metrics.RelayPublishedTotal.WithLabelValues("error").Inc()
			slog.Warn("Relay publish failed", "topic", topic.String(), "error", err)
		} else {
			metrics.RelayPublishedTotal.WithLabelValues("ok").Inc()
		}
	}
}

// DeliverLocal fans an envelope out to this instance's subscribers only.
// The subscriber set is one consistent snapshot; sends happen outside the
// hub lock, and connections whose send failed are pruned after the pass so
// the snapshot is never mutated mid-iteration.
func (b *Broadcaster) DeliverLocal(topic Topic, env Envelope) {
	start := b.clock.Now()
	metrics.BroadcastsTotal.WithLabelValues(string(env.Type)).Inc()

	data, err := json.Marshal(env)
	if err != nil {
		slog.Error("Failed to marshal envelope", "type", string(env.Type), "error", err)
		return
	}

	subs := b.hub.snapshot(topic)
	var failed []subscriber
	for _, sub := range subs {
		if err := sub.writer.enqueue(data); err != nil {
			failed = append(failed, sub)
			continue
		}
		metrics.EnvelopesSentTotal.Inc()
	}

	for _, sub := range failed {
		metrics.SendFailuresTotal.Inc()
		slog.Warn("Send failed, removing connection",
			"connection_id", sub.id.String(),
			"topic", topic.String(),
			"event_type", string(env.Type),
		)
		b.hub.RemoveConnection(sub.conn)
	}

	metrics.BroadcastDuration.Observe(b.clock.Since(start).Seconds())
}

// --- Typed per-event-kind helpers ---

// BroadcastLineStatusUpdate notifies subscribers of a line's status topic.
func (b *Broadcaster) BroadcastLineStatusUpdate(lineID string, data any) {
	b.BroadcastToTopic(CategoryLine, lineID, EventLineStatusUpdate, data)
}

// BroadcastProductionUpdate pushes production counters for a line.
func (b *Broadcaster) BroadcastProductionUpdate(lineID string, data any) {
	b.BroadcastToTopic(CategoryProduction, lineID, EventProductionUpdate, data)
}

// broadcastJobUpdate is the shared shape for all job lifecycle events: the
// payload is wrapped with the lifecycle action under one job_update tag.
func (b *Broadcaster) broadcastJobUpdate(jobID, action string, data any) {
	wrapped := map[string]any{"action": action, "job": data}
	b.BroadcastToTopic(CategoryJob, jobID, EventJobUpdate, wrapped)
}

func (b *Broadcaster) BroadcastJobAssigned(jobID string, data any) {
	b.broadcastJobUpdate(jobID, "assigned", data)
}

func (b *Broadcaster) BroadcastJobStarted(jobID string, data any) {
	b.broadcastJobUpdate(jobID, "started", data)
}

func (b *Broadcaster) BroadcastJobCompleted(jobID string, data any) {
	b.broadcastJobUpdate(jobID, "completed", data)
}

func (b *Broadcaster) BroadcastJobCancelled(jobID string, data any) {
	b.broadcastJobUpdate(jobID, "cancelled", data)
}

// BroadcastOeeUpdate pushes calculated OEE figures for a line.
func (b *Broadcaster) BroadcastOeeUpdate(lineID string, data any) {
	b.BroadcastToTopic(CategoryOee, lineID, EventOeeUpdate, data)
}

// BroadcastAndonEvent pushes andon board changes for a line.
func (b *Broadcaster) BroadcastAndonEvent(lineID string, data any) {
	b.BroadcastToTopic(CategoryAndon, lineID, EventAndonEvent, data)
}

// BroadcastAndonEscalation pushes an andon escalation on the line's andon topic.
func (b *Broadcaster) BroadcastAndonEscalation(lineID string, data any) {
	b.BroadcastToTopic(CategoryAndon, lineID, EventAndonEscalation, data)
}

func (b *Broadcaster) BroadcastEquipmentStatus(lineID string, data any) {
	b.BroadcastToTopic(CategoryEquipment, lineID, EventEquipmentStatus, data)
}

func (b *Broadcaster) BroadcastEquipmentFault(lineID string, data any) {
	b.BroadcastToTopic(CategoryEquipment, lineID, EventEquipmentFault, data)
}

func (b *Broadcaster) BroadcastQualityCheck(lineID string, data any) {
	b.BroadcastToTopic(CategoryQuality, lineID, EventQualityCheck, data)
}

// BroadcastQualityAlert carries an explicit severity so remapped events
// (OEE threshold breaches) can signal high priority on the quality topic.
func (b *Broadcaster) BroadcastQualityAlert(lineID, severity string, data any) {
	wrapped := map[string]any{"severity": severity, "alert": data}
	b.BroadcastToTopic(CategoryQuality, lineID, EventQualityAlert, wrapped)
}

// broadcastDowntimeEvent shares one downtime_event tag for start and end,
// with the phase injected alongside the payload.
func (b *Broadcaster) broadcastDowntimeEvent(lineID, status string, data any) {
	wrapped := map[string]any{"status": status, "downtime": data}
	b.BroadcastToTopic(CategoryDowntime, lineID, EventDowntimeEvent, wrapped)
}

func (b *Broadcaster) BroadcastDowntimeStarted(lineID string, data any) {
	b.broadcastDowntimeEvent(lineID, "started", data)
}

func (b *Broadcaster) BroadcastDowntimeEnded(lineID string, data any) {
	b.broadcastDowntimeEvent(lineID, "ended", data)
}

func (b *Broadcaster) BroadcastDowntimeStatistics(lineID string, data any) {
	b.BroadcastToTopic(CategoryDowntime, lineID, EventDowntimeStatistics, data)
}

// BroadcastEscalationUpdate covers escalation creation and status changes,
// keyed by escalation id.
func (b *Broadcaster) BroadcastEscalationUpdate(escalationID string, data any) {
	b.BroadcastToTopic(CategoryEscalation, escalationID, EventEscalationUpdate, data)
}

func (b *Broadcaster) BroadcastEscalationReminder(escalationID string, data any) {
	b.BroadcastToTopic(CategoryEscalation, escalationID, EventEscalationReminder, data)
}

// BroadcastChangeoverEvent pushes product changeover progress for a line.
func (b *Broadcaster) BroadcastChangeoverEvent(lineID string, data any) {
	b.BroadcastToTopic(CategoryLine, lineID, EventChangeoverEvent, data)
}

// BroadcastSystemAlert pushes a globally scoped alert. Severity mirrors the
// quality alert shape so dashboards render both uniformly.
func (b *Broadcaster) BroadcastSystemAlert(severity string, data any) {
	wrapped := map[string]any{"severity": severity, "alert": data}
	b.BroadcastToTopic(CategorySystem, TargetGlobal, EventSystemAlert, wrapped)
}
