package events

import "context"

// Domain event names. Hooks register against these; the canonical entry
// points below are the only sanctioned producers.
const (
	EventProductionDataUpdated         = "production_data_updated"
	EventLineStatusChanged             = "line_status_changed"
	EventJobAssigned                   = "job_assigned"
	EventJobStarted                    = "job_started"
	EventJobCompleted                  = "job_completed"
	EventJobCancelled                  = "job_cancelled"
	EventOeeCalculated                 = "oee_calculated"
	EventOeeThresholdExceeded          = "oee_threshold_exceeded"
	EventAndonEventCreated             = "andon_event_created"
	EventAndonEventUpdated             = "andon_event_updated"
	EventAndonEventResolved            = "andon_event_resolved"
	EventAndonEscalationTriggered      = "andon_escalation_triggered"
	EventEquipmentStatusChanged        = "equipment_status_changed"
	EventEquipmentFaultOccurred        = "equipment_fault_occurred"
	EventEquipmentFaultResolved        = "equipment_fault_resolved"
	EventEquipmentMaintenanceScheduled = "equipment_maintenance_scheduled"
	EventQualityCheckCompleted         = "quality_check_completed"
	EventQualityAlertTriggered         = "quality_alert_triggered"
	EventQualityThresholdExceeded      = "quality_threshold_exceeded"
	EventDowntimeStarted               = "downtime_started"
	EventDowntimeEnded                 = "downtime_ended"
	EventDowntimeStatisticsUpdated     = "downtime_statistics_updated"
	EventEscalationCreated             = "escalation_created"
	EventEscalationStatusUpdated       = "escalation_status_updated"
	EventEscalationReminderSent        = "escalation_reminder_sent"
	EventChangeoverStarted             = "changeover_started"
	EventChangeoverCompleted           = "changeover_completed"
	EventSystemAlertTriggered          = "system_alert_triggered"
	EventSystemHealthCheck             = "system_health_check"
)

// OnProductionDataUpdated fires when production counters change on a line.
func (b *Bus) OnProductionDataUpdated(ctx context.Context, lineID string, data map[string]any) {
	b.Trigger(ctx, EventProductionDataUpdated, data)
	b.broadcast(func() { b.dispatcher.BroadcastProductionUpdate(lineID, data) })
}

// OnLineStatusChanged fires when a production line changes running state.
func (b *Bus) OnLineStatusChanged(ctx context.Context, lineID string, data map[string]any) {
	b.Trigger(ctx, EventLineStatusChanged, data)
	b.broadcast(func() { b.dispatcher.BroadcastLineStatusUpdate(lineID, data) })
}

func (b *Bus) OnJobAssigned(ctx context.Context, jobID string, data map[string]any) {
	b.Trigger(ctx, EventJobAssigned, data)
	b.broadcast(func() { b.dispatcher.BroadcastJobAssigned(jobID, data) })
}

func (b *Bus) OnJobStarted(ctx context.Context, jobID string, data map[string]any) {
	b.Trigger(ctx, EventJobStarted, data)
	b.broadcast(func() { b.dispatcher.BroadcastJobStarted(jobID, data) })
}

func (b *Bus) OnJobCompleted(ctx context.Context, jobID string, data map[string]any) {
	b.Trigger(ctx, EventJobCompleted, data)
	b.broadcast(func() { b.dispatcher.BroadcastJobCompleted(jobID, data) })
}

func (b *Bus) OnJobCancelled(ctx context.Context, jobID string, data map[string]any) {
	b.Trigger(ctx, EventJobCancelled, data)
	b.broadcast(func() { b.dispatcher.BroadcastJobCancelled(jobID, data) })
}

// OnOeeCalculated fires after each OEE calculation cycle for a line.
func (b *Bus) OnOeeCalculated(ctx context.Context, lineID string, data map[string]any) {
	b.Trigger(ctx, EventOeeCalculated, data)
	b.broadcast(func() { b.dispatcher.BroadcastOeeUpdate(lineID, data) })
}

// OnOeeThresholdExceeded fires when OEE drops below the configured floor.
// On the wire this is intentionally a high-severity quality alert, not an
// oee_update, so alerting dashboards pick it up.
func (b *Bus) OnOeeThresholdExceeded(ctx context.Context, lineID string, data map[string]any) {
	b.Trigger(ctx, EventOeeThresholdExceeded, data)
	b.broadcast(func() { b.dispatcher.BroadcastQualityAlert(lineID, "high", data) })
}

func (b *Bus) OnAndonEventCreated(ctx context.Context, lineID string, data map[string]any) {
	b.Trigger(ctx, EventAndonEventCreated, data)
	b.broadcast(func() { b.dispatcher.BroadcastAndonEvent(lineID, data) })
}

func (b *Bus) OnAndonEventUpdated(ctx context.Context, lineID string, data map[string]any) {
	b.Trigger(ctx, EventAndonEventUpdated, data)
	b.broadcast(func() { b.dispatcher.BroadcastAndonEvent(lineID, data) })
}

func (b *Bus) OnAndonEventResolved(ctx context.Context, lineID string, data map[string]any) {
	b.Trigger(ctx, EventAndonEventResolved, data)
	b.broadcast(func() { b.dispatcher.BroadcastAndonEvent(lineID, data) })
}

func (b *Bus) OnAndonEscalationTriggered(ctx context.Context, lineID string, data map[string]any) {
	b.Trigger(ctx, EventAndonEscalationTriggered, data)
	b.broadcast(func() { b.dispatcher.BroadcastAndonEscalation(lineID, data) })
}

func (b *Bus) OnEquipmentStatusChanged(ctx context.Context, lineID string, data map[string]any) {
	b.Trigger(ctx, EventEquipmentStatusChanged, data)
	b.broadcast(func() { b.dispatcher.BroadcastEquipmentStatus(lineID, data) })
}

func (b *Bus) OnEquipmentFaultOccurred(ctx context.Context, lineID string, data map[string]any) {
	b.Trigger(ctx, EventEquipmentFaultOccurred, data)
	b.broadcast(func() { b.dispatcher.BroadcastEquipmentFault(lineID, data) })
}

func (b *Bus) OnEquipmentFaultResolved(ctx context.Context, lineID string, data map[string]any) {
	b.Trigger(ctx, EventEquipmentFaultResolved, data)
	b.broadcast(func() { b.dispatcher.BroadcastEquipmentFault(lineID, data) })
}

// OnEquipmentMaintenanceScheduled is broadcast on the equipment status topic;
// scheduled maintenance is a status change from the dashboard's perspective.
func (b *Bus) OnEquipmentMaintenanceScheduled(ctx context.Context, lineID string, data map[string]any) {
	b.Trigger(ctx, EventEquipmentMaintenanceScheduled, data)
	b.broadcast(func() { b.dispatcher.BroadcastEquipmentStatus(lineID, data) })
}

func (b *Bus) OnQualityCheckCompleted(ctx context.Context, lineID string, data map[string]any) {
	b.Trigger(ctx, EventQualityCheckCompleted, data)
	b.broadcast(func() { b.dispatcher.BroadcastQualityCheck(lineID, data) })
}

func (b *Bus) OnQualityAlertTriggered(ctx context.Context, lineID string, data map[string]any) {
	b.Trigger(ctx, EventQualityAlertTriggered, data)
	b.broadcast(func() { b.dispatcher.BroadcastQualityAlert(lineID, "medium", data) })
}

func (b *Bus) OnQualityThresholdExceeded(ctx context.Context, lineID string, data map[string]any) {
	b.Trigger(ctx, EventQualityThresholdExceeded, data)
	b.broadcast(func() { b.dispatcher.BroadcastQualityAlert(lineID, "high", data) })
}

func (b *Bus) OnDowntimeStarted(ctx context.Context, lineID string, data map[string]any) {
	b.Trigger(ctx, EventDowntimeStarted, data)
	b.broadcast(func() { b.dispatcher.BroadcastDowntimeStarted(lineID, data) })
}

func (b *Bus) OnDowntimeEnded(ctx context.Context, lineID string, data map[string]any) {
	b.Trigger(ctx, EventDowntimeEnded, data)
	b.broadcast(func() { b.dispatcher.BroadcastDowntimeEnded(lineID, data) })
}

func (b *Bus) OnDowntimeStatisticsUpdated(ctx context.Context, lineID string, data map[string]any) {
	b.Trigger(ctx, EventDowntimeStatisticsUpdated, data)
	b.broadcast(func() { b.dispatcher.BroadcastDowntimeStatistics(lineID, data) })
}

func (b *Bus) OnEscalationCreated(ctx context.Context, escalationID string, data map[string]any) {
	b.Trigger(ctx, EventEscalationCreated, data)
	b.broadcast(func() { b.dispatcher.BroadcastEscalationUpdate(escalationID, data) })
}

func (b *Bus) OnEscalationStatusUpdated(ctx context.Context, escalationID string, data map[string]any) {
	b.Trigger(ctx, EventEscalationStatusUpdated, data)
	b.broadcast(func() { b.dispatcher.BroadcastEscalationUpdate(escalationID, data) })
}

func (b *Bus) OnEscalationReminderSent(ctx context.Context, escalationID string, data map[string]any) {
	b.Trigger(ctx, EventEscalationReminderSent, data)
	b.broadcast(func() { b.dispatcher.BroadcastEscalationReminder(escalationID, data) })
}

func (b *Bus) OnChangeoverStarted(ctx context.Context, lineID string, data map[string]any) {
	b.Trigger(ctx, EventChangeoverStarted, data)
	b.broadcast(func() { b.dispatcher.BroadcastChangeoverEvent(lineID, data) })
}

func (b *Bus) OnChangeoverCompleted(ctx context.Context, lineID string, data map[string]any) {
	b.Trigger(ctx, EventChangeoverCompleted, data)
	b.broadcast(func() { b.dispatcher.BroadcastChangeoverEvent(lineID, data) })
}

func (b *Bus) OnSystemAlertTriggered(ctx context.Context, data map[string]any) {
	b.Trigger(ctx, EventSystemAlertTriggered, data)
	b.broadcast(func() { b.dispatcher.BroadcastSystemAlert("warning", data) })
}

// OnSystemHealthCheck is broadcast as an informational system alert rather
// than a dedicated health tag; dashboards render it in the alert feed.
func (b *Bus) OnSystemHealthCheck(ctx context.Context, data map[string]any) {
	b.Trigger(ctx, EventSystemHealthCheck, data)
	b.broadcast(func() { b.dispatcher.BroadcastSystemAlert("info", data) })
}
