package realtime

import "time"

// EventType is the canonical wire tag carried in an Envelope.
type EventType string

const (
	EventLineStatusUpdate   EventType = "line_status_update"
	EventProductionUpdate   EventType = "production_update"
	EventJobUpdate          EventType = "job_update"
	EventOeeUpdate          EventType = "oee_update"
	EventAndonEvent         EventType = "andon_event"
	EventAndonEscalation    EventType = "andon_escalation"
	EventEquipmentStatus    EventType = "equipment_status"
	EventEquipmentFault     EventType = "equipment_fault"
	EventQualityCheck       EventType = "quality_check"
	EventQualityAlert       EventType = "quality_alert"
	EventDowntimeEvent      EventType = "downtime_event"
	EventDowntimeStatistics EventType = "downtime_statistics"
	EventEscalationUpdate   EventType = "escalation_update"
	EventEscalationReminder EventType = "escalation_reminder"
	EventChangeoverEvent    EventType = "changeover_event"
	EventSystemAlert        EventType = "system_alert"
)

// Category is the event-category half of a topic key. Clients subscribe to
// a (category, target) pair; the dispatcher keys each event kind to exactly
// one category.
type Category string

const (
	CategoryLine       Category = "line"
	CategoryProduction Category = "production"
	CategoryJob        Category = "job"
	CategoryOee        Category = "oee"
	CategoryAndon      Category = "andon"
	CategoryEquipment  Category = "equipment"
	CategoryQuality    Category = "quality"
	CategoryDowntime   Category = "downtime"
	CategoryEscalation Category = "escalation"
	CategorySystem     Category = "system"
)

// TargetGlobal is the sentinel target for globally scoped topics such as
// system alerts.
const TargetGlobal = "*"

// Topic identifies one broadcast audience.
type Topic struct {
	Category Category
	Target   string
}

func (t Topic) String() string {
	return string(t.Category) + ":" + t.Target
}

// Envelope is the outbound wire unit. One instance is shared, never mutated,
// across all recipients of a single broadcast call. Exactly one of the
// topic-identifying fields is set, matching the event's keying rule; global
// events carry none.
type Envelope struct {
	Type         EventType `json:"type"`
	LineID       string    `json:"line_id,omitempty"`
	JobID        string    `json:"job_id,omitempty"`
	EscalationID string    `json:"escalation_id,omitempty"`
	Data         any       `json:"data"`
	Timestamp    time.Time `json:"timestamp"`
}

// newEnvelope builds the canonical envelope for an event on a topic. The
// topic-identifying field is derived from the topic category: job events are
// keyed by job id, escalation events by escalation id, system events carry no
// target, and everything else is keyed by line id.
func newEnvelope(eventType EventType, topic Topic, data any, now time.Time) Envelope {
	env := Envelope{
		Type:      eventType,
		Data:      data,
		Timestamp: now.UTC(),
	}
	switch topic.Category {
	case CategoryJob:
		env.JobID = topic.Target
	case CategoryEscalation:
		env.EscalationID = topic.Target
	case CategorySystem:
		// global scope, no target field
	default:
		env.LineID = topic.Target
	}
	return env
}
