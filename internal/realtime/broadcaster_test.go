package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEnvelope(t *testing.T, client *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := client.ReadMessage()
	require.NoError(t, err)

	var env map[string]any
	require.NoError(t, json.Unmarshal(msg, &env))
	return env
}

func assertNoMessage(t *testing.T, client *websocket.Conn) {
	t.Helper()
	require.NoError(t, client.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, msg, err := client.ReadMessage()
	require.Error(t, err, "expected no message, got %s", msg)
}

func TestBroadcaster_DeliversToMatchingTopicOnly(t *testing.T) {
	hub, dial := newTestHub(t)
	b := NewBroadcaster(hub, clockwork.NewRealClock())

	connA, clientA := dial()
	connB, clientB := dial()
	connC, clientC := dial()

	for _, conn := range []*websocket.Conn{connA, connB, connC} {
		_, err := hub.AddConnection(conn, "")
		require.NoError(t, err)
	}

	hub.Subscribe(connA, CategoryOee, "line-001")
	hub.Subscribe(connB, CategoryAndon, "line-001")
	hub.Subscribe(connC, CategoryOee, "line-002")

	b.BroadcastOeeUpdate("line-001", map[string]any{"availability": 0.91})

	env := readEnvelope(t, clientA)
	assert.Equal(t, "oee_update", env["type"])
	assert.Equal(t, "line-001", env["line_id"])
	assert.Equal(t, map[string]any{"availability": 0.91}, env["data"])
	assert.NotEmpty(t, env["timestamp"])

	assertNoMessage(t, clientB)
	assertNoMessage(t, clientC)
}

func TestBroadcaster_NoSubscribersIsNoop(t *testing.T) {
	hub, _ := newTestHub(t)
	b := NewBroadcaster(hub, clockwork.NewRealClock())

	// Must not panic and must not create a topic bucket.
	b.BroadcastLineStatusUpdate("line-001", map[string]any{"status": "running"})
	assert.Equal(t, 0, hub.Stats().TotalSubscriptions)
}

func TestBroadcaster_FailedSendEvictsConnection(t *testing.T) {
	hub, dial := newTestHub(t)
	b := NewBroadcaster(hub, clockwork.NewRealClock())

	connA, clientA := dial()
	connB, _ := dial()

	for _, conn := range []*websocket.Conn{connA, connB} {
		_, err := hub.AddConnection(conn, "")
		require.NoError(t, err)
		hub.Subscribe(conn, CategoryLine, "line-001")
	}

	// Kill B's write loop so its next enqueue fails deterministically.
	hub.mu.RLock()
	hub.conns[connB].writer.markDead()
	hub.mu.RUnlock()

	b.BroadcastLineStatusUpdate("line-001", map[string]any{"status": "stopped"})

	env := readEnvelope(t, clientA)
	assert.Equal(t, "line_status_update", env["type"])

	assert.Equal(t, 1, hub.ConnectionCount())
	assert.Equal(t, 1, hub.SubscriberCount(CategoryLine, "line-001"))
}

func TestBroadcaster_JobEventsWrapActionAndKeyByJob(t *testing.T) {
	hub, dial := newTestHub(t)
	b := NewBroadcaster(hub, clockwork.NewRealClock())

	conn, client := dial()
	_, err := hub.AddConnection(conn, "")
	require.NoError(t, err)
	hub.Subscribe(conn, CategoryJob, "job-42")

	b.BroadcastJobAssigned("job-42", map[string]any{"operator": "op-7"})

	env := readEnvelope(t, client)
	assert.Equal(t, "job_update", env["type"])
	assert.Equal(t, "job-42", env["job_id"])
	assert.NotContains(t, env, "line_id")

	data, ok := env["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "assigned", data["action"])
	assert.Equal(t, map[string]any{"operator": "op-7"}, data["job"])
}

func TestBroadcaster_DowntimePhases(t *testing.T) {
	hub, dial := newTestHub(t)
	b := NewBroadcaster(hub, clockwork.NewRealClock())

	conn, client := dial()
	_, err := hub.AddConnection(conn, "")
	require.NoError(t, err)
	hub.Subscribe(conn, CategoryDowntime, "line-001")

	b.BroadcastDowntimeStarted("line-001", map[string]any{"reason": "jam"})
	b.BroadcastDowntimeEnded("line-001", map[string]any{"duration_s": 120.0})

	env := readEnvelope(t, client)
	assert.Equal(t, "downtime_event", env["type"])
	assert.Equal(t, "started", env["data"].(map[string]any)["status"])

	env = readEnvelope(t, client)
	assert.Equal(t, "downtime_event", env["type"])
	assert.Equal(t, "ended", env["data"].(map[string]any)["status"])
}

func TestBroadcaster_EscalationKeyedByEscalationID(t *testing.T) {
	hub, dial := newTestHub(t)
	b := NewBroadcaster(hub, clockwork.NewRealClock())

	conn, client := dial()
	_, err := hub.AddConnection(conn, "")
	require.NoError(t, err)
	hub.Subscribe(conn, CategoryEscalation, "esc-9")

	b.BroadcastEscalationReminder("esc-9", map[string]any{"level": 2.0})

	env := readEnvelope(t, client)
	assert.Equal(t, "escalation_reminder", env["type"])
	assert.Equal(t, "esc-9", env["escalation_id"])
	assert.NotContains(t, env, "line_id")
}

func TestBroadcaster_SystemAlertIsGlobal(t *testing.T) {
	hub, dial := newTestHub(t)
	b := NewBroadcaster(hub, clockwork.NewRealClock())

	conn, client := dial()
	_, err := hub.AddConnection(conn, "")
	require.NoError(t, err)
	hub.Subscribe(conn, CategorySystem, TargetGlobal)

	b.BroadcastSystemAlert("warning", map[string]any{"message": "maintenance window"})

	env := readEnvelope(t, client)
	assert.Equal(t, "system_alert", env["type"])
	assert.NotContains(t, env, "line_id")
	assert.NotContains(t, env, "job_id")
	assert.NotContains(t, env, "escalation_id")

	data := env["data"].(map[string]any)
	assert.Equal(t, "warning", data["severity"])
	assert.Equal(t, map[string]any{"message": "maintenance window"}, data["alert"])
}

func TestBroadcaster_ChangeoverSharesLineTopic(t *testing.T) {
	hub, dial := newTestHub(t)
	b := NewBroadcaster(hub, clockwork.NewRealClock())

	conn, client := dial()
	_, err := hub.AddConnection(conn, "")
	require.NoError(t, err)
	hub.Subscribe(conn, CategoryLine, "line-001")

	b.BroadcastChangeoverEvent("line-001", map[string]any{"phase": "setup"})

	env := readEnvelope(t, client)
	assert.Equal(t, "changeover_event", env["type"])
	assert.Equal(t, "line-001", env["line_id"])
}

type recordingRelay struct {
	topics []Topic
	envs   []Envelope
	err    error
}

func (r *recordingRelay) Publish(_ context.Context, topic Topic, env Envelope) error {
	r.topics = append(r.topics, topic)
	r.envs = append(r.envs, env)
	return r.err
}

func TestBroadcaster_ForwardsToRelay(t *testing.T) {
	hub, _ := newTestHub(t)
	b := NewBroadcaster(hub, clockwork.NewRealClock())

	relay := &recordingRelay{}
	b.SetRelay(relay)

	b.BroadcastAndonEvent("line-003", map[string]any{"station": "S2"})

	require.Len(t, relay.topics, 1)
	assert.Equal(t, Topic{Category: CategoryAndon, Target: "line-003"}, relay.topics[0])
	assert.Equal(t, EventAndonEvent, relay.envs[0].Type)
	assert.Equal(t, "line-003", relay.envs[0].LineID)
}

func TestBroadcaster_RelayFailureDoesNotBlockLocalDelivery(t *testing.T) {
	hub, dial := newTestHub(t)
	b := NewBroadcaster(hub, clockwork.NewRealClock())
	b.SetRelay(&recordingRelay{err: errors.New("redis down")})

	conn, client := dial()
	_, err := hub.AddConnection(conn, "")
	require.NoError(t, err)
	hub.Subscribe(conn, CategoryLine, "line-001")

	b.BroadcastLineStatusUpdate("line-001", map[string]any{"status": "running"})

	env := readEnvelope(t, client)
	assert.Equal(t, "line_status_update", env["type"])
}
