package realtime

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientWriter_EnqueueAndDeliver(t *testing.T) {
	_, dial := newTestHub(t)
	conn, client := dial()

	cw := newClientWriter(conn, clockwork.NewRealClock())
	t.Cleanup(cw.stop)

	require.NoError(t, cw.enqueue([]byte(`{"n":1}`)))

	require.NoError(t, client.SetReadDeadline(time.Now().Add(time.Second)))
	_, msg, err := client.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(msg))
}

func TestClientWriter_EnqueueFailsAfterDeath(t *testing.T) {
	_, dial := newTestHub(t)
	conn, _ := dial()

	cw := newClientWriter(conn, clockwork.NewRealClock())
	t.Cleanup(cw.stop)

	cw.markDead()

	err := cw.enqueue([]byte(`{}`))
	assert.ErrorIs(t, err, errWriterStopped)
}

func TestClientWriter_StopIsIdempotent(t *testing.T) {
	_, dial := newTestHub(t)
	conn, _ := dial()

	cw := newClientWriter(conn, clockwork.NewRealClock())

	cw.stop()
	cw.stop()
	cw.stopGraceful("late")

	assert.ErrorIs(t, cw.enqueue([]byte(`{}`)), errWriterStopped)
}

func TestClientWriter_GracefulStopSendsCloseFrame(t *testing.T) {
	_, dial := newTestHub(t)
	conn, client := dial()

	cw := newClientWriter(conn, clockwork.NewRealClock())
	cw.stopGraceful("shutting down")

	require.NoError(t, client.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := client.ReadMessage()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shutting down")
}
