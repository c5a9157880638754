package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDispatcher records every dispatch call by method name and arguments.
type fakeDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
}

type dispatchCall struct {
	method   string
	target   string
	severity string
	data     any
}

func (f *fakeDispatcher) record(method, target, severity string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, dispatchCall{method: method, target: target, severity: severity, data: data})
}

func (f *fakeDispatcher) recorded() []dispatchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dispatchCall(nil), f.calls...)
}

func (f *fakeDispatcher) BroadcastLineStatusUpdate(lineID string, data any) {
	f.record("BroadcastLineStatusUpdate", lineID, "", data)
}
func (f *fakeDispatcher) BroadcastProductionUpdate(lineID string, data any) {
	f.record("BroadcastProductionUpdate", lineID, "", data)
}
func (f *fakeDispatcher) BroadcastJobAssigned(jobID string, data any) {
	f.record("BroadcastJobAssigned", jobID, "", data)
}
func (f *fakeDispatcher) BroadcastJobStarted(jobID string, data any) {
	f.record("BroadcastJobStarted", jobID, "", data)
}
func (f *fakeDispatcher) BroadcastJobCompleted(jobID string, data any) {
	f.record("BroadcastJobCompleted", jobID, "", data)
}
func (f *fakeDispatcher) BroadcastJobCancelled(jobID string, data any) {
	f.record("BroadcastJobCancelled", jobID, "", data)
}
func (f *fakeDispatcher) BroadcastOeeUpdate(lineID string, data any) {
	f.record("BroadcastOeeUpdate", lineID, "", data)
}
func (f *fakeDispatcher) BroadcastAndonEvent(lineID string, data any) {
	f.record("BroadcastAndonEvent", lineID, "", data)
}
func (f *fakeDispatcher) BroadcastAndonEscalation(lineID string, data any) {
	f.record("BroadcastAndonEscalation", lineID, "", data)
}
func (f *fakeDispatcher) BroadcastEquipmentStatus(lineID string, data any) {
	f.record("BroadcastEquipmentStatus", lineID, "", data)
}
func (f *fakeDispatcher) BroadcastEquipmentFault(lineID string, data any) {
	f.record("BroadcastEquipmentFault", lineID, "", data)
}
func (f *fakeDispatcher) BroadcastQualityCheck(lineID string, data any) {
	f.record("BroadcastQualityCheck", lineID, "", data)
}
func (f *fakeDispatcher) BroadcastQualityAlert(lineID, severity string, data any) {
	f.record("BroadcastQualityAlert", lineID, severity, data)
}
func (f *fakeDispatcher) BroadcastDowntimeStarted(lineID string, data any) {
	f.record("BroadcastDowntimeStarted", lineID, "", data)
}
func (f *fakeDispatcher) BroadcastDowntimeEnded(lineID string, data any) {
	f.record("BroadcastDowntimeEnded", lineID, "", data)
}
func (f *fakeDispatcher) BroadcastDowntimeStatistics(lineID string, data any) {
	f.record("BroadcastDowntimeStatistics", lineID, "", data)
}
func (f *fakeDispatcher) BroadcastEscalationUpdate(escalationID string, data any) {
	f.record("BroadcastEscalationUpdate", escalationID, "", data)
}
func (f *fakeDispatcher) BroadcastEscalationReminder(escalationID string, data any) {
	f.record("BroadcastEscalationReminder", escalationID, "", data)
}
func (f *fakeDispatcher) BroadcastChangeoverEvent(lineID string, data any) {
	f.record("BroadcastChangeoverEvent", lineID, "", data)
}
func (f *fakeDispatcher) BroadcastSystemAlert(severity string, data any) {
	f.record("BroadcastSystemAlert", "", severity, data)
}

func TestBus_HooksRunInRegistrationOrder(t *testing.T) {
	bus := NewBus(&fakeDispatcher{})

	var order []int
	bus.RegisterHook(EventLineStatusChanged, func(ctx context.Context, data map[string]any) error {
		order = append(order, 1)
		return nil
	})
	bus.RegisterHook(EventLineStatusChanged, func(ctx context.Context, data map[string]any) error {
		order = append(order, 2)
		return nil
	})
	bus.RegisterHook(EventLineStatusChanged, func(ctx context.Context, data map[string]any) error {
		order = append(order, 3)
		return nil
	})

	bus.Trigger(context.Background(), EventLineStatusChanged, nil)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestBus_HookErrorDoesNotStopLaterHooks(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	bus := NewBus(dispatcher)

	var secondRan bool
	bus.RegisterHook(EventOeeCalculated, func(ctx context.Context, data map[string]any) error {
		return errors.New("hook broke")
	})
	bus.RegisterHook(EventOeeCalculated, func(ctx context.Context, data map[string]any) error {
		secondRan = true
		return nil
	})

	bus.OnOeeCalculated(context.Background(), "line-001", map[string]any{"oee": 0.8})

	assert.True(t, secondRan)
	calls := dispatcher.recorded()
	require.Len(t, calls, 1, "canonical broadcast must still happen")
	assert.Equal(t, "BroadcastOeeUpdate", calls[0].method)
}

func TestBus_HookPanicIsRecovered(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	bus := NewBus(dispatcher)

	var secondRan bool
	bus.RegisterHook(EventAndonEventCreated, func(ctx context.Context, data map[string]any) error {
		panic("boom")
	})
	bus.RegisterHook(EventAndonEventCreated, func(ctx context.Context, data map[string]any) error {
		secondRan = true
		return nil
	})

	require.NotPanics(t, func() {
		bus.OnAndonEventCreated(context.Background(), "line-001", nil)
	})
	assert.True(t, secondRan)
	assert.Len(t, dispatcher.recorded(), 1)
}

func TestBus_RemoveHook(t *testing.T) {
	bus := NewBus(&fakeDispatcher{})

	var firstCalls, secondCalls int
	first := func(ctx context.Context, data map[string]any) error {
		firstCalls++
		return nil
	}
	second := func(ctx context.Context, data map[string]any) error {
		secondCalls++
		return nil
	}

	bus.RegisterHook(EventJobStarted, first)
	bus.RegisterHook(EventJobStarted, second)
	require.Equal(t, 2, bus.HookCount(EventJobStarted))

	bus.RemoveHook(EventJobStarted, first)
	assert.Equal(t, 1, bus.HookCount(EventJobStarted))

	bus.Trigger(context.Background(), EventJobStarted, nil)
	assert.Equal(t, 0, firstCalls)
	assert.Equal(t, 1, secondCalls)
}

func TestBus_RemoveHook_UnknownIsNoop(t *testing.T) {
	bus := NewBus(&fakeDispatcher{})

	registered := func(ctx context.Context, data map[string]any) error { return nil }
	stranger := func(ctx context.Context, data map[string]any) error { return nil }

	bus.RegisterHook(EventJobCompleted, registered)
	bus.RemoveHook(EventJobCompleted, stranger)
	bus.RemoveHook("never_registered_event", stranger)

	assert.Equal(t, 1, bus.HookCount(EventJobCompleted))
}

func TestBus_DisableBroadcastingSuppressesDispatchOnly(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	bus := NewBus(dispatcher)

	var hookCalls int
	bus.RegisterHook(EventProductionDataUpdated, func(ctx context.Context, data map[string]any) error {
		hookCalls++
		return nil
	})

	require.True(t, bus.BroadcastingEnabled())
	bus.DisableBroadcasting()
	require.False(t, bus.BroadcastingEnabled())

	bus.OnProductionDataUpdated(context.Background(), "line-001", map[string]any{"units": 10.0})
	bus.OnProductionDataUpdated(context.Background(), "line-001", map[string]any{"units": 11.0})

	assert.Equal(t, 2, hookCalls, "hooks keep running while broadcasting is disabled")
	assert.Empty(t, dispatcher.recorded())

	bus.EnableBroadcasting()
	bus.OnProductionDataUpdated(context.Background(), "line-001", map[string]any{"units": 12.0})

	calls := dispatcher.recorded()
	require.Len(t, calls, 1, "suppressed events are dropped, not queued")
	assert.Equal(t, "BroadcastProductionUpdate", calls[0].method)
	assert.Equal(t, "line-001", calls[0].target)
}

func TestBus_TriggerWithNoHooksIsNoop(t *testing.T) {
	bus := NewBus(&fakeDispatcher{})
	require.NotPanics(t, func() {
		bus.Trigger(context.Background(), EventSystemHealthCheck, nil)
	})
}

func TestBus_ConcurrentRegisterAndTrigger(t *testing.T) {
	bus := NewBus(&fakeDispatcher{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			bus.RegisterHook(EventDowntimeStarted, func(ctx context.Context, data map[string]any) error { return nil })
		}()
		go func() {
			defer wg.Done()
			bus.Trigger(context.Background(), EventDowntimeStarted, nil)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, bus.HookCount(EventDowntimeStarted))
}
