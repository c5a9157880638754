package events

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/Dashboard4-0/MS5-App-sub003/internal/metrics"
)

// Hook is a side-effect callback bound to a domain event name. Hooks run in
// registration order on the caller's goroutine; blocking hooks delay later
// hooks but never the caller's correctness.
type Hook func(ctx context.Context, data map[string]any) error

// Dispatcher is the slice of the broadcast dispatcher the bus needs. The
// canonical tag/topic mapping per event kind lives behind these methods.
type Dispatcher interface {
	BroadcastLineStatusUpdate(lineID string, data any)
	BroadcastProductionUpdate(lineID string, data any)
	BroadcastJobAssigned(jobID string, data any)
	BroadcastJobStarted(jobID string, data any)
	BroadcastJobCompleted(jobID string, data any)
	BroadcastJobCancelled(jobID string, data any)
	BroadcastOeeUpdate(lineID string, data any)
	BroadcastAndonEvent(lineID string, data any)
	BroadcastAndonEscalation(lineID string, data any)
	BroadcastEquipmentStatus(lineID string, data any)
	BroadcastEquipmentFault(lineID string, data any)
	BroadcastQualityCheck(lineID string, data any)
	BroadcastQualityAlert(lineID, severity string, data any)
	BroadcastDowntimeStarted(lineID string, data any)
	BroadcastDowntimeEnded(lineID string, data any)
	BroadcastDowntimeStatistics(lineID string, data any)
	BroadcastEscalationUpdate(escalationID string, data any)
	BroadcastEscalationReminder(escalationID string, data any)
	BroadcastChangeoverEvent(lineID string, data any)
	BroadcastSystemAlert(severity string, data any)
}

// Bus fans domain events out to registered hooks and to the dispatcher.
// One instance is constructed at startup and passed into domain-service
// constructors; there is no package-level singleton.
type Bus struct {
	mu         sync.RWMutex
	hooks      map[string][]Hook
	enabled    atomic.Bool
	dispatcher Dispatcher
}

func NewBus(dispatcher Dispatcher) *Bus {
	b := &Bus{
		hooks:      make(map[string][]Hook),
		dispatcher: dispatcher,
	}
	b.enabled.Store(true)
	return b
}

// RegisterHook appends a hook to the ordered list for an event name.
func (b *Bus) RegisterHook(event string, hook Hook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hooks[event] = append(b.hooks[event], hook)
}

// RemoveHook removes the first registration of the hook for an event name.
// Go funcs are not comparable, so identity is the function pointer. Removing
// a hook that was never registered is a no-op.
func (b *Bus) RemoveHook(event string, hook Hook) {
	target := reflect.ValueOf(hook).Pointer()

	b.mu.Lock()
	defer b.mu.Unlock()
	hooks := b.hooks[event]
	for i, h := range hooks {
		if reflect.ValueOf(h).Pointer() == target {
			b.hooks[event] = append(hooks[:i:i], hooks[i+1:]...)
			if len(b.hooks[event]) == 0 {
				delete(b.hooks, event)
			}
			return
		}
	}
}

// HookCount returns the number of hooks registered for an event name.
func (b *Bus) HookCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.hooks[event])
}

// EnableBroadcasting turns canonical wire sends back on.
func (b *Bus) EnableBroadcasting() {
	b.enabled.Store(true)
	slog.Info("Broadcasting enabled")
}

// DisableBroadcasting suppresses canonical wire sends. Hooks keep running.
func (b *Bus) DisableBroadcasting() {
	b.enabled.Store(false)
	slog.Info("Broadcasting disabled")
}

// BroadcastingEnabled reports the current value of the global flag.
func (b *Bus) BroadcastingEnabled() bool {
	return b.enabled.Load()
}

// Trigger invokes every hook registered for the event in registration order.
// Hook failures (error or panic) are logged and skipped; the remaining hooks
// still run.
func (b *Bus) Trigger(ctx context.Context, event string, data map[string]any) {
	b.mu.RLock()
	hooks := make([]Hook, len(b.hooks[event]))
	copy(hooks, b.hooks[event])
	b.mu.RUnlock()

	for i, hook := range hooks {
		b.invokeHook(ctx, event, i, hook, data)
	}
}

func (b *Bus) invokeHook(ctx context.Context, event string, index int, hook Hook, data map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			metrics.HookInvocationsTotal.WithLabelValues(event, "panic").Inc()
			slog.Error("Hook panicked", "event", event, "hook_index", index, "panic", fmt.Sprintf("%v", r))
		}
	}()

	if err := hook(ctx, data); err != nil {
		metrics.HookInvocationsTotal.WithLabelValues(event, "error").Inc()
		slog.Error("Hook failed", "event", event, "hook_index", index, "error", err)
		return
	}
	metrics.HookInvocationsTotal.WithLabelValues(event, "ok").Inc()
}

// broadcast runs fn unless broadcasting is globally disabled. The flag is a
// single atomic read; no lock is held around dispatch.
func (b *Bus) broadcast(fn func()) {
	if !b.enabled.Load() {
		metrics.BroadcastsSuppressedTotal.Inc()
		return
	}
	fn()
}
