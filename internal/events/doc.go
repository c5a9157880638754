// Package events is the outbound service interface for real-time updates.
//
// Domain services call the On* entry points; each one runs the custom hooks
// registered for the event name and then fires the canonical broadcast
// through the dispatcher. Hooks are isolated: a failing or panicking hook is
// logged and skipped, and never suppresses later hooks or the wire update.
// The global broadcast flag gates wire sends only, never hook execution.
package events
