// Package realtime implements the event broadcast core: the connection
// registry, the topic subscription index, and the fan-out dispatcher.
//
// The Hub owns connection and subscription state under a single structural
// lock held only for mutations and snapshots, never across network I/O.
// Per-connection write goroutines absorb slow clients; a connection whose
// send buffer is full or whose writer has stopped is pruned after the
// fan-out pass. Delivery is best-effort: at most once per connection per
// broadcast, no retries, no cross-call ordering.
package realtime
