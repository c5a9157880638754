// Package redisrelay bridges broadcast envelopes between service instances
// over Redis Pub/Sub.
//
// Each instance publishes every local broadcast to a per-topic channel and
// re-delivers foreign envelopes to its own subscribers. Messages are tagged
// with the publishing instance id so an instance never double-delivers its
// own broadcasts. Redis outages degrade to local-only fan-out behind a
// circuit breaker.
package redisrelay
