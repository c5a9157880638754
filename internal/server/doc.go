// Package server hosts the HTTP/WebSocket transport: connection upgrade and
// limits, the inbound frame protocol (subscribe/unsubscribe/heartbeat), and
// the observability endpoints. Authentication happens upstream; the gateway
// forwards the verified user identity in a request header.
package server
