// Package session manages per-connection session records. A record is created
// atomically with the WebSocket connection and destroyed atomically with its
// teardown; between the two it carries the user identity declared by the
// client. Records are kept in Redis so operators can inspect live sessions
// across server instances.
package session
