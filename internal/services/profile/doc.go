// Package profile groups the authenticated profile mutation service: the
// mutation orchestrator, its storage, session resolution, entity loading,
// and the event publisher announcing state transitions to subscribers.
package profile
