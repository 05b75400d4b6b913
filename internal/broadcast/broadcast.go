// Package broadcast declares the interface services use to push events to
// live sockets without importing the transport layer, avoiding an import
// cycle — grounded on the teacher's service.Broadcaster.
package broadcast

import "matchbroker/internal/model"

// Emitter delivers a named event to a single socket connection, wherever
// in the process fleet it currently lives. Implementations (internal/fanout)
// degrade to local-only delivery in single-node mode.
type Emitter interface {
	Emit(socketID string, eventType model.EventType, payload interface{})
}
