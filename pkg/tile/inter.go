package tile

import (
	"time"

	"github.com/google/uuid"
)

// Envelope is what every message exposes regardless of payload.
type Envelope interface {
	Id() uuid.UUID
	Source() CoreID
	// CreatedAt is the time the message was built
	CreatedAt() time.Time
	Kind() MessageKind
}

var _ Envelope = Message{}
