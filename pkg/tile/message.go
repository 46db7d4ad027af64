package tile

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MessageKind tells a receiver how to interpret a message.
type MessageKind int

const (
	KindData MessageKind = iota
	KindToken
	KindPacket
)

func (k MessageKind) String() string {
	switch k {
	case KindToken:
		return "token"
	case KindPacket:
		return "packet"
	default:
		return "data"
	}
}

// Message is one word (or token, or instruction packet) in flight on a
// channel.
type Message struct {
	id        uuid.UUID
	createdAt time.Time
	source    CoreID
	kind      MessageKind
	value     int
	packet    any
	credit    *creditHook
}

type creditHook struct {
	once    sync.Once
	release func()
}

func Data(source CoreID, value int) Message {
	return Message{
		id:        uuid.New(),
		createdAt: time.Now().UTC(),
		source:    source,
		kind:      KindData,
		value:     value,
	}
}

func Token(source CoreID) Message {
	return Message{
		id:        uuid.New(),
		createdAt: time.Now().UTC(),
		source:    source,
		kind:      KindToken,
	}
}

// Packet wraps an instruction packet for delivery on ChannelIPKFIFO.
func Packet(source CoreID, packet any) Message {
	return Message{
		id:        uuid.New(),
		createdAt: time.Now().UTC(),
		source:    source,
		kind:      KindPacket,
		packet:    packet,
	}
}

// WithCredit returns a copy of m that calls release once when consumed.
func (m Message) WithCredit(release func()) Message {
	m.credit = &creditHook{release: release}
	return m
}

// Consume returns the message's credit to its sender, at most once.
func (m Message) Consume() {
	if m.credit == nil {
		return
	}
	m.credit.once.Do(m.credit.release)
}

func (m Message) Id() uuid.UUID {
	return m.id
}

func (m Message) CreatedAt() time.Time {
	return m.createdAt
}

func (m Message) Source() CoreID {
	return m.source
}

func (m Message) Kind() MessageKind {
	return m.kind
}

func (m Message) Value() int {
	return m.value
}

func (m Message) Packet() any {
	return m.packet
}

func (m Message) IsToken() bool {
	return m.kind == KindToken
}
