// Package id generates prefixed ULIDs for pattern invocations and parallel
// sections, so log lines from one invocation sort together.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// InvocationID identifies one run of an execution pattern.
type InvocationID string

const InvocationPrefix = "inv"

// Generator generates ULIDs with optional prefixes.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the shared generator.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy is for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewInvocationID generates a new invocation ID.
func NewInvocationID() InvocationID {
	return InvocationID(Default().GenerateWithPrefix(InvocationPrefix))
}

func (id InvocationID) String() string { return string(id) }

// Timestamp extracts the creation time of a prefixed or bare ULID.
func Timestamp(s string) (time.Time, error) {
	if i := len(InvocationPrefix) + 1; len(s) > i && s[:i] == InvocationPrefix+"_" {
		s = s[i:]
	}
	parsed, err := ulid.Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
