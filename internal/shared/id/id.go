// Package id provides ID generation for traces and sessions.
//
// Span IDs are short random hex strings; they only need to be unique within
// one process. Session IDs are prefixed ULIDs so trace files and logs sort by
// time and remain readable.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// SpanIDLength is the number of hex characters in a span ID
const SpanIDLength = 12

// SpanID identifies one span within a trace
type SpanID string

// SessionID identifies one traced agent session
type SessionID string

// RunID correlates an LLM request's start and end notifications
type RunID string

// SessionPrefix marks session IDs in logs and file metadata
const SessionPrefix = "sess"

// ============================================================================
// ULID Generator
// ============================================================================

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// ============================================================================
// Typed IDs
// ============================================================================

// NewSpanID returns 12 hex characters taken from a random 128-bit UUID
func NewSpanID() SpanID {
	u := uuid.New()
	return SpanID(hex.EncodeToString(u[:])[:SpanIDLength])
}

// NewSessionID generates a new session ID
func NewSessionID() SessionID {
	return SessionID(Default().GenerateWithPrefix(SessionPrefix))
}

// NewRunID generates a new LLM run ID
func NewRunID() RunID {
	return RunID(uuid.NewString())
}

func (id SpanID) String() string    { return string(id) }
func (id SessionID) String() string { return string(id) }
func (id RunID) String() string     { return string(id) }

// IsSpanID reports whether s has the span ID shape
func IsSpanID(s string) bool {
	if len(s) != SpanIDLength {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil && strings.ToLower(s) == s
}

// SessionTime extracts the creation time from a session ID
func SessionTime(id SessionID) (time.Time, error) {
	raw, ok := strings.CutPrefix(string(id), SessionPrefix+"_")
	if !ok {
		return time.Time{}, fmt.Errorf("session id %q lacks %q prefix", id, SessionPrefix)
	}
	parsed, err := ulid.Parse(raw)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
