package tracing

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/GriffinCanCode/AgentOS/agentrace/internal/shared/id"
)

// timeLayout is ISO 8601 with microsecond precision
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// Span represents one traced unit of work.
//
// Identity fields are fixed at creation. Everything else is guarded by mu
// because the owning goroutine and the LLM client's callbacks may touch the
// same span.
type Span struct {
	Kind      Kind
	ID        string
	Name      string
	StartTime time.Time

	mu         sync.Mutex
	endTime    time.Time
	finished   bool
	durationMS float64
	status     Status
	errMsg     string
	attrs      Attributes
	children   []*Span
	parent     *Span
}

// newSpan creates an open span with status ok
func newSpan(kind Kind, name string, attrs Attributes) *Span {
	return &Span{
		Kind:      kind,
		ID:        id.NewSpanID().String(),
		Name:      name,
		StartTime: time.Now(),
		status:    StatusOK,
		attrs:     attrs.Clone(),
	}
}

// SetAttribute inserts or overwrites an attribute
func (s *Span) SetAttribute(key string, value any) {
	s.mu.Lock()
	s.attrs = s.attrs.Set(key, value)
	s.mu.Unlock()
}

// Attribute returns the value stored under key
func (s *Span) Attribute(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attrs.Get(key)
}

// Attributes returns a copy of the span's attributes
func (s *Span) Attributes() Attributes {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attrs.Clone()
}

// AddChild appends child and points its parent back at s
func (s *Span) AddChild(child *Span) {
	s.mu.Lock()
	s.children = append(s.children, child)
	s.mu.Unlock()

	child.mu.Lock()
	child.parent = s
	child.mu.Unlock()
}

// Children returns the child spans in opening order
func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Span, len(s.children))
	copy(out, s.children)
	return out
}

// Parent returns the span this one is attached under, or nil for a root
func (s *Span) Parent() *Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parent
}

// MarkError records a failure without finishing the span
func (s *Span) MarkError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.status = StatusError
	s.errMsg = errorMessage(err)
	s.mu.Unlock()
}

// Finish stamps the end time and duration. A non-nil err marks the span as
// failed. Only the first call has any effect.
func (s *Span) Finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}

	s.endTime = time.Now()
	elapsed := s.endTime.Sub(s.StartTime)
	if elapsed < 0 {
		elapsed = 0
	}
	s.durationMS = roundMillis(elapsed)
	s.finished = true

	if err != nil {
		s.status = StatusError
		s.errMsg = errorMessage(err)
	}
}

// Finished reports whether Finish has run
func (s *Span) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// EndTime returns the finish time, if any
func (s *Span) EndTime() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endTime, s.finished
}

// DurationMS returns the duration in milliseconds, if finished
func (s *Span) DurationMS() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.durationMS, s.finished
}

// Status returns the span status
func (s *Span) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Err returns the recorded error message, empty when ok
func (s *Span) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Record is the sparse serializable form of a span tree. Field order is the
// on-disk key order.
type Record struct {
	Kind       string     `json:"kind" yaml:"kind"`
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	StartTime  string     `json:"start_time" yaml:"start_time"`
	EndTime    string     `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	DurationMS *float64   `json:"duration_ms,omitempty" yaml:"duration_ms,omitempty"`
	Status     Status     `json:"status" yaml:"status"`
	Error      string     `json:"error,omitempty" yaml:"error,omitempty"`
	Attributes Attributes `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Children   []Record   `json:"children,omitempty" yaml:"children,omitempty"`
}

// Record snapshots the span and its descendants
func (s *Span) Record() Record {
	s.mu.Lock()
	rec := Record{
		Kind:       s.Kind.String(),
		ID:         s.ID,
		Name:       s.Name,
		StartTime:  s.StartTime.Format(timeLayout),
		Status:     s.status,
		Error:      s.errMsg,
		Attributes: s.attrs.Clone(),
	}
	if s.finished {
		d := s.durationMS
		rec.EndTime = s.endTime.Format(timeLayout)
		rec.DurationMS = &d
	}
	children := make([]*Span, len(s.children))
	copy(children, s.children)
	s.mu.Unlock()

	if len(children) > 0 {
		rec.Children = make([]Record, len(children))
		for i, child := range children {
			rec.Children[i] = child.Record()
		}
	}
	return rec
}

// errorMessage keeps status error paired with a non-empty message
func errorMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fmt.Sprintf("%T", err)
}

func roundMillis(d time.Duration) float64 {
	ms := float64(d) / float64(time.Millisecond)
	return math.Round(ms*100) / 100
}
