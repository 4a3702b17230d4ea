package trace

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Span is one recorded interval: a decision call, a tool call, or the
// whole trial. Spans form a tree through ParentID.
type Span struct {
	ID       uuid.UUID      `json:"id"`
	ParentID uuid.UUID      `json:"parent_id,omitempty"`
	Name     string         `json:"name"`
	Kind     string         `json:"kind"`
	Input    map[string]any `json:"input,omitempty"`
	Output   map[string]any `json:"output,omitempty"`
	Start    time.Time      `json:"start"`
	End      time.Time      `json:"end"`
	Error    string         `json:"error,omitempty"`
}

// Exporter is implemented by backends that receive finished spans (e.g.
// OpenTelemetry OTLP). Export failures are logged and swallowed: tracing
// is observability, never control flow.
type Exporter interface {
	ExportSpans(ctx context.Context, spans []Span) error
	Shutdown(ctx context.Context) error
}

// Recorder collects the span tree for one trial. A nil *Recorder is valid
// and records nothing, so callers never need to branch on tracing being
// enabled.
type Recorder struct {
	mu       sync.Mutex
	spans    []*Span
	exporter Exporter
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// SetExporter attaches an external backend. Optional.
func (r *Recorder) SetExporter(exp Exporter) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.exporter = exp
	r.mu.Unlock()
}

// Start opens a span under parent (nil parent = root). Safe on a nil
// recorder: returns nil, and Finish on a nil span is a no-op.
func (r *Recorder) Start(parent *Span, name, kind string, input map[string]any) *Span {
	if r == nil {
		return nil
	}
	s := &Span{
		ID:    uuid.New(),
		Name:  name,
		Kind:  kind,
		Input: input,
		Start: time.Now().UTC(),
	}
	if parent != nil {
		s.ParentID = parent.ID
	}
	r.mu.Lock()
	r.spans = append(r.spans, s)
	r.mu.Unlock()
	return s
}

// Finish closes the span with its output. err may be nil.
func (r *Recorder) Finish(s *Span, output map[string]any, err error) {
	if r == nil || s == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s.End = time.Now().UTC()
	s.Output = output
	if err != nil {
		s.Error = err.Error()
	}
}

// Spans returns the recorded tree ordered by start time.
func (r *Recorder) Spans() []Span {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Span, len(r.spans))
	for i, s := range r.spans {
		out[i] = *s
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// Flush sends all recorded spans to the exporter, if any. Failures are
// logged and never propagated into the trial outcome.
func (r *Recorder) Flush(ctx context.Context) {
	if r == nil {
		return
	}
	r.mu.Lock()
	exp := r.exporter
	r.mu.Unlock()
	if exp == nil {
		return
	}
	if err := exp.ExportSpans(ctx, r.Spans()); err != nil {
		slog.Warn("trace export failed", "error", err)
	}
}
