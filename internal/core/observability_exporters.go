package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var expvarSeq atomic.Uint64

// ExpvarRecorder mirrors operation outcomes into an expvar.Map so they show
// up under /debug/vars without an external scrape path. Per operation it
// keeps "<op>.success" and "<op>.error" counters plus a cumulative
// "<op>.duration_ms" total.
type ExpvarRecorder struct {
	name string
	vars *expvar.Map
}

// NewExpvarRecorder publishes a recorder under name. An empty name gets a
// generated one, which keeps repeated test constructions from colliding in
// the process-global expvar registry.
func NewExpvarRecorder(name string) *ExpvarRecorder {
	if name == "" {
		name = fmt.Sprintf("gardencore_ops_%d", expvarSeq.Add(1))
	}
	vars := new(expvar.Map).Init()
	expvar.Publish(name, vars)
	return &ExpvarRecorder{name: name, vars: vars}
}

// Name returns the published expvar name.
func (r *ExpvarRecorder) Name() string { return r.name }

// Observe implements MetricsRecorder.
func (r *ExpvarRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	outcome := "error"
	if success {
		outcome = "success"
	}
	r.vars.Add(operation+"."+outcome, 1)
	r.vars.AddFloat(operation+".duration_ms", float64(duration)/float64(time.Millisecond))
}

// Count returns the recorded counter for an operation outcome, zero when
// nothing has been observed yet.
func (r *ExpvarRecorder) Count(operation, outcome string) int64 {
	v, ok := r.vars.Get(operation + "." + outcome).(*expvar.Int)
	if !ok {
		return 0
	}
	return v.Value()
}

// DurationMS returns the cumulative duration total for an operation.
func (r *ExpvarRecorder) DurationMS(operation string) float64 {
	v, ok := r.vars.Get(operation + ".duration_ms").(*expvar.Float)
	if !ok {
		return 0
	}
	return v.Value()
}

// TraceEvent is one completed operation span.
type TraceEvent struct {
	Op      string    `json:"op"`
	OK      bool      `json:"ok"`
	Err     string    `json:"err,omitempty"`
	Millis  float64   `json:"millis"`
	Started time.Time `json:"started"`
}

// JSONTracer writes one JSON line per completed operation and buffers the
// events for inspection. Constructed with a nil writer it only buffers.
type JSONTracer struct {
	mu     sync.Mutex
	enc    *json.Encoder
	events []TraceEvent
}

// NewJSONTracer returns a tracer emitting JSON lines to w.
func NewJSONTracer(w io.Writer) *JSONTracer {
	t := &JSONTracer{}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Start implements Tracer.
func (t *JSONTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &traceSpan{tracer: t, op: operation, started: time.Now().UTC()}
}

// Events returns a copy of the buffered spans in completion order.
func (t *JSONTracer) Events() []TraceEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TraceEvent, len(t.events))
	copy(out, t.events)
	return out
}

type traceSpan struct {
	tracer  *JSONTracer
	op      string
	started time.Time
}

func (s *traceSpan) End(err error) {
	event := TraceEvent{
		Op:      s.op,
		OK:      err == nil,
		Millis:  float64(time.Since(s.started)) / float64(time.Millisecond),
		Started: s.started,
	}
	if err != nil {
		event.Err = err.Error()
	}
	s.tracer.mu.Lock()
	s.tracer.events = append(s.tracer.events, event)
	if s.tracer.enc != nil {
		_ = s.tracer.enc.Encode(event)
	}
	s.tracer.mu.Unlock()
}
