package bridge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/eleven-am/vision-bridge/internal/eventlog"
	"github.com/eleven-am/vision-bridge/internal/frame"
	"github.com/eleven-am/vision-bridge/internal/vision"
)

type fakeSource struct {
	mu       sync.Mutex
	ready    bool
	frames   []*frame.Snapshot
	next     *frame.Snapshot
	waiters  []func()
	calls    int
	panicMsg string
}

func (s *fakeSource) Capture() (*frame.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.panicMsg != "" {
		msg := s.panicMsg
		s.panicMsg = ""
		panic(msg)
	}
	if len(s.frames) > 0 {
		f := s.frames[0]
		s.frames = s.frames[1:]
		return f, f != nil
	}
	if s.next == nil {
		return nil, false
	}
	return s.next, true
}

func (s *fakeSource) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *fakeSource) OnReady(fn func()) {
	s.mu.Lock()
	if !s.ready {
		s.waiters = append(s.waiters, fn)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	fn()
}

func (s *fakeSource) becomeReady(snap *frame.Snapshot) {
	s.mu.Lock()
	s.ready = true
	s.next = snap
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()
	for _, fn := range waiters {
		fn()
	}
}

type analyzeCall struct {
	current  *frame.Snapshot
	previous *frame.Snapshot
	last     *vision.Observation
}

type analyzeReply struct {
	obs      vision.Observation
	err      error
	panicMsg string
}

type fakeAnalyzer struct {
	mu       sync.Mutex
	calls    []analyzeCall
	replies  []analyzeReply
	inFlight int
	maxSeen  int
	gate     chan struct{}
	entered  chan struct{}
}

func (a *fakeAnalyzer) reply(text string) *fakeAnalyzer {
	a.replies = append(a.replies, analyzeReply{obs: vision.Observation{Text: text}})
	return a
}

func (a *fakeAnalyzer) unchanged() *fakeAnalyzer {
	a.replies = append(a.replies, analyzeReply{obs: vision.Observation{Unchanged: true}})
	return a
}

func (a *fakeAnalyzer) fail(err error) *fakeAnalyzer {
	a.replies = append(a.replies, analyzeReply{err: err})
	return a
}

func (a *fakeAnalyzer) explode(msg string) *fakeAnalyzer {
	a.replies = append(a.replies, analyzeReply{panicMsg: msg})
	return a
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, current, previous *frame.Snapshot, last *vision.Observation) (vision.Observation, error) {
	a.mu.Lock()
	var lastCopy *vision.Observation
	if last != nil {
		c := *last
		lastCopy = &c
	}
	a.calls = append(a.calls, analyzeCall{current: current, previous: previous, last: lastCopy})
	a.inFlight++
	if a.inFlight > a.maxSeen {
		a.maxSeen = a.inFlight
	}
	var r analyzeReply
	if len(a.replies) > 0 {
		r = a.replies[0]
		a.replies = a.replies[1:]
	} else {
		r = analyzeReply{obs: vision.Observation{Unchanged: true}}
	}
	gate := a.gate
	entered := a.entered
	a.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	a.mu.Lock()
	a.inFlight--
	a.mu.Unlock()
	if r.panicMsg != "" {
		panic(r.panicMsg)
	}
	return r.obs, r.err
}

func (a *fakeAnalyzer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

func (a *fakeAnalyzer) call(i int) analyzeCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[i]
}

type fakeVoice struct {
	mu        sync.Mutex
	connected bool
	pushed    []string
	err       error
	panicMsg  string
}

func (v *fakeVoice) IsConnected() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.connected
}

func (v *fakeVoice) setConnected(c bool) {
	v.mu.Lock()
	v.connected = c
	v.mu.Unlock()
}

func (v *fakeVoice) PushContext(ctx context.Context, text string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.panicMsg != "" {
		panic(v.panicMsg)
	}
	if v.err != nil {
		return v.err
	}
	v.pushed = append(v.pushed, text)
	return nil
}

func (v *fakeVoice) pushes() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.pushed...)
}

// manualScheduler records scheduled functions; tests fire them by hand.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	interval  time.Duration
	fn        func()
	cancelled bool
	mu        sync.Mutex
}

func (t *manualTask) Cancel() {
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()
}

func (t *manualTask) isCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

func (s *manualScheduler) Every(interval time.Duration, fn func()) Task {
	t := &manualTask{interval: interval, fn: fn}
	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()
	return t
}

func (s *manualScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *manualScheduler) latest() *manualTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tasks) == 0 {
		return nil
	}
	return s.tasks[len(s.tasks)-1]
}

// fire runs the latest task's function unless it has been cancelled.
func (s *manualScheduler) fire() bool {
	t := s.latest()
	if t == nil || t.isCancelled() {
		return false
	}
	t.fn()
	return true
}

type harness struct {
	loop      *Loop
	source    *fakeSource
	analyzer  *fakeAnalyzer
	voice     *fakeVoice
	sink      *eventlog.Sink
	scheduler *manualScheduler
}

func snap(label string) *frame.Snapshot {
	return &frame.Snapshot{Data: []byte(label), Width: 640, Height: 480}
}

func newHarness(t *testing.T, opts ...func(*Config)) *harness {
	h := &harness{
		source:    &fakeSource{ready: true, next: snap("A")},
		analyzer:  &fakeAnalyzer{},
		voice:     &fakeVoice{},
		sink:      eventlog.NewSink(),
		scheduler: &manualScheduler{},
	}
	cfg := Config{
		Source:    h.source,
		Analyzer:  h.analyzer,
		Voice:     h.voice,
		Notices:   h.sink,
		Scheduler: h.scheduler,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	loop, err := NewLoop(cfg)
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	h.loop = loop
	return h
}

func (h *harness) entries(category eventlog.Category) []eventlog.Entry {
	var out []eventlog.Entry
	for _, e := range h.sink.Entries() {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

var errBoom = errors.New("boom")
