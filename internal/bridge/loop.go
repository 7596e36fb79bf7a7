package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eleven-am/vision-bridge/internal/eventlog"
	"github.com/eleven-am/vision-bridge/internal/frame"
	"github.com/eleven-am/vision-bridge/internal/vision"
	"go.opentelemetry.io/otel/metric"
)

const DefaultInterval = 4000 * time.Millisecond

type Analyzer interface {
	Analyze(ctx context.Context, current, previous *frame.Snapshot, last *vision.Observation) (vision.Observation, error)
}

type Voice interface {
	IsConnected() bool
	PushContext(ctx context.Context, text string) error
}

type Notifier interface {
	Append(message string, category eventlog.Category) eventlog.Entry
}

type VisionState string

const (
	VisionIdle      VisionState = "idle"
	VisionActive    VisionState = "active"
	VisionAnalyzing VisionState = "analyzing"
	VisionError     VisionState = "error"
)

type TickResult int

const (
	TickInactive TickResult = iota
	TickSkipped
	TickNoFrame
	TickFailed
	TickUnchanged
	TickObserved
	TickBridged
)

func (r TickResult) String() string {
	switch r {
	case TickInactive:
		return "inactive"
	case TickSkipped:
		return "skipped"
	case TickNoFrame:
		return "no_frame"
	case TickFailed:
		return "failed"
	case TickUnchanged:
		return "unchanged"
	case TickObserved:
		return "observed"
	case TickBridged:
		return "bridged"
	}
	return "unknown"
}

type Config struct {
	Source    frame.Source
	Analyzer  Analyzer
	Voice     Voice
	Notices   Notifier
	Scheduler Scheduler
	Interval  time.Duration
	// SuppressStalePush drops the voice push for results that finish after
	// Stop. The result is still logged.
	SuppressStalePush bool
	MeterProvider     metric.MeterProvider
	Logger            *slog.Logger
}

// state is everything one activation of the loop needs. It is only touched
// with Loop.mu held.
type state struct {
	active          bool
	analyzing       bool
	prevSnapshot    *frame.Snapshot
	prevObservation *vision.Observation
	epoch           uint64
	lastErr         error
	task            Task
}

type counters struct {
	ticks        atomic.Int64
	skipped      atomic.Int64
	observations atomic.Int64
	pushes       atomic.Int64
	failures     atomic.Int64
}

// Loop periodically samples the camera, asks the analyzer what changed and
// forwards new observations to the voice session.
type Loop struct {
	source        frame.Source
	analyzer      Analyzer
	voice         Voice
	notices       Notifier
	scheduler     Scheduler
	interval      time.Duration
	suppressStale bool
	logger        *slog.Logger
	metrics       *metrics
	counts        counters

	ctx    context.Context
	cancel context.CancelFunc

	mu sync.Mutex
	st state
}

func NewLoop(cfg Config) (*Loop, error) {
	if cfg.Source == nil || cfg.Analyzer == nil || cfg.Voice == nil {
		return nil, fmt.Errorf("bridge: source, analyzer and voice are required")
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = TickerScheduler{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Notices == nil {
		cfg.Notices = eventlog.NewSink()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	m, err := newMetrics(cfg.MeterProvider)
	if err != nil {
		return nil, fmt.Errorf("bridge: metrics: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Loop{
		source:        cfg.Source,
		analyzer:      cfg.Analyzer,
		voice:         cfg.Voice,
		notices:       cfg.Notices,
		scheduler:     cfg.Scheduler,
		interval:      cfg.Interval,
		suppressStale: cfg.SuppressStalePush,
		logger:        cfg.Logger.With("component", "bridge"),
		metrics:       m,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// Start activates the loop. Ticks begin once the frame source is ready.
// Starting an active loop does nothing.
func (l *Loop) Start() {
	l.mu.Lock()
	if l.st.active {
		l.mu.Unlock()
		return
	}
	l.st.active = true
	l.st.epoch++
	l.st.lastErr = nil
	epoch := l.st.epoch
	l.mu.Unlock()

	if !l.source.Ready() {
		l.logger.Info("vision started, waiting for camera")
	} else {
		l.logger.Info("vision started")
	}
	l.source.OnReady(func() { l.schedule(epoch) })
}

func (l *Loop) schedule(epoch uint64) {
	l.mu.Lock()
	if !l.st.active || l.st.epoch != epoch || l.st.task != nil {
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	task := l.scheduler.Every(l.interval, func() { l.tickEpoch(epoch) })

	l.mu.Lock()
	if !l.st.active || l.st.epoch != epoch || l.st.task != nil {
		l.mu.Unlock()
		task.Cancel()
		return
	}
	l.st.task = task
	l.mu.Unlock()
}

func (l *Loop) tickEpoch(epoch uint64) {
	l.mu.Lock()
	current := l.st.epoch == epoch
	l.mu.Unlock()
	if !current {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("bridge tick panicked", "panic", r, "stack", string(debug.Stack()))
			l.notices.Append(fmt.Sprintf("Vision tick failed: %v", r), eventlog.CategoryError)
		}
	}()
	l.Tick(l.ctx)
}

// Stop deactivates the loop and clears the carried context. An analysis
// already in flight is left to finish.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.st.active {
		l.mu.Unlock()
		return
	}
	l.st.active = false
	l.st.prevSnapshot = nil
	l.st.prevObservation = nil
	l.st.lastErr = nil
	l.st.epoch++
	task := l.st.task
	l.st.task = nil
	l.mu.Unlock()

	if task != nil {
		task.Cancel()
	}
	l.logger.Info("vision stopped")
}

// Close stops the loop and aborts any in-flight call.
func (l *Loop) Close() {
	l.Stop()
	l.cancel()
}

func (l *Loop) Tick(ctx context.Context) TickResult {
	l.mu.Lock()
	if !l.st.active {
		l.mu.Unlock()
		return TickInactive
	}
	if l.st.analyzing {
		l.mu.Unlock()
		l.counts.skipped.Add(1)
		l.metrics.skipped.Add(ctx, 1)
		return TickSkipped
	}
	l.st.analyzing = true
	epoch := l.st.epoch
	previous := l.st.prevSnapshot
	last := l.st.prevObservation
	l.mu.Unlock()

	snap, ok := l.capture()
	if !ok {
		l.mu.Lock()
		l.st.analyzing = false
		l.mu.Unlock()
		return TickNoFrame
	}

	l.counts.ticks.Add(1)
	l.metrics.ticks.Add(ctx, 1)

	start := time.Now()
	obs, err := l.analyze(ctx, snap, previous, last)
	l.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()))

	l.mu.Lock()
	l.st.analyzing = false
	current := l.st.epoch == epoch
	if current {
		l.st.prevSnapshot = snap
	}
	if err != nil {
		if current {
			l.st.lastErr = err
		}
		l.mu.Unlock()
		return l.analysisFailed(ctx, err)
	}
	if current {
		l.st.lastErr = nil
	}
	if obs.Unchanged || obs.Text == "" {
		l.mu.Unlock()
		return TickUnchanged
	}
	if current {
		kept := obs
		l.st.prevObservation = &kept
	}
	l.mu.Unlock()

	l.counts.observations.Add(1)
	l.metrics.observations.Add(ctx, 1)
	l.notices.Append(obs.Text, eventlog.CategoryVisual)

	if !current && l.suppressStale {
		l.logger.Debug("dropping push for result that finished after stop")
		return TickObserved
	}
	if !l.voice.IsConnected() {
		return TickObserved
	}

	if err := l.voice.PushContext(ctx, obs.Text); err != nil {
		l.metrics.pushFailures.Add(ctx, 1)
		l.logger.Warn("context push failed", "error", err)
		l.notices.Append(fmt.Sprintf("Failed to send observation to agent: %v", err), eventlog.CategoryError)
		return TickObserved
	}

	l.counts.pushes.Add(1)
	l.metrics.pushes.Add(ctx, 1)
	l.notices.Append("Sent to agent: "+obs.Text, eventlog.CategoryBridge)
	return TickBridged
}

// capture and analyze turn panics from the source or analyzer into an
// absent frame or a failed analysis so the analyzing flag is always released.
func (l *Loop) capture() (snap *frame.Snapshot, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("frame capture panicked", "panic", r)
			snap, ok = nil, false
		}
	}()
	return l.source.Capture()
}

func (l *Loop) analyze(ctx context.Context, current, previous *frame.Snapshot, last *vision.Observation) (obs vision.Observation, err error) {
	defer func() {
		if r := recover(); r != nil {
			obs, err = vision.Observation{}, fmt.Errorf("analyzer panicked: %v", r)
		}
	}()
	return l.analyzer.Analyze(ctx, current, previous, last)
}

func (l *Loop) analysisFailed(ctx context.Context, err error) TickResult {
	kind := vision.KindOf(err)
	l.counts.failures.Add(1)
	l.metrics.recordFailure(ctx, string(kind))
	l.logger.Warn("vision analysis failed", "kind", kind, "error", err)
	l.notices.Append(fmt.Sprintf("Vision analysis failed (%s): %v", kind, err), eventlog.CategoryError)
	return TickFailed
}

type Status struct {
	State           VisionState `json:"state"`
	Active          bool        `json:"active"`
	Analyzing       bool        `json:"analyzing"`
	Waiting         bool        `json:"waiting_for_camera"`
	HasPrevious     bool        `json:"has_previous_frame"`
	LastObservation string      `json:"last_observation,omitempty"`
	LastError       string      `json:"last_error,omitempty"`
	Ticks           int64       `json:"ticks"`
	Skipped         int64       `json:"skipped"`
	Observations    int64       `json:"observations"`
	Pushes          int64       `json:"pushes"`
	Failures        int64       `json:"failures"`
}

func (l *Loop) State() VisionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stateLocked()
}

func (l *Loop) stateLocked() VisionState {
	switch {
	case !l.st.active:
		return VisionIdle
	case l.st.analyzing:
		return VisionAnalyzing
	case l.st.lastErr != nil:
		return VisionError
	}
	return VisionActive
}

func (l *Loop) Status() Status {
	l.mu.Lock()
	s := Status{
		State:       l.stateLocked(),
		Active:      l.st.active,
		Analyzing:   l.st.analyzing,
		Waiting:     l.st.active && l.st.task == nil,
		HasPrevious: l.st.prevSnapshot != nil,
	}
	if l.st.prevObservation != nil {
		s.LastObservation = l.st.prevObservation.Text
	}
	if l.st.lastErr != nil {
		s.LastError = l.st.lastErr.Error()
	}
	l.mu.Unlock()

	s.Ticks = l.counts.ticks.Load()
	s.Skipped = l.counts.skipped.Load()
	s.Observations = l.counts.observations.Load()
	s.Pushes = l.counts.pushes.Load()
	s.Failures = l.counts.failures.Load()
	return s
}
