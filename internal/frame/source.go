package frame

import (
	"bytes"
	"image"
	"image/jpeg"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/image/draw"
)

const (
	DefaultTargetWidth = 640
	DefaultQuality     = 70
	// MaxOutputHeight bounds the rescaled snapshot for very tall frames.
	MaxOutputHeight = 1280
)

// Source is the read-only camera handle the bridge samples from.
type Source interface {
	Capture() (*Snapshot, bool)
	Ready() bool
	OnReady(fn func())
}

type SourceConfig struct {
	TargetWidth int
	Quality     int
	Logger      *slog.Logger
}

// LiveSource keeps the most recent decoded camera image pushed by a feed.
type LiveSource struct {
	targetWidth int
	quality     int
	logger      *slog.Logger
	now         func() time.Time

	mu       sync.Mutex
	img      image.Image
	received time.Time
	waiters  []func()
}

func NewLiveSource(cfg SourceConfig) *LiveSource {
	if cfg.TargetWidth <= 0 {
		cfg.TargetWidth = DefaultTargetWidth
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = DefaultQuality
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &LiveSource{
		targetWidth: cfg.TargetWidth,
		quality:     cfg.Quality,
		logger:      cfg.Logger.With("component", "frame_source"),
		now:         time.Now,
	}
}

// Update replaces the live image. Images with an empty bounds rectangle are
// ignored so a bad frame never flips the source to ready.
func (s *LiveSource) Update(img image.Image) {
	if img == nil {
		return
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return
	}

	s.mu.Lock()
	s.img = img
	s.received = s.now()
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	if len(waiters) > 0 {
		s.logger.Debug("camera ready", "width", b.Dx(), "height", b.Dy())
	}
	for _, fn := range waiters {
		fn()
	}
}

// Reset drops the live image, as when the camera is stopped.
func (s *LiveSource) Reset() {
	s.mu.Lock()
	s.img = nil
	s.received = time.Time{}
	s.mu.Unlock()
}

func (s *LiveSource) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img != nil
}

func (s *LiveSource) LastFrameAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received
}

// OnReady runs fn once the first valid frame arrives, or right away if one
// already has.
func (s *LiveSource) OnReady(fn func()) {
	if fn == nil {
		return
	}

	s.mu.Lock()
	if s.img == nil {
		s.waiters = append(s.waiters, fn)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	fn()
}

func (s *LiveSource) Capture() (*Snapshot, bool) {
	s.mu.Lock()
	img := s.img
	s.mu.Unlock()

	if img == nil {
		return nil, false
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, false
	}
	ratio := float64(b.Dy()) / float64(b.Dx())
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return nil, false
	}

	width, height := outputSize(s.targetWidth, ratio)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: s.quality}); err != nil {
		s.logger.Debug("jpeg encode failed", "error", err)
		return nil, false
	}

	return &Snapshot{
		Data:       buf.Bytes(),
		Width:      width,
		Height:     height,
		CapturedAt: s.now(),
	}, true
}

// outputSize keeps the target width unless that would make the snapshot
// taller than MaxOutputHeight, in which case the height is capped and the
// width shrinks to hold the aspect ratio.
func outputSize(targetWidth int, ratio float64) (int, int) {
	height := math.Round(float64(targetWidth) * ratio)
	if height <= MaxOutputHeight {
		return targetWidth, max(int(height), 1)
	}
	width := int(math.Round(MaxOutputHeight / ratio))
	return max(width, 1), MaxOutputHeight
}
