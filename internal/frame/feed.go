package frame

import (
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v4/pkg/media/samplebuilder"
)

const DefaultDecodeRate = 500 * time.Millisecond

// ImageSink receives decoded camera images. *LiveSource satisfies it.
type ImageSink interface {
	Update(img image.Image)
}

// RTPFeed turns an incoming VP8 RTP stream into images for an ImageSink.
type RTPFeed struct {
	sink       ImageSink
	decoder    VideoDecoder
	logger     *slog.Logger
	decodeRate time.Duration

	mu             sync.Mutex
	sampleBuilder  *samplebuilder.SampleBuilder
	mimeType       string
	lastDecode     time.Time
	lastKeyRequest time.Time
	keyRequest     func()
	stopped        bool
}

type FeedConfig struct {
	Sink       ImageSink
	Decoder    VideoDecoder
	DecodeRate time.Duration
	Logger     *slog.Logger
}

func NewRTPFeed(cfg FeedConfig) *RTPFeed {
	if cfg.DecodeRate == 0 {
		cfg.DecodeRate = DefaultDecodeRate
	}
	if cfg.Decoder == nil {
		cfg.Decoder = NewVPXDecoder()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &RTPFeed{
		sink:       cfg.Sink,
		decoder:    cfg.Decoder,
		logger:     cfg.Logger.With("component", "rtp_feed"),
		decodeRate: cfg.DecodeRate,
	}
}

// OnKeyframeRequest registers fn to be called, at most once per decode
// interval, when the feed is due for a picture but only has interframes.
func (f *RTPFeed) OnKeyframeRequest(fn func()) {
	f.mu.Lock()
	f.keyRequest = fn
	f.mu.Unlock()
}

func (f *RTPFeed) HandleRTP(pkt *rtp.Packet, mimeType string) {
	if pkt == nil {
		return
	}

	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}

	if f.sampleBuilder == nil || f.mimeType != mimeType {
		f.mimeType = mimeType
		f.sampleBuilder = f.createSampleBuilder(mimeType)
		if f.sampleBuilder == nil {
			f.mu.Unlock()
			return
		}
	}

	f.sampleBuilder.Push(pkt)

	var due [][]byte
	var requestKey func()
	for {
		sample := f.sampleBuilder.Pop()
		if sample == nil {
			break
		}

		now := time.Now()
		if now.Sub(f.lastDecode) < f.decodeRate {
			continue
		}
		if !IsVP8Keyframe(sample.Data) {
			if f.keyRequest != nil && now.Sub(f.lastKeyRequest) >= f.decodeRate {
				f.lastKeyRequest = now
				requestKey = f.keyRequest
			}
			continue
		}

		f.lastDecode = now
		due = append(due, sample.Data)
	}
	f.mu.Unlock()

	if requestKey != nil {
		requestKey()
	}
	for _, data := range due {
		f.processFrame(data, mimeType)
	}
}

func (f *RTPFeed) createSampleBuilder(mimeType string) *samplebuilder.SampleBuilder {
	switch mimeType {
	case MimeVP8:
		return samplebuilder.New(64, &codecs.VP8Packet{}, 90000)
	default:
		f.logger.Warn("unsupported video codec", "mime_type", mimeType)
		return nil
	}
}

func (f *RTPFeed) processFrame(data []byte, mimeType string) {
	img, err := f.decoder.Decode(data, mimeType)
	if err != nil {
		if !errors.Is(err, ErrNotKeyframe) {
			f.logger.Debug("frame decode failed", "error", err)
		}
		return
	}
	if f.sink != nil {
		f.sink.Update(img)
	}
}

func (f *RTPFeed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return
	}
	f.stopped = true
	f.decoder.Close()
}
