package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
)

// Feed is the consumer of a session's video packets.
type Feed interface {
	Stop()
}

type Session struct {
	ID        string
	peer      *Peer
	feed      Feed
	iceCh     chan webrtc.ICECandidateInit
	done      chan struct{}
	createdAt time.Time
	closeOnce sync.Once
	onClose   func()
	mu        sync.Mutex
	log       *slog.Logger
}

func NewSession(peer *Peer, feed Feed, iceBufSize int, log *slog.Logger) *Session {
	if iceBufSize <= 0 {
		iceBufSize = 128
	}

	if log == nil {
		log = slog.Default()
	}

	return &Session{
		ID:        uuid.NewString(),
		peer:      peer,
		feed:      feed,
		iceCh:     make(chan webrtc.ICECandidateInit, iceBufSize),
		done:      make(chan struct{}),
		createdAt: time.Now(),
		log:       log,
	}
}

func (s *Session) Peer() *Peer {
	return s.peer
}

func (s *Session) SendICE(candidate webrtc.ICECandidateInit) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.iceCh <- candidate:
	default:
		s.log.Warn("ICE candidate dropped, buffer full", "session_id", s.ID)
	}
}

func (s *Session) ICECandidates() <-chan webrtc.ICECandidateInit {
	return s.iceCh
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

// OnClose registers fn to run once when the session closes.
func (s *Session) OnClose(fn func()) {
	s.mu.Lock()
	s.onClose = fn
	s.mu.Unlock()
}

func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		close(s.done)
		close(s.iceCh)
		onClose := s.onClose
		s.mu.Unlock()

		if s.feed != nil {
			s.feed.Stop()
		}
		if s.peer != nil {
			s.peer.Close()
		}
		if onClose != nil {
			onClose()
		}
	})
}

func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}
