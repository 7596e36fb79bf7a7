package eventlog

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryInfo    Category = "info"
	CategorySuccess Category = "success"
	CategoryError   Category = "error"
	CategoryVisual  Category = "visual"
	CategoryBridge  Category = "bridge"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryInfo, CategorySuccess, CategoryError, CategoryVisual, CategoryBridge:
		return true
	}
	return false
}

type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Category  Category  `json:"category"`
	Message   string    `json:"message"`
}

const subscriberBuffer = 64

// Sink is an append-only, unbounded list of notices. It is read for display
// only and never consulted for control decisions.
type Sink struct {
	mu      sync.RWMutex
	entries []Entry
	subs    map[int]chan Entry
	nextSub int
	now     func() time.Time
}

func NewSink() *Sink {
	return &Sink{
		subs: make(map[int]chan Entry),
		now:  time.Now,
	}
}

func (s *Sink) Append(message string, category Category) Entry {
	if !category.Valid() {
		category = CategoryInfo
	}

	entry := Entry{
		ID:        uuid.NewString(),
		Timestamp: s.now().UTC(),
		Category:  category,
		Message:   message,
	}

	s.mu.Lock()
	s.entries = append(s.entries, entry)
	for _, ch := range s.subs {
		select {
		case ch <- entry:
		default:
		}
	}
	s.mu.Unlock()

	return entry
}

func (s *Sink) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Since returns the entries appended after the first n.
func (s *Sink) Since(n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n < 0 {
		n = 0
	}
	if n >= len(s.entries) {
		return []Entry{}
	}
	out := make([]Entry, len(s.entries)-n)
	copy(out, s.entries[n:])
	return out
}

func (s *Sink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Subscribe returns the current history and a channel that receives every
// entry appended afterwards. A subscriber that falls behind misses entries
// instead of stalling Append. Call the returned func to unsubscribe.
func (s *Sink) Subscribe() ([]Entry, <-chan Entry, func()) {
	ch := make(chan Entry, subscriberBuffer)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	history := make([]Entry, len(s.entries))
	copy(history, s.entries)
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
	return history, ch, cancel
}

func (s *Sink) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
