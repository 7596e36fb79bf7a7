package credentials

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
)

type Name string

const (
	VisionAPIKey Name = "vision_api_key"
	VoiceAgentID Name = "voice_agent_id"
	VoiceAPIKey  Name = "voice_api_key"
)

var All = []Name{VisionAPIKey, VoiceAgentID, VoiceAPIKey}

var ErrUnknownName = errors.New("credentials: unknown name")

func (n Name) Valid() bool {
	for _, known := range All {
		if n == known {
			return true
		}
	}
	return false
}

type Source string

const (
	SourceNone    Source = "none"
	SourceEntered Source = "entered"
	SourceCache   Source = "cache"
	SourceEnv     Source = "env"
)

type Description struct {
	Name    Name   `json:"name"`
	Present bool   `json:"present"`
	Source  Source `json:"source"`
	Masked  string `json:"masked,omitempty"`
}

// Store resolves credentials from, in order: values entered at runtime,
// the cache, then the environment.
type Store struct {
	cache  Cache
	env    map[Name]string
	logger *slog.Logger

	mu      sync.RWMutex
	entered map[Name]string
}

func NewStore(cache Cache, env map[Name]string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	envCopy := make(map[Name]string, len(env))
	for k, v := range env {
		if v = strings.TrimSpace(v); v != "" {
			envCopy[k] = v
		}
	}
	return &Store{
		cache:   cache,
		env:     envCopy,
		logger:  logger.With("component", "credentials"),
		entered: make(map[Name]string),
	}
}

func (s *Store) Get(ctx context.Context, name Name) string {
	v, _ := s.resolve(ctx, name)
	return v
}

// Func adapts a single credential into a lookup callback.
func (s *Store) Func(name Name) func(ctx context.Context) string {
	return func(ctx context.Context) string { return s.Get(ctx, name) }
}

func (s *Store) resolve(ctx context.Context, name Name) (string, Source) {
	s.mu.RLock()
	v, ok := s.entered[name]
	s.mu.RUnlock()
	if ok && v != "" {
		return v, SourceEntered
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, name)
		if err != nil {
			s.logger.Warn("credential cache read failed", "name", name, "error", err)
		} else if cached != "" {
			return cached, SourceCache
		}
	}

	if v := s.env[name]; v != "" {
		return v, SourceEnv
	}
	return "", SourceNone
}

// Set records entered values. Empty values are ignored. When remember is
// true they are written to the cache first, and nothing is recorded if that
// write fails.
func (s *Store) Set(ctx context.Context, values map[Name]string, remember bool) error {
	clean := make(map[Name]string, len(values))
	for name, v := range values {
		if !name.Valid() {
			return ErrUnknownName
		}
		if v = strings.TrimSpace(v); v != "" {
			clean[name] = v
		}
	}

	if remember && s.cache != nil {
		written := make([]Name, 0, len(clean))
		for name, v := range clean {
			if err := s.cache.Set(ctx, name, v); err != nil {
				if len(written) > 0 {
					if derr := s.cache.Delete(ctx, written...); derr != nil {
						s.logger.Warn("credential cache rollback failed", "error", derr)
					}
				}
				return err
			}
			written = append(written, name)
		}
	}

	s.mu.Lock()
	for name, v := range clean {
		s.entered[name] = v
	}
	s.mu.Unlock()
	return nil
}

// Clear forgets entered values and removes cached ones. Environment values
// are unaffected.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.entered = make(map[Name]string)
	s.mu.Unlock()

	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, All...)
}

func (s *Store) Describe(ctx context.Context) []Description {
	out := make([]Description, 0, len(All))
	for _, name := range All {
		v, src := s.resolve(ctx, name)
		d := Description{Name: name, Present: v != "", Source: src}
		if v != "" {
			d.Masked = Mask(v)
		}
		out = append(out, d)
	}
	return out
}

func (s *Store) Has(ctx context.Context, name Name) bool {
	return s.Get(ctx, name) != ""
}

func Mask(v string) string {
	if len(v) <= 4 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}
