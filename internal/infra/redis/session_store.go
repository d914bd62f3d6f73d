package redis

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"kheelo-quiz-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions (and their timers) live in this process; the in-memory map is the source of truth.
//   - Redis holds a liveness marker per session that expires at the attempt deadline,
//     so other instances and operators can see who is mid-attempt.
type SessionStore struct {
	client   *redis.Client
	fallback time.Duration
	log      *slog.Logger
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, fallbackTTL time.Duration, log *slog.Logger) *SessionStore {
	return &SessionStore{
		client:   client,
		fallback: fallbackTTL,
		log:      log,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(key string, create func() *app.Session) (*app.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[key]; ok {
		return session, false
	}
	session := create()
	s.sessions[key] = session

	ttl := time.Until(session.Deadline())
	if ttl <= 0 {
		ttl = s.fallback
	}
	// best-effort liveness marker
	if err := s.client.Set(context.Background(), s.key(key), session.Deadline().UTC().Format(time.RFC3339), ttl).Err(); err != nil {
		s.log.Debug("set session marker failed", slog.String("key", key), slog.Any("error", err))
	}
	return session, true
}

func (s *SessionStore) Get(key string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[key]
	return session, ok
}

func (s *SessionStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[key]; !ok {
		return
	}
	delete(s.sessions, key)
	if err := s.client.Del(context.Background(), s.key(key)).Err(); err != nil {
		s.log.Debug("clear session marker failed", slog.String("key", key), slog.Any("error", err))
	}
}

func (s *SessionStore) key(key string) string {
	return "quiz:session:" + key
}
