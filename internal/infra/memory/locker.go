package memory

import (
	"context"
	"sync"

	"kheelo-quiz-service/internal/domain"
)

// Locker is a process-local app.Locker.
type Locker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocker() *Locker {
	return &Locker{held: make(map[string]struct{})}
}

func (l *Locker) TryLock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, domain.ErrQuizBusy
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}
