package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"kheelo-quiz-service/internal/domain"
)

// QuizLoader fetches quiz content from a backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.QuizContent, error)
}

// QuizRepository caches quiz content with TTL so starting attempts does not hit the DB each time.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	content   domain.QuizContent
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.QuizContent, error) {
	if content, ok := r.lookup(quizID); ok {
		return content, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		if content, ok := r.lookup(quizID); ok {
			return content, nil
		}

		content, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.QuizContent{}, err
		}

		r.mu.Lock()
		r.cache[quizID] = cachedQuiz{
			content:   content,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return content, nil
	})
	if err != nil {
		return domain.QuizContent{}, err
	}
	return result.(domain.QuizContent), nil
}

func (r *QuizRepository) lookup(quizID string) (domain.QuizContent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[quizID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.QuizContent{}, false
	}
	return entry.content, true
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
