package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"kheelo-quiz-service/internal/domain"
)

// QuizLoader fetches quiz content from a backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.QuizContent, error)
}

// QuizRepository caches quiz content in Redis and falls back to a loader on cache miss.
// Content is stored as JSON: SET quiz:{quizID}:content {json} EX ttl
type QuizRepository struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewQuizRepository(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.QuizContent, error) {
	if content, ok := r.cached(ctx, quizID); ok {
		return content, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if content, ok := r.cached(ctx, quizID); ok {
			return content, nil
		}

		content, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.QuizContent{}, err
		}

		if data, err := json.Marshal(content); err == nil {
			// best-effort: a failed write only costs a reload next time
			_ = r.client.Set(ctx, r.contentKey(quizID), data, r.ttlWithJitter()).Err()
		}
		return content, nil
	})
	if err != nil {
		return domain.QuizContent{}, err
	}
	return result.(domain.QuizContent), nil
}

func (r *QuizRepository) cached(ctx context.Context, quizID string) (domain.QuizContent, bool) {
	data, err := r.client.Get(ctx, r.contentKey(quizID)).Bytes()
	if err != nil {
		return domain.QuizContent{}, false
	}
	var content domain.QuizContent
	if err := json.Unmarshal(data, &content); err != nil {
		return domain.QuizContent{}, false
	}
	return content, true
}

func (r *QuizRepository) contentKey(quizID string) string {
	return "quiz:" + quizID + ":content"
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
