package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"kheelo-quiz-service/internal/domain"
)

// releaseScript deletes the lock only if it still carries our token, so an
// expired lock taken over by another instance is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker implements app.Locker with SET NX PX. The TTL bounds how long a
// crashed holder can block a quiz.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

func NewLocker(client *redis.Client, ttl time.Duration, log *slog.Logger) *Locker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Locker{client: client, ttl: ttl, log: log}
}

func (l *Locker) TryLock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, &domain.StorageError{Op: "acquire lock", Err: fmt.Errorf("%s: %w", key, err)}
	}
	if !ok {
		return nil, domain.ErrQuizBusy
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			l.log.Warn("release lock failed", slog.String("key", key), slog.Any("error", err))
		}
	}, nil
}
