package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"kheelo-quiz-service/internal/domain"
	"kheelo-quiz-service/internal/infra/memory"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	store := memory.NewStore()
	store.AddQuiz(sampleQuiz())
	loader := &countingLoader{QuizLoader: store}
	repo := NewQuizRepository(client, loader, time.Minute)

	content, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("quiz:quiz-1:content") {
		t.Fatalf("expected content key to be written")
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get cached quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(cached.Questions) != len(content.Questions) || cached.Questions[1].Options[1] != "9" {
		t.Fatalf("cached content differs: %+v", cached)
	}
}

func TestQuizRepositoryReloadsAfterExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := memory.NewStore()
	store.AddQuiz(sampleQuiz())
	loader := &countingLoader{QuizLoader: store}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute)

	_, _ = repo.GetQuiz(context.Background(), "quiz-1")
	mr.FastForward(2 * time.Minute)
	_, _ = repo.GetQuiz(context.Background(), "quiz-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls=%d", loader.calls)
	}
}

type countingLoader struct {
	memory.QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.QuizContent, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() (domain.Quiz, []domain.Question) {
	return domain.Quiz{ID: "quiz-1", Title: "Arithmetic", TimeLimitSeconds: 60}, []domain.Question{
		{ID: "q1", Text: "What is 2 + 2?", Options: domain.Options{"3", "4", "5"}},
		{ID: "q2", Text: "What is 3 * 3?", Options: domain.Options{"6", "9"}},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
