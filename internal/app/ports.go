package app

import (
	"context"
	"time"

	"kheelo-quiz-service/internal/domain"
)

// Store opens a transaction scoped to one quiz. Implementations must run fn
// atomically and serialize concurrent calls for the same quiz.
type Store interface {
	WithQuizTx(ctx context.Context, quizID string, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the row-level view of persistence available inside WithQuizTx.
type Tx interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuestions(ctx context.Context, quizID string) ([]domain.Question, error)
	SetCorrectOption(ctx context.Context, questionID string, option int) error

	ListAnswersByQuestion(ctx context.Context, questionID string) ([]domain.Answer, error)
	ListAnswersByAttempt(ctx context.Context, attemptID string) ([]domain.Answer, error)
	SetAnswerCorrect(ctx context.Context, answerID string, correct bool) error

	ListAttempts(ctx context.Context, quizID string) ([]domain.QuizAttempt, error)
	// MarkAttemptEvaluated stores the score; the evaluation timestamp is kept from the first pass.
	MarkAttemptEvaluated(ctx context.Context, attemptID string, score int, at time.Time) error
	HasAttempt(ctx context.Context, quizID, userID string) (bool, error)
	CreateAttempt(ctx context.Context, attempt domain.QuizAttempt, answers []domain.Answer) error

	GetUser(ctx context.Context, userID string) (domain.User, error)
	AddUserPoints(ctx context.Context, userID string, points int) error

	// GetAllocation returns nil when the quiz has not been allocated yet.
	GetAllocation(ctx context.Context, quizID string) (*domain.Allocation, error)
	SaveAllocation(ctx context.Context, allocation domain.Allocation, winners []domain.Winner) error
}

// Locker hands out short-lived exclusive locks. TryLock returns
// domain.ErrQuizBusy when the key is already held.
type Locker interface {
	TryLock(ctx context.Context, key string) (release func(), err error)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.QuizContent, error)
}

// SessionRepository abstracts how running attempt sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	// GetOrCreate returns the live session under key, calling create when there is none.
	// The bool is true when create was used.
	GetOrCreate(key string, create func() *Session) (*Session, bool)
	Get(key string) (*Session, bool)
	Delete(key string)
}

// WinnerNotifier is told about committed allocations.
type WinnerNotifier interface {
	NotifyWinners(ctx context.Context, result domain.AllocationResult) error
}

// NopNotifier drops notifications.
type NopNotifier struct{}

func (NopNotifier) NotifyWinners(context.Context, domain.AllocationResult) error { return nil }

func quizLockKey(quizID string) string {
	return "quiz:lock:" + quizID
}
