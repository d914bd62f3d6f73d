package app_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"kheelo-quiz-service/internal/app"
	"kheelo-quiz-service/internal/domain"
	"kheelo-quiz-service/internal/infra/memory"
)

var baseTime = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedThreeQuestionQuiz stores quiz-1 whose answer key is q1=1, q2=0, q3=2.
func seedThreeQuestionQuiz(store *memory.Store) {
	store.AddQuiz(domain.Quiz{ID: "quiz-1", Title: "General knowledge"}, []domain.Question{
		{ID: "q1", Text: "2 + 2?", Options: domain.Options{"3", "4", "5"}},
		{ID: "q2", Text: "Capital of India?", Options: domain.Options{"Delhi", "Mumbai"}},
		{ID: "q3", Text: "Largest planet?", Options: domain.Options{"Mars", "Venus", "Jupiter"}},
	})
}

var answerKey = map[string]int{"q1": 1, "q2": 0, "q3": 2}

func addUser(store *memory.Store, id string, points int) {
	store.AddUser(domain.User{ID: id, Name: "name-" + id, Email: id + "@example.com", Points: points})
}

// addSubmittedAttempt seeds an unevaluated attempt with one answer per question,
// in q1..qN order. domain.Unanswered leaves a question blank.
func addSubmittedAttempt(store *memory.Store, id, userID string, completed time.Time, selected ...int) {
	answers := make([]domain.Answer, 0, len(selected))
	for i, opt := range selected {
		qID := fmt.Sprintf("q%d", i+1)
		answers = append(answers, domain.Answer{
			ID:             id + "-" + qID,
			UserID:         userID,
			AttemptID:      id,
			QuestionID:     qID,
			SelectedOption: opt,
		})
	}
	store.AddAttempt(domain.QuizAttempt{
		ID:          id,
		UserID:      userID,
		QuizID:      "quiz-1",
		IsCompleted: true,
		CompletedAt: completed,
	}, answers)
}

// addEvaluatedAttempt seeds an attempt that has already been scored.
func addEvaluatedAttempt(store *memory.Store, id, userID string, score int, completed time.Time) {
	at := completed.Add(time.Hour)
	store.AddAttempt(domain.QuizAttempt{
		ID:          id,
		UserID:      userID,
		QuizID:      "quiz-1",
		Score:       score,
		IsCompleted: true,
		IsEvaluated: true,
		CompletedAt: completed,
		EvaluatedAt: &at,
	}, nil)
}

type recordingNotifier struct {
	mu      sync.Mutex
	results []domain.AllocationResult
	err     error
}

func (n *recordingNotifier) NotifyWinners(_ context.Context, result domain.AllocationResult) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, result)
	return n.err
}

// failingStore hands out transactions whose MarkAttemptEvaluated fails for one attempt.
type failingStore struct {
	inner    *memory.Store
	failOnID string
	injected error
}

func (s *failingStore) WithQuizTx(ctx context.Context, quizID string, fn func(ctx context.Context, tx app.Tx) error) error {
	return s.inner.WithQuizTx(ctx, quizID, func(ctx context.Context, tx app.Tx) error {
		return fn(ctx, &failingTx{Tx: tx, store: s})
	})
}

type failingTx struct {
	app.Tx
	store *failingStore
}

func (t *failingTx) MarkAttemptEvaluated(ctx context.Context, attemptID string, score int, at time.Time) error {
	if attemptID == t.store.failOnID {
		return t.store.injected
	}
	return t.Tx.MarkAttemptEvaluated(ctx, attemptID, score, at)
}

var errInjected = errors.New("connection reset")
