package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"kheelo-quiz-service/internal/domain"
)

// AttemptService runs timed quiz attempts and persists them on submission.
type AttemptService struct {
	store        Store
	quizzes      QuizRepository
	sessions     SessionRepository
	defaultLimit time.Duration
	log          *slog.Logger

	now       func() time.Time
	afterFunc func(time.Duration, func()) *time.Timer
	newID     func() string
}

func NewAttemptService(store Store, quizzes QuizRepository, sessions SessionRepository, defaultLimit time.Duration, log *slog.Logger) *AttemptService {
	if defaultLimit <= 0 {
		defaultLimit = 10 * time.Minute
	}
	return &AttemptService{
		store:        store,
		quizzes:      quizzes,
		sessions:     sessions,
		defaultLimit: defaultLimit,
		log:          log,
		now:          time.Now,
		afterFunc:    time.AfterFunc,
		newID:        uuid.NewString,
	}
}

// Start opens (or resumes) the user's attempt at the quiz and arms its countdown.
func (s *AttemptService) Start(ctx context.Context, quizID, userID string) (*Session, error) {
	if quizID == "" || userID == "" {
		return nil, domain.NewValidationError("", "quizId and userId are required")
	}
	if session, ok := s.sessions.Get(SessionKey(quizID, userID)); ok {
		return session, nil
	}

	content, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	err = s.store.WithQuizTx(ctx, quizID, func(ctx context.Context, tx Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		if err := rejectAllocated(ctx, tx, quizID); err != nil {
			return err
		}
		exists, err := tx.HasAttempt(ctx, quizID, userID)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrAttemptExists
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	limit := s.defaultLimit
	if content.Quiz.TimeLimitSeconds > 0 {
		limit = time.Duration(content.Quiz.TimeLimitSeconds) * time.Second
	}

	session, created := s.sessions.GetOrCreate(SessionKey(quizID, userID), func() *Session {
		return NewSessionWithClock(content, userID, limit, s.now)
	})
	if created {
		session.setTimer(s.afterFunc(limit, func() { s.expire(session) }))
		s.log.Debug("attempt started",
			slog.String("quiz_id", quizID),
			slog.String("user_id", userID),
			slog.Time("deadline", session.Deadline()))
	}
	return session, nil
}

// Answer records (or replaces) the user's choice for one question.
func (s *AttemptService) Answer(_ context.Context, quizID, userID, questionID string, option int) error {
	session, ok := s.sessions.Get(SessionKey(quizID, userID))
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.answer(questionID, option)
}

// Submit ends the attempt and stores it unevaluated.
func (s *AttemptService) Submit(ctx context.Context, quizID, userID string) (domain.SubmissionResult, error) {
	session, ok := s.sessions.Get(SessionKey(quizID, userID))
	if !ok {
		return domain.SubmissionResult{}, domain.ErrSessionNotFound
	}
	return s.submit(ctx, session, false)
}

func (s *AttemptService) expire(session *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := s.submit(ctx, session, true); err != nil {
		s.log.Error("forced submission failed",
			slog.String("quiz_id", session.QuizID()),
			slog.String("user_id", session.UserID()),
			slog.Any("error", err))
	}
}

func (s *AttemptService) submit(ctx context.Context, session *Session, forced bool) (domain.SubmissionResult, error) {
	answers, ok := session.claim()
	if !ok {
		// Someone else is submitting; wait for their outcome.
		select {
		case <-session.Done():
			return session.Result()
		case <-ctx.Done():
			return domain.SubmissionResult{}, ctx.Err()
		}
	}

	completedAt := s.now()
	if forced || completedAt.After(session.Deadline()) {
		completedAt = session.Deadline()
	}

	attempt := domain.QuizAttempt{
		ID:          s.newID(),
		UserID:      session.UserID(),
		QuizID:      session.QuizID(),
		IsCompleted: true,
		CompletedAt: completedAt,
	}
	rows := make([]domain.Answer, 0, len(session.content.Questions))
	for _, q := range session.content.Questions {
		selected, ok := answers[q.ID]
		if !ok {
			selected = domain.Unanswered
		}
		rows = append(rows, domain.Answer{
			ID:             s.newID(),
			UserID:         attempt.UserID,
			QuestionID:     q.ID,
			AttemptID:      attempt.ID,
			SelectedOption: selected,
		})
	}

	err := s.store.WithQuizTx(ctx, attempt.QuizID, func(ctx context.Context, tx Tx) error {
		if err := rejectAllocated(ctx, tx, attempt.QuizID); err != nil {
			return err
		}
		exists, err := tx.HasAttempt(ctx, attempt.QuizID, attempt.UserID)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrAttemptExists
		}
		return tx.CreateAttempt(ctx, attempt, rows)
	})

	result := domain.SubmissionResult{Attempt: attempt, Answered: len(answers), Forced: forced}
	if err != nil {
		result = domain.SubmissionResult{}
	}
	s.sessions.Delete(session.Key())
	session.finish(result, err)

	if err != nil {
		return domain.SubmissionResult{}, err
	}
	s.log.Info("attempt submitted",
		slog.String("quiz_id", attempt.QuizID),
		slog.String("user_id", attempt.UserID),
		slog.Int("answered", result.Answered),
		slog.Bool("forced", forced))
	return result, nil
}

// rejectAllocated closes the quiz to new attempts once its points are paid out.
func rejectAllocated(ctx context.Context, tx Tx, quizID string) error {
	allocation, err := tx.GetAllocation(ctx, quizID)
	if err != nil {
		return err
	}
	if allocation != nil {
		return domain.ErrAlreadyAllocated
	}
	return nil
}
