package app

import (
	"context"
	"log/slog"
	"time"

	"kheelo-quiz-service/internal/domain"
)

// EvaluationService assigns correct options and re-scores every attempt of a quiz.
type EvaluationService struct {
	store  Store
	locker Locker
	log    *slog.Logger
	now    func() time.Time
}

func NewEvaluationService(store Store, locker Locker, log *slog.Logger) *EvaluationService {
	return &EvaluationService{store: store, locker: locker, log: log, now: time.Now}
}

// Evaluate persists the correct option of every question, recomputes answer
// correctness and attempt scores, and marks the attempts evaluated. All of it
// commits together or not at all.
func (s *EvaluationService) Evaluate(ctx context.Context, quizID string, correctAnswers map[string]int) (domain.EvaluationResult, error) {
	if quizID == "" {
		return domain.EvaluationResult{}, domain.NewValidationError("quizId", "is required")
	}

	release, err := s.locker.TryLock(ctx, quizLockKey(quizID))
	if err != nil {
		return domain.EvaluationResult{}, err
	}
	defer release()

	result := domain.EvaluationResult{QuizID: quizID}
	err = s.store.WithQuizTx(ctx, quizID, func(ctx context.Context, tx Tx) error {
		quiz, err := tx.GetQuiz(ctx, quizID)
		if err != nil {
			return err
		}
		allocation, err := tx.GetAllocation(ctx, quizID)
		if err != nil {
			return err
		}
		if allocation != nil {
			return domain.ErrAlreadyAllocated
		}

		questions, err := tx.ListQuestions(ctx, quiz.ID)
		if err != nil {
			return err
		}
		if err := validateCorrectAnswers(questions, correctAnswers); err != nil {
			return err
		}

		for _, q := range questions {
			option := correctAnswers[q.ID]
			if err := tx.SetCorrectOption(ctx, q.ID, option); err != nil {
				return err
			}
			answers, err := tx.ListAnswersByQuestion(ctx, q.ID)
			if err != nil {
				return err
			}
			for _, a := range answers {
				if err := tx.SetAnswerCorrect(ctx, a.ID, a.SelectedOption == option); err != nil {
					return err
				}
			}
			result.UpdatedQuestions++
		}

		attempts, err := tx.ListAttempts(ctx, quiz.ID)
		if err != nil {
			return err
		}
		now := s.now()
		for _, attempt := range attempts {
			answers, err := tx.ListAnswersByAttempt(ctx, attempt.ID)
			if err != nil {
				return err
			}
			correct := 0
			for _, a := range answers {
				if a.IsCorrect != nil && *a.IsCorrect {
					correct++
				}
			}
			score := ScorePercent(correct, len(questions))
			if err := tx.MarkAttemptEvaluated(ctx, attempt.ID, score, now); err != nil {
				return err
			}
			result.EvaluatedAttempts++
		}
		return nil
	})
	if err != nil {
		return domain.EvaluationResult{}, err
	}

	s.log.Info("quiz evaluated",
		slog.String("quiz_id", quizID),
		slog.Int("questions", result.UpdatedQuestions),
		slog.Int("attempts", result.EvaluatedAttempts))
	return result, nil
}

// Status reports the correct-answer assignment of each question and how many
// attempts are still waiting for evaluation.
func (s *EvaluationService) Status(ctx context.Context, quizID string) (domain.EvaluationStatus, error) {
	if quizID == "" {
		return domain.EvaluationStatus{}, domain.NewValidationError("quizId", "is required")
	}

	var status domain.EvaluationStatus
	err := s.store.WithQuizTx(ctx, quizID, func(ctx context.Context, tx Tx) error {
		quiz, err := tx.GetQuiz(ctx, quizID)
		if err != nil {
			return err
		}
		questions, err := tx.ListQuestions(ctx, quizID)
		if err != nil {
			return err
		}
		attempts, err := tx.ListAttempts(ctx, quizID)
		if err != nil {
			return err
		}
		allocation, err := tx.GetAllocation(ctx, quizID)
		if err != nil {
			return err
		}

		status.Quiz = quiz
		status.Questions = make([]domain.QuestionStatus, 0, len(questions))
		for _, q := range questions {
			status.Questions = append(status.Questions, domain.QuestionStatus{
				ID:               q.ID,
				Text:             q.Text,
				Options:          q.Options,
				CorrectOption:    q.CorrectOption,
				HasCorrectAnswer: q.HasCorrectAnswer,
			})
		}
		status.Attempts.Total = len(attempts)
		for _, a := range attempts {
			if a.IsEvaluated {
				status.Attempts.Evaluated++
			}
		}
		status.Attempts.Pending = status.Attempts.Total - status.Attempts.Evaluated
		status.Allocation = allocation
		return nil
	})
	if err != nil {
		return domain.EvaluationStatus{}, err
	}
	return status, nil
}
