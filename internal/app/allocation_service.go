package app

import (
	"context"
	"log/slog"
	"time"

	"kheelo-quiz-service/internal/domain"
)

// AllocationService credits the top scorers of an evaluated quiz.
type AllocationService struct {
	store    Store
	locker   Locker
	notifier WinnerNotifier
	log      *slog.Logger
	now      func() time.Time
}

func NewAllocationService(store Store, locker Locker, notifier WinnerNotifier, log *slog.Logger) *AllocationService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &AllocationService{store: store, locker: locker, notifier: notifier, log: log, now: time.Now}
}

// Allocate selects the top percentageThreshold percent of attempts (at least
// one) and adds pointsPerWinner to each owner's balance. A quiz is allocated
// at most once; the ledger row written here rejects any repeat.
func (s *AllocationService) Allocate(ctx context.Context, req domain.AllocationRequest) (domain.AllocationResult, error) {
	if err := validateAllocationRequest(req); err != nil {
		return domain.AllocationResult{}, err
	}

	release, err := s.locker.TryLock(ctx, quizLockKey(req.QuizID))
	if err != nil {
		return domain.AllocationResult{}, err
	}
	defer release()

	result := domain.AllocationResult{QuizID: req.QuizID}
	err = s.store.WithQuizTx(ctx, req.QuizID, func(ctx context.Context, tx Tx) error {
		if _, err := tx.GetQuiz(ctx, req.QuizID); err != nil {
			return err
		}
		existing, err := tx.GetAllocation(ctx, req.QuizID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrAlreadyAllocated
		}

		attempts, err := tx.ListAttempts(ctx, req.QuizID)
		if err != nil {
			return err
		}
		if len(attempts) == 0 {
			return domain.NewValidationError("quizId", "quiz has no attempts to allocate")
		}
		pending := 0
		for _, a := range attempts {
			if !a.IsEvaluated {
				pending++
			}
		}
		if pending > 0 {
			return domain.NewValidationError("quizId", "quiz is not fully evaluated: %d of %d attempts pending", pending, len(attempts))
		}

		count := WinnerCount(len(attempts), req.PercentageThreshold)
		winners := make([]domain.Winner, 0, count)
		for _, attempt := range RankAttempts(attempts)[:count] {
			user, err := tx.GetUser(ctx, attempt.UserID)
			if err != nil {
				return err
			}
			if err := tx.AddUserPoints(ctx, user.ID, req.PointsPerWinner); err != nil {
				return err
			}
			winners = append(winners, domain.Winner{
				UserID:        user.ID,
				UserName:      user.Name,
				UserEmail:     user.Email,
				AttemptID:     attempt.ID,
				Score:         attempt.Score,
				PointsAwarded: req.PointsPerWinner,
			})
		}

		summary := domain.AllocationSummary{
			EligibleWinners:        count,
			PointsPerWinner:        req.PointsPerWinner,
			TotalPointsDistributed: count * req.PointsPerWinner,
		}
		ledger := domain.Allocation{
			QuizID:                 req.QuizID,
			PercentageThreshold:    req.PercentageThreshold,
			PointsPerWinner:        req.PointsPerWinner,
			EligibleWinners:        summary.EligibleWinners,
			TotalPointsDistributed: summary.TotalPointsDistributed,
			AllocatedAt:            s.now(),
		}
		if err := tx.SaveAllocation(ctx, ledger, winners); err != nil {
			return err
		}

		result.Allocation = summary
		result.Winners = winners
		return nil
	})
	if err != nil {
		return domain.AllocationResult{}, err
	}

	s.log.Info("points allocated",
		slog.String("quiz_id", req.QuizID),
		slog.Int("winners", result.Allocation.EligibleWinners),
		slog.Int("total_points", result.Allocation.TotalPointsDistributed))

	if err := s.notifier.NotifyWinners(ctx, result); err != nil {
		s.log.Warn("winner notification failed", slog.String("quiz_id", req.QuizID), slog.Any("error", err))
	}
	return result, nil
}

func validateAllocationRequest(req domain.AllocationRequest) error {
	if req.QuizID == "" {
		return domain.NewValidationError("quizId", "is required")
	}
	if req.PercentageThreshold < 1 || req.PercentageThreshold > 100 {
		return domain.NewValidationError("percentageThreshold", "must be between 1 and 100, got %d", req.PercentageThreshold)
	}
	if req.PointsPerWinner <= 0 {
		return domain.NewValidationError("pointsPerWinner", "must be positive, got %d", req.PointsPerWinner)
	}
	return nil
}
