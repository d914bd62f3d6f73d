package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"kheelo-quiz-service/internal/app"
	"kheelo-quiz-service/internal/domain"
	"kheelo-quiz-service/internal/infra/memory"
)

type AllocationSuite struct {
	suite.Suite

	ctx      context.Context
	store    *memory.Store
	locker   *memory.Locker
	notifier *recordingNotifier
	svc      *app.AllocationService
}

func TestAllocationSuite(t *testing.T) {
	suite.Run(t, new(AllocationSuite))
}

func (s *AllocationSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewStore()
	seedThreeQuestionQuiz(s.store)
	s.locker = memory.NewLocker()
	s.notifier = &recordingNotifier{}
	s.svc = app.NewAllocationService(s.store, s.locker, s.notifier, discardLogger())
}

func (s *AllocationSuite) points(userID string) int {
	u, ok := s.store.User(userID)
	s.Require().True(ok, "user %s", userID)
	return u.Points
}

// seedScores adds one evaluated attempt per score, owned by users u0..uN.
func (s *AllocationSuite) seedScores(scores ...int) {
	for i, score := range scores {
		userID := fmt.Sprintf("u%d", i)
		addUser(s.store, userID, 0)
		addEvaluatedAttempt(s.store, fmt.Sprintf("a%d", i), userID, score, baseTime.Add(time.Duration(i)*time.Minute))
	}
}

func (s *AllocationSuite) TestSingleTopScorerOfTen() {
	s.seedScores(10, 20, 30, 40, 50, 60, 70, 80, 95, 90)

	result, err := s.svc.Allocate(s.ctx, domain.AllocationRequest{QuizID: "quiz-1", PointsPerWinner: 5, PercentageThreshold: 10})
	s.Require().NoError(err)

	s.Equal(domain.AllocationSummary{EligibleWinners: 1, PointsPerWinner: 5, TotalPointsDistributed: 5}, result.Allocation)
	s.Require().Len(result.Winners, 1)
	s.Equal("u8", result.Winners[0].UserID)
	s.Equal(95, result.Winners[0].Score)
	s.Equal("name-u8", result.Winners[0].UserName)
	s.Equal("u8@example.com", result.Winners[0].UserEmail)

	s.Equal(5, s.points("u8"))
	for i := 0; i < 10; i++ {
		if i == 8 {
			continue
		}
		s.Equal(0, s.points(fmt.Sprintf("u%d", i)))
	}
	s.Len(s.store.Winners("quiz-1"), 1)
}

func (s *AllocationSuite) TestCeilingOfWinnerCount() {
	s.seedScores(90, 80, 70)

	result, err := s.svc.Allocate(s.ctx, domain.AllocationRequest{QuizID: "quiz-1", PointsPerWinner: 10, PercentageThreshold: 50})
	s.Require().NoError(err)

	s.Equal(2, result.Allocation.EligibleWinners)
	s.Equal(20, result.Allocation.TotalPointsDistributed)
	s.Equal(10, s.points("u0"))
	s.Equal(10, s.points("u1"))
	s.Equal(0, s.points("u2"))
}

func (s *AllocationSuite) TestThresholdHundredSelectsEveryone() {
	s.seedScores(10, 0, 55)

	result, err := s.svc.Allocate(s.ctx, domain.AllocationRequest{QuizID: "quiz-1", PointsPerWinner: 1, PercentageThreshold: 100})
	s.Require().NoError(err)
	s.Equal(3, result.Allocation.EligibleWinners)
	s.Equal([]string{"u2", "u0", "u1"}, winnerIDs(result.Winners))
}

func (s *AllocationSuite) TestSingleAttemptAlwaysWins() {
	s.seedScores(0)

	result, err := s.svc.Allocate(s.ctx, domain.AllocationRequest{QuizID: "quiz-1", PointsPerWinner: 7, PercentageThreshold: 1})
	s.Require().NoError(err)
	s.Equal(1, result.Allocation.EligibleWinners)
	s.Equal(7, s.points("u0"))
}

func (s *AllocationSuite) TestTieBrokenByEarlierCompletion() {
	addUser(s.store, "late", 0)
	addUser(s.store, "early", 0)
	addEvaluatedAttempt(s.store, "a-late", "late", 80, baseTime.Add(time.Hour))
	addEvaluatedAttempt(s.store, "a-early", "early", 80, baseTime)

	result, err := s.svc.Allocate(s.ctx, domain.AllocationRequest{QuizID: "quiz-1", PointsPerWinner: 3, PercentageThreshold: 1})
	s.Require().NoError(err)
	s.Equal([]string{"early"}, winnerIDs(result.Winners))
}

func (s *AllocationSuite) TestRejectsPendingEvaluation() {
	s.seedScores(90, 80)
	addUser(s.store, "pending", 0)
	addSubmittedAttempt(s.store, "a-pending", "pending", baseTime, 1, 0, 2)

	_, err := s.svc.Allocate(s.ctx, domain.AllocationRequest{QuizID: "quiz-1", PointsPerWinner: 5, PercentageThreshold: 100})
	s.Require().Error(err)
	s.ErrorIs(err, domain.ErrValidation)
	s.Equal(0, s.points("u0"))
	s.Equal(0, s.points("u1"))
	s.Empty(s.notifier.results)
}

func (s *AllocationSuite) TestRejectsRepeatAllocation() {
	s.seedScores(90, 80)
	req := domain.AllocationRequest{QuizID: "quiz-1", PointsPerWinner: 5, PercentageThreshold: 50}

	_, err := s.svc.Allocate(s.ctx, req)
	s.Require().NoError(err)
	_, err = s.svc.Allocate(s.ctx, req)
	s.ErrorIs(err, domain.ErrAlreadyAllocated)

	s.Equal(5, s.points("u0"))
	s.Len(s.notifier.results, 1)
}

func (s *AllocationSuite) TestRejectsQuizWithoutAttempts() {
	_, err := s.svc.Allocate(s.ctx, domain.AllocationRequest{QuizID: "quiz-1", PointsPerWinner: 5, PercentageThreshold: 50})
	s.ErrorIs(err, domain.ErrValidation)
}

func (s *AllocationSuite) TestUnknownQuiz() {
	_, err := s.svc.Allocate(s.ctx, domain.AllocationRequest{QuizID: "nope", PointsPerWinner: 5, PercentageThreshold: 50})
	s.ErrorIs(err, domain.ErrQuizNotFound)
}

func (s *AllocationSuite) TestNotifierFailureDoesNotFailAllocation() {
	s.seedScores(90)
	s.notifier.err = errors.New("broker down")

	result, err := s.svc.Allocate(s.ctx, domain.AllocationRequest{QuizID: "quiz-1", PointsPerWinner: 5, PercentageThreshold: 50})
	s.Require().NoError(err)
	s.Require().Len(s.notifier.results, 1)
	s.Equal(result, s.notifier.results[0])
	s.Equal(5, s.points("u0"))
}

func (s *AllocationSuite) TestBusyQuiz() {
	s.seedScores(90)
	release, err := s.locker.TryLock(s.ctx, "quiz:lock:quiz-1")
	s.Require().NoError(err)
	defer release()

	_, err = s.svc.Allocate(s.ctx, domain.AllocationRequest{QuizID: "quiz-1", PointsPerWinner: 5, PercentageThreshold: 50})
	s.ErrorIs(err, domain.ErrQuizBusy)
	s.Equal(0, s.points("u0"))
}

func TestAllocateValidatesRequest(t *testing.T) {
	svc := app.NewAllocationService(memory.NewStore(), memory.NewLocker(), nil, discardLogger())
	cases := map[string]domain.AllocationRequest{
		"missing quiz":    {PointsPerWinner: 5, PercentageThreshold: 10},
		"zero threshold":  {QuizID: "quiz-1", PointsPerWinner: 5, PercentageThreshold: 0},
		"threshold > 100": {QuizID: "quiz-1", PointsPerWinner: 5, PercentageThreshold: 101},
		"zero points":     {QuizID: "quiz-1", PointsPerWinner: 0, PercentageThreshold: 10},
		"negative points": {QuizID: "quiz-1", PointsPerWinner: -3, PercentageThreshold: 10},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Allocate(context.Background(), req)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestEvaluateThenAllocate(t *testing.T) {
	store := memory.NewStore()
	seedThreeQuestionQuiz(store)
	addUser(store, "ux", 10)
	addUser(store, "uy", 10)
	addSubmittedAttempt(store, "x", "ux", baseTime, 1, 0, 2)
	addSubmittedAttempt(store, "y", "uy", baseTime, 1, 1, 0)
	locker := memory.NewLocker()
	ctx := context.Background()

	alloc := app.NewAllocationService(store, locker, nil, discardLogger())
	_, err := alloc.Allocate(ctx, domain.AllocationRequest{QuizID: "quiz-1", PointsPerWinner: 5, PercentageThreshold: 50})
	require.ErrorIs(t, err, domain.ErrValidation, "allocation before evaluation must fail")

	_, err = app.NewEvaluationService(store, locker, discardLogger()).Evaluate(ctx, "quiz-1", answerKey)
	require.NoError(t, err)

	result, err := alloc.Allocate(ctx, domain.AllocationRequest{QuizID: "quiz-1", PointsPerWinner: 5, PercentageThreshold: 50})
	require.NoError(t, err)
	assert.Equal(t, []string{"ux"}, winnerIDs(result.Winners))

	ux, _ := store.User("ux")
	uy, _ := store.User("uy")
	assert.Equal(t, 15, ux.Points)
	assert.Equal(t, 10, uy.Points)
}

func winnerIDs(winners []domain.Winner) []string {
	ids := make([]string, 0, len(winners))
	for _, w := range winners {
		ids = append(ids, w.UserID)
	}
	return ids
}
