package app

import (
	"sort"

	"kheelo-quiz-service/internal/domain"
)

// ScorePercent converts a correct count into a 0-100 score, rounding half up.
func ScorePercent(correct, total int) int {
	if total <= 0 || correct <= 0 {
		return 0
	}
	if correct > total {
		correct = total
	}
	return (200*correct + total) / (2 * total)
}

// WinnerCount is max(1, ceil(total*threshold/100)), never more than total.
func WinnerCount(total, threshold int) int {
	n := (total*threshold + 99) / 100
	if n < 1 {
		n = 1
	}
	if n > total {
		n = total
	}
	return n
}

// RankAttempts orders attempts by score desc, then earlier completion, then id.
// The input slice is left untouched.
func RankAttempts(attempts []domain.QuizAttempt) []domain.QuizAttempt {
	ranked := make([]domain.QuizAttempt, len(attempts))
	copy(ranked, attempts)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.CompletedAt.Equal(b.CompletedAt) {
			return a.CompletedAt.Before(b.CompletedAt)
		}
		return a.ID < b.ID
	})
	return ranked
}

// validateCorrectAnswers checks that correctAnswers covers exactly the quiz's
// questions and that each index addresses an existing option.
func validateCorrectAnswers(questions []domain.Question, correctAnswers map[string]int) error {
	if len(questions) == 0 {
		return domain.NewValidationError("quizId", "quiz has no questions")
	}

	known := make(map[string]struct{}, len(questions))
	var missing []string
	for _, q := range questions {
		known[q.ID] = struct{}{}
		idx, ok := correctAnswers[q.ID]
		if !ok {
			missing = append(missing, q.ID)
			continue
		}
		if !q.ValidOption(idx) {
			return domain.NewValidationError("correctAnswers", "option %d out of range for question %s (%d options)", idx, q.ID, len(q.Options))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return domain.NewValidationError("correctAnswers", "missing correct answer for questions %v", missing)
	}

	var unknown []string
	for id := range correctAnswers {
		if _, ok := known[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return domain.NewValidationError("correctAnswers", "questions %v do not belong to this quiz", unknown)
	}
	return nil
}
