package postgres

import (
	"time"

	"github.com/uptrace/bun"
	"kheelo-quiz-service/internal/domain"
)

type userModel struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID     string `bun:"id,pk"`
	Name   string `bun:"name,notnull"`
	Email  string `bun:"email,notnull"`
	Points int    `bun:"points,notnull"`
}

type quizModel struct {
	bun.BaseModel `bun:"table:quizzes,alias:qz"`

	ID               string `bun:"id,pk"`
	Title            string `bun:"title,notnull"`
	TimeLimitSeconds int    `bun:"time_limit_seconds,notnull"`
}

type questionModel struct {
	bun.BaseModel `bun:"table:questions,alias:qn"`

	ID               string         `bun:"id,pk"`
	QuizID           string         `bun:"quiz_id,notnull"`
	Text             string         `bun:"text,notnull"`
	Position         int            `bun:"position,notnull"`
	Options          domain.Options `bun:"options,type:jsonb,notnull"`
	CorrectOption    *int           `bun:"correct_option"`
	HasCorrectAnswer bool           `bun:"has_correct_answer,notnull"`
}

type attemptModel struct {
	bun.BaseModel `bun:"table:quiz_attempts,alias:qa"`

	ID          string     `bun:"id,pk"`
	UserID      string     `bun:"user_id,notnull"`
	QuizID      string     `bun:"quiz_id,notnull"`
	Score       int        `bun:"score,notnull"`
	Points      int        `bun:"points,notnull"`
	IsCompleted bool       `bun:"is_completed,notnull"`
	IsEvaluated bool       `bun:"is_evaluated,notnull"`
	CompletedAt time.Time  `bun:"completed_at,notnull"`
	EvaluatedAt *time.Time `bun:"evaluated_at"`
}

type answerModel struct {
	bun.BaseModel `bun:"table:answers,alias:an"`

	ID             string `bun:"id,pk"`
	UserID         string `bun:"user_id,notnull"`
	QuestionID     string `bun:"question_id,notnull"`
	AttemptID      string `bun:"attempt_id,notnull"`
	SelectedOption int    `bun:"selected_option,notnull"`
	IsCorrect      *bool  `bun:"is_correct"`
}

type allocationModel struct {
	bun.BaseModel `bun:"table:quiz_allocations,alias:al"`

	QuizID                 string    `bun:"quiz_id,pk"`
	PercentageThreshold    int       `bun:"percentage_threshold,notnull"`
	PointsPerWinner        int       `bun:"points_per_winner,notnull"`
	EligibleWinners        int       `bun:"eligible_winners,notnull"`
	TotalPointsDistributed int       `bun:"total_points_distributed,notnull"`
	AllocatedAt            time.Time `bun:"allocated_at,notnull"`
}

type winnerModel struct {
	bun.BaseModel `bun:"table:allocation_winners,alias:aw"`

	QuizID        string `bun:"quiz_id,pk"`
	UserID        string `bun:"user_id,pk"`
	AttemptID     string `bun:"attempt_id,notnull"`
	Rank          int    `bun:"rank,notnull"`
	Score         int    `bun:"score,notnull"`
	PointsAwarded int    `bun:"points_awarded,notnull"`
}

func (m userModel) toDomain() domain.User {
	return domain.User{ID: m.ID, Name: m.Name, Email: m.Email, Points: m.Points}
}

func (m questionModel) toDomain() domain.Question {
	return domain.Question{
		ID:               m.ID,
		QuizID:           m.QuizID,
		Text:             m.Text,
		Position:         m.Position,
		Options:          m.Options,
		CorrectOption:    m.CorrectOption,
		HasCorrectAnswer: m.HasCorrectAnswer,
	}
}

func (m attemptModel) toDomain() domain.QuizAttempt {
	return domain.QuizAttempt{
		ID:          m.ID,
		UserID:      m.UserID,
		QuizID:      m.QuizID,
		Score:       m.Score,
		Points:      m.Points,
		IsCompleted: m.IsCompleted,
		IsEvaluated: m.IsEvaluated,
		CompletedAt: m.CompletedAt,
		EvaluatedAt: m.EvaluatedAt,
	}
}

func (m answerModel) toDomain() domain.Answer {
	return domain.Answer{
		ID:             m.ID,
		UserID:         m.UserID,
		QuestionID:     m.QuestionID,
		AttemptID:      m.AttemptID,
		SelectedOption: m.SelectedOption,
		IsCorrect:      m.IsCorrect,
	}
}

func (m allocationModel) toDomain() domain.Allocation {
	return domain.Allocation{
		QuizID:                 m.QuizID,
		PercentageThreshold:    m.PercentageThreshold,
		PointsPerWinner:        m.PointsPerWinner,
		EligibleWinners:        m.EligibleWinners,
		TotalPointsDistributed: m.TotalPointsDistributed,
		AllocatedAt:            m.AllocatedAt,
	}
}
