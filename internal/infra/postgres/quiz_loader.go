package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"kheelo-quiz-service/internal/domain"
)

// QuizLoader reads quiz content for attempt sessions straight from Postgres.
// Correct options are never selected so the content is safe to hand to players.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.QuizContent, error) {
	var quiz domain.Quiz
	err := l.pool.QueryRow(ctx,
		`SELECT id, title, time_limit_seconds FROM quizzes WHERE id=$1`, quizID,
	).Scan(&quiz.ID, &quiz.Title, &quiz.TimeLimitSeconds)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizContent{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.QuizContent{}, &domain.StorageError{Op: "load quiz", Err: err}
	}

	rows, err := l.pool.Query(ctx,
		`SELECT id, text, position, options FROM questions WHERE quiz_id=$1 ORDER BY position, id`, quizID)
	if err != nil {
		return domain.QuizContent{}, &domain.StorageError{Op: "load questions", Err: err}
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		q := domain.Question{QuizID: quizID}
		var raw []byte
		if err := rows.Scan(&q.ID, &q.Text, &q.Position, &raw); err != nil {
			return domain.QuizContent{}, &domain.StorageError{Op: "scan question", Err: err}
		}
		if err := json.Unmarshal(raw, &q.Options); err != nil {
			return domain.QuizContent{}, fmt.Errorf("question %s options: %w", q.ID, err)
		}
		questions = append(questions, q)
		quiz.QuestionIDs = append(quiz.QuestionIDs, q.ID)
	}
	if err := rows.Err(); err != nil {
		return domain.QuizContent{}, &domain.StorageError{Op: "load questions", Err: err}
	}
	quiz.TotalQuestions = len(questions)

	return domain.QuizContent{Quiz: quiz, Questions: questions}, nil
}
