package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"kheelo-quiz-service/internal/app"
	"kheelo-quiz-service/internal/domain"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Store implements app.Store on Postgres. Every transaction takes a
// transaction-scoped advisory lock on the quiz id, so evaluation, allocation
// and attempt submission for one quiz never interleave.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) WithQuizTx(ctx context.Context, quizID string, fn func(ctx context.Context, tx app.Tx) error) error {
	var fnErr error
	err := s.db.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, func(ctx context.Context, btx bun.Tx) error {
		if _, err := btx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext(?))", quizID); err != nil {
			fnErr = wrap("lock quiz", err)
			return fnErr
		}
		fnErr = fn(ctx, &tx{tx: btx})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	return wrap("transaction", err)
}

type tx struct {
	tx bun.Tx
}

func (t *tx) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var m quizModel
	err := t.tx.NewSelect().Model(&m).Where("id = ?", quizID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, wrap("get quiz", err)
	}

	var ids []string
	err = t.tx.NewSelect().
		Model((*questionModel)(nil)).
		Column("id").
		Where("quiz_id = ?", quizID).
		OrderExpr("position ASC, id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return domain.Quiz{}, wrap("list question ids", err)
	}

	return domain.Quiz{
		ID:               m.ID,
		Title:            m.Title,
		QuestionIDs:      ids,
		TotalQuestions:   len(ids),
		TimeLimitSeconds: m.TimeLimitSeconds,
	}, nil
}

func (t *tx) ListQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	var rows []questionModel
	err := t.tx.NewSelect().
		Model(&rows).
		Where("quiz_id = ?", quizID).
		OrderExpr("position ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, wrap("list questions", err)
	}
	out := make([]domain.Question, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (t *tx) SetCorrectOption(ctx context.Context, questionID string, option int) error {
	res, err := t.tx.NewUpdate().
		Model((*questionModel)(nil)).
		Set("correct_option = ?", option).
		Set("has_correct_answer = TRUE").
		Where("id = ?", questionID).
		Exec(ctx)
	if err != nil {
		return wrap("set correct option", err)
	}
	return expectRow(res, domain.ErrQuestionNotFound)
}

func (t *tx) ListAnswersByQuestion(ctx context.Context, questionID string) ([]domain.Answer, error) {
	return t.listAnswers(ctx, "question_id = ?", questionID)
}

func (t *tx) ListAnswersByAttempt(ctx context.Context, attemptID string) ([]domain.Answer, error) {
	return t.listAnswers(ctx, "attempt_id = ?", attemptID)
}

func (t *tx) listAnswers(ctx context.Context, where string, arg string) ([]domain.Answer, error) {
	var rows []answerModel
	if err := t.tx.NewSelect().Model(&rows).Where(where, arg).Order("id").Scan(ctx); err != nil {
		return nil, wrap("list answers", err)
	}
	out := make([]domain.Answer, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (t *tx) SetAnswerCorrect(ctx context.Context, answerID string, correct bool) error {
	res, err := t.tx.NewUpdate().
		Model((*answerModel)(nil)).
		Set("is_correct = ?", correct).
		Where("id = ?", answerID).
		Exec(ctx)
	if err != nil {
		return wrap("set answer correctness", err)
	}
	return expectRow(res, fmt.Errorf("answer %s not found", answerID))
}

func (t *tx) ListAttempts(ctx context.Context, quizID string) ([]domain.QuizAttempt, error) {
	var rows []attemptModel
	err := t.tx.NewSelect().
		Model(&rows).
		Where("quiz_id = ?", quizID).
		OrderExpr("completed_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, wrap("list attempts", err)
	}
	out := make([]domain.QuizAttempt, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (t *tx) MarkAttemptEvaluated(ctx context.Context, attemptID string, score int, at time.Time) error {
	res, err := t.tx.NewUpdate().
		Model((*attemptModel)(nil)).
		Set("score = ?", score).
		Set("is_evaluated = TRUE").
		Set("evaluated_at = COALESCE(evaluated_at, ?)", at).
		Where("id = ?", attemptID).
		Exec(ctx)
	if err != nil {
		return wrap("mark attempt evaluated", err)
	}
	return expectRow(res, domain.ErrAttemptNotFound)
}

func (t *tx) HasAttempt(ctx context.Context, quizID, userID string) (bool, error) {
	exists, err := t.tx.NewSelect().
		Model((*attemptModel)(nil)).
		Where("quiz_id = ?", quizID).
		Where("user_id = ?", userID).
		Exists(ctx)
	if err != nil {
		return false, wrap("check attempt", err)
	}
	return exists, nil
}

func (t *tx) CreateAttempt(ctx context.Context, attempt domain.QuizAttempt, answers []domain.Answer) error {
	row := attemptModel{
		ID:          attempt.ID,
		UserID:      attempt.UserID,
		QuizID:      attempt.QuizID,
		Score:       attempt.Score,
		Points:      attempt.Points,
		IsCompleted: attempt.IsCompleted,
		IsEvaluated: attempt.IsEvaluated,
		CompletedAt: attempt.CompletedAt,
	}
	if _, err := t.tx.NewInsert().Model(&row).Exec(ctx); err != nil {
		switch pgCode(err) {
		case pgUniqueViolation:
			return domain.ErrAttemptExists
		case pgForeignKeyViolation:
			return domain.ErrUserNotFound
		}
		return wrap("insert attempt", err)
	}
	if len(answers) == 0 {
		return nil
	}

	rows := make([]answerModel, 0, len(answers))
	for _, a := range answers {
		rows = append(rows, answerModel{
			ID:             a.ID,
			UserID:         a.UserID,
			QuestionID:     a.QuestionID,
			AttemptID:      a.AttemptID,
			SelectedOption: a.SelectedOption,
			IsCorrect:      a.IsCorrect,
		})
	}
	if _, err := t.tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return wrap("insert answers", err)
	}
	return nil
}

func (t *tx) GetUser(ctx context.Context, userID string) (domain.User, error) {
	var m userModel
	err := t.tx.NewSelect().Model(&m).Where("id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, wrap("get user", err)
	}
	return m.toDomain(), nil
}

func (t *tx) AddUserPoints(ctx context.Context, userID string, points int) error {
	res, err := t.tx.NewUpdate().
		Model((*userModel)(nil)).
		Set("points = points + ?", points).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return wrap("add user points", err)
	}
	return expectRow(res, domain.ErrUserNotFound)
}

func (t *tx) GetAllocation(ctx context.Context, quizID string) (*domain.Allocation, error) {
	var m allocationModel
	err := t.tx.NewSelect().Model(&m).Where("quiz_id = ?", quizID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get allocation", err)
	}
	a := m.toDomain()
	return &a, nil
}

func (t *tx) SaveAllocation(ctx context.Context, allocation domain.Allocation, winners []domain.Winner) error {
	row := allocationModel{
		QuizID:                 allocation.QuizID,
		PercentageThreshold:    allocation.PercentageThreshold,
		PointsPerWinner:        allocation.PointsPerWinner,
		EligibleWinners:        allocation.EligibleWinners,
		TotalPointsDistributed: allocation.TotalPointsDistributed,
		AllocatedAt:            allocation.AllocatedAt,
	}
	if _, err := t.tx.NewInsert().Model(&row).Exec(ctx); err != nil {
		if pgCode(err) == pgUniqueViolation {
			return domain.ErrAlreadyAllocated
		}
		return wrap("insert allocation", err)
	}
	if len(winners) == 0 {
		return nil
	}

	rows := make([]winnerModel, 0, len(winners))
	for i, w := range winners {
		rows = append(rows, winnerModel{
			QuizID:        allocation.QuizID,
			UserID:        w.UserID,
			AttemptID:     w.AttemptID,
			Rank:          i + 1,
			Score:         w.Score,
			PointsAwarded: w.PointsAwarded,
		})
	}
	if _, err := t.tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return wrap("insert winners", err)
	}
	return nil
}

func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("rows affected", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func pgCode(err error) string {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C')
	}
	return ""
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &domain.StorageError{Op: op, Err: err}
}
