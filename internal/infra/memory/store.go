package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"kheelo-quiz-service/internal/app"
	"kheelo-quiz-service/internal/domain"
)

// Store is an in-memory implementation of app.Store. Each transaction works on
// a copy of the data that replaces the live copy only when fn succeeds.
type Store struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	users       map[string]domain.User
	quizzes     map[string]domain.Quiz
	questions   map[string]domain.Question
	attempts    map[string]domain.QuizAttempt
	answers     map[string]domain.Answer
	allocations map[string]domain.Allocation
	winners     map[string][]domain.Winner
}

func NewStore() *Store {
	return &Store{state: &state{
		users:       make(map[string]domain.User),
		quizzes:     make(map[string]domain.Quiz),
		questions:   make(map[string]domain.Question),
		attempts:    make(map[string]domain.QuizAttempt),
		answers:     make(map[string]domain.Answer),
		allocations: make(map[string]domain.Allocation),
		winners:     make(map[string][]domain.Winner),
	}}
}

func (s *Store) WithQuizTx(ctx context.Context, _ string, fn func(ctx context.Context, tx app.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(ctx, &tx{st: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

// AddUser seeds a user.
func (s *Store) AddUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.users[u.ID] = u
}

// AddQuiz seeds a quiz with its questions. Question QuizID and Position are filled in.
func (s *Store) AddQuiz(quiz domain.Quiz, questions []domain.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz.QuestionIDs = quiz.QuestionIDs[:0:0]
	for i, q := range questions {
		q.QuizID = quiz.ID
		q.Position = i
		q.HasCorrectAnswer = q.CorrectOption != nil
		s.state.questions[q.ID] = q
		quiz.QuestionIDs = append(quiz.QuestionIDs, q.ID)
	}
	quiz.TotalQuestions = len(questions)
	s.state.quizzes[quiz.ID] = quiz
}

// AddAttempt seeds a submitted attempt and its answers.
func (s *Store) AddAttempt(attempt domain.QuizAttempt, answers []domain.Answer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.attempts[attempt.ID] = attempt
	for _, a := range answers {
		s.state.answers[a.ID] = a
	}
}

// User returns a copy of the stored user.
func (s *Store) User(id string) (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.state.users[id]
	return u, ok
}

func (s *Store) Question(id string) (domain.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.state.questions[id]
	return q, ok
}

func (s *Store) Attempt(id string) (domain.QuizAttempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.state.attempts[id]
	return a, ok
}

func (s *Store) Answer(id string) (domain.Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.state.answers[id]
	return a, ok
}

// Attempts lists the stored attempts of a quiz ordered by completion.
func (s *Store) Attempts(quizID string) []domain.QuizAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.attemptsOf(quizID)
}

// Winners returns the ledger rows recorded for a quiz.
func (s *Store) Winners(quizID string) []domain.Winner {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Winner(nil), s.state.winners[quizID]...)
}

// LoadQuiz lets the store act as the quiz loader behind a cached QuizRepository.
func (s *Store) LoadQuiz(_ context.Context, quizID string) (domain.QuizContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.state.quizzes[quizID]
	if !ok {
		return domain.QuizContent{}, domain.ErrQuizNotFound
	}
	return domain.QuizContent{Quiz: quiz, Questions: s.state.questionsOf(quizID)}, nil
}

func (st *state) clone() *state {
	c := &state{
		users:       make(map[string]domain.User, len(st.users)),
		quizzes:     make(map[string]domain.Quiz, len(st.quizzes)),
		questions:   make(map[string]domain.Question, len(st.questions)),
		attempts:    make(map[string]domain.QuizAttempt, len(st.attempts)),
		answers:     make(map[string]domain.Answer, len(st.answers)),
		allocations: make(map[string]domain.Allocation, len(st.allocations)),
		winners:     make(map[string][]domain.Winner, len(st.winners)),
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.quizzes {
		c.quizzes[k] = v
	}
	for k, v := range st.questions {
		c.questions[k] = v
	}
	for k, v := range st.attempts {
		c.attempts[k] = v
	}
	for k, v := range st.answers {
		c.answers[k] = v
	}
	for k, v := range st.allocations {
		c.allocations[k] = v
	}
	for k, v := range st.winners {
		c.winners[k] = append([]domain.Winner(nil), v...)
	}
	return c
}

func (st *state) questionsOf(quizID string) []domain.Question {
	var out []domain.Question
	for _, q := range st.questions {
		if q.QuizID == quizID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (st *state) attemptsOf(quizID string) []domain.QuizAttempt {
	var out []domain.QuizAttempt
	for _, a := range st.attempts {
		if a.QuizID == quizID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].CompletedAt.Before(out[j].CompletedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (st *state) answersWhere(match func(domain.Answer) bool) []domain.Answer {
	var out []domain.Answer
	for _, a := range st.answers {
		if match(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type tx struct {
	st *state
}

func (t *tx) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	quiz, ok := t.st.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (t *tx) ListQuestions(_ context.Context, quizID string) ([]domain.Question, error) {
	return t.st.questionsOf(quizID), nil
}

func (t *tx) SetCorrectOption(_ context.Context, questionID string, option int) error {
	q, ok := t.st.questions[questionID]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	q.CorrectOption = &option
	q.HasCorrectAnswer = true
	t.st.questions[questionID] = q
	return nil
}

func (t *tx) ListAnswersByQuestion(_ context.Context, questionID string) ([]domain.Answer, error) {
	return t.st.answersWhere(func(a domain.Answer) bool { return a.QuestionID == questionID }), nil
}

func (t *tx) ListAnswersByAttempt(_ context.Context, attemptID string) ([]domain.Answer, error) {
	return t.st.answersWhere(func(a domain.Answer) bool { return a.AttemptID == attemptID }), nil
}

func (t *tx) SetAnswerCorrect(_ context.Context, answerID string, correct bool) error {
	a, ok := t.st.answers[answerID]
	if !ok {
		return fmt.Errorf("answer %s not found", answerID)
	}
	a.IsCorrect = &correct
	t.st.answers[answerID] = a
	return nil
}

func (t *tx) ListAttempts(_ context.Context, quizID string) ([]domain.QuizAttempt, error) {
	return t.st.attemptsOf(quizID), nil
}

func (t *tx) MarkAttemptEvaluated(_ context.Context, attemptID string, score int, at time.Time) error {
	a, ok := t.st.attempts[attemptID]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	a.Score = score
	a.IsEvaluated = true
	if a.EvaluatedAt == nil {
		a.EvaluatedAt = &at
	}
	t.st.attempts[attemptID] = a
	return nil
}

func (t *tx) HasAttempt(_ context.Context, quizID, userID string) (bool, error) {
	for _, a := range t.st.attempts {
		if a.QuizID == quizID && a.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) CreateAttempt(ctx context.Context, attempt domain.QuizAttempt, answers []domain.Answer) error {
	if exists, _ := t.HasAttempt(ctx, attempt.QuizID, attempt.UserID); exists {
		return domain.ErrAttemptExists
	}
	t.st.attempts[attempt.ID] = attempt
	for _, a := range answers {
		t.st.answers[a.ID] = a
	}
	return nil
}

func (t *tx) GetUser(_ context.Context, userID string) (domain.User, error) {
	u, ok := t.st.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (t *tx) AddUserPoints(_ context.Context, userID string, points int) error {
	u, ok := t.st.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Points += points
	t.st.users[userID] = u
	return nil
}

func (t *tx) GetAllocation(_ context.Context, quizID string) (*domain.Allocation, error) {
	a, ok := t.st.allocations[quizID]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (t *tx) SaveAllocation(_ context.Context, allocation domain.Allocation, winners []domain.Winner) error {
	if _, ok := t.st.allocations[allocation.QuizID]; ok {
		return domain.ErrAlreadyAllocated
	}
	t.st.allocations[allocation.QuizID] = allocation
	t.st.winners[allocation.QuizID] = append([]domain.Winner(nil), winners...)
	return nil
}
