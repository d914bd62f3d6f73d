package app

import (
	"sync"
	"time"

	"kheelo-quiz-service/internal/domain"
)

// Session is an in-memory, timed attempt of one user at one quiz.
type Session struct {
	userID    string
	content   domain.QuizContent
	startedAt time.Time
	deadline  time.Time
	now       func() time.Time

	mu         sync.Mutex
	answers    map[string]int
	timer      *time.Timer
	submitting bool
	done       chan struct{}
	result     domain.SubmissionResult
	err        error
}

// NewSession is exported for infrastructure layers and tests that need to seed sessions.
func NewSession(content domain.QuizContent, userID string, limit time.Duration) *Session {
	return NewSessionWithClock(content, userID, limit, time.Now)
}

// NewSessionWithClock allows deterministic timestamps in tests.
func NewSessionWithClock(content domain.QuizContent, userID string, limit time.Duration, now func() time.Time) *Session {
	started := now()
	return &Session{
		userID:    userID,
		content:   content,
		startedAt: started,
		deadline:  started.Add(limit),
		now:       now,
		answers:   make(map[string]int),
		done:      make(chan struct{}),
	}
}

// Key identifies the session in a SessionRepository.
func (s *Session) Key() string {
	return SessionKey(s.content.Quiz.ID, s.userID)
}

// SessionKey builds the repository key for a quiz/user pair.
func SessionKey(quizID, userID string) string {
	return quizID + ":" + userID
}

func (s *Session) QuizID() string { return s.content.Quiz.ID }

func (s *Session) UserID() string { return s.userID }

func (s *Session) Deadline() time.Time { return s.deadline }

// Done is closed once the attempt has been submitted, by the player or by the timer.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Result is only meaningful after Done is closed.
func (s *Session) Result() (domain.SubmissionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.err
}

func (s *Session) answer(questionID string, option int) error {
	q, ok := s.content.Question(questionID)
	if !ok {
		return domain.ErrQuestionNotFound
	}
	if !q.ValidOption(option) {
		return domain.ErrOptionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return domain.ErrSessionNotFound
	}
	if !s.now().Before(s.deadline) {
		return domain.ErrAttemptExpired
	}
	s.answers[questionID] = option
	return nil
}

// claim marks the session as being submitted. Only the first caller gets true.
func (s *Session) claim() (map[string]int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return nil, false
	}
	s.submitting = true
	if s.timer != nil {
		s.timer.Stop()
	}
	answers := make(map[string]int, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	return answers, true
}

func (s *Session) finish(result domain.SubmissionResult, err error) {
	s.mu.Lock()
	s.result = result
	s.err = err
	s.mu.Unlock()
	close(s.done)
}

func (s *Session) setTimer(t *time.Timer) {
	s.mu.Lock()
	s.timer = t
	s.mu.Unlock()
}

// Snapshot returns the player's view of the session.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	answered := make(map[string]int, len(s.answers))
	for k, v := range s.answers {
		answered[k] = v
	}
	s.mu.Unlock()

	questions := make([]domain.SessionQuestion, 0, len(s.content.Questions))
	for _, q := range s.content.Questions {
		questions = append(questions, domain.SessionQuestion{
			ID:      q.ID,
			Text:    q.Text,
			Options: []string(q.Options),
		})
	}
	return domain.SessionSnapshot{
		QuizID:    s.content.Quiz.ID,
		Title:     s.content.Quiz.Title,
		UserID:    s.userID,
		Questions: questions,
		Answered:  answered,
		StartedAt: s.startedAt,
		Deadline:  s.deadline,
	}
}
