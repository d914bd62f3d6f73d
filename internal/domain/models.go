package domain

import "time"

// Unanswered marks an Answer whose question was left blank.
const Unanswered = -1

// User is a player account with a cumulative point balance.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Points int    `json:"points"`
}

// Quiz is a collection of questions answered within a time limit.
type Quiz struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	QuestionIDs      []string `json:"questionIds"`
	TotalQuestions   int      `json:"totalQuestions"`
	TimeLimitSeconds int      `json:"timeLimitSeconds"`
}

// Question models an MCQ question. CorrectOption stays nil until an admin evaluates the quiz.
type Question struct {
	ID               string  `json:"id"`
	QuizID           string  `json:"quizId"`
	Text             string  `json:"text"`
	Position         int     `json:"position"`
	Options          Options `json:"options"`
	CorrectOption    *int    `json:"correctOption"`
	HasCorrectAnswer bool    `json:"hasCorrectAnswer"`
}

// ValidOption reports whether idx addresses one of the question's options.
func (q Question) ValidOption(idx int) bool {
	return idx >= 0 && idx < len(q.Options)
}

// QuizContent is a quiz with its ordered questions, as loaded for attempt sessions.
type QuizContent struct {
	Quiz      Quiz       `json:"quiz"`
	Questions []Question `json:"questions"`
}

// Question returns the question with the given id.
func (c QuizContent) Question(id string) (Question, bool) {
	for _, q := range c.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// QuizAttempt is one user's submission for one quiz.
type QuizAttempt struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	QuizID      string     `json:"quizId"`
	Score       int        `json:"score"`
	Points      int        `json:"points"`
	IsCompleted bool       `json:"isCompleted"`
	IsEvaluated bool       `json:"isEvaluated"`
	CompletedAt time.Time  `json:"completedAt"`
	EvaluatedAt *time.Time `json:"evaluatedAt,omitempty"`
}

// Answer is the option a user picked for one question within an attempt.
type Answer struct {
	ID             string `json:"id"`
	UserID         string `json:"userId"`
	QuestionID     string `json:"questionId"`
	AttemptID      string `json:"attemptId"`
	SelectedOption int    `json:"selectedOption"`
	IsCorrect      *bool  `json:"isCorrect"`
}

// Winner is a user credited during allocation.
type Winner struct {
	UserID        string `json:"userId"`
	UserName      string `json:"userName"`
	UserEmail     string `json:"userEmail"`
	AttemptID     string `json:"attemptId"`
	Score         int    `json:"score"`
	PointsAwarded int    `json:"pointsAwarded"`
}

// Allocation is the ledger entry written once per quiz when points are distributed.
type Allocation struct {
	QuizID                 string    `json:"quizId"`
	PercentageThreshold    int       `json:"percentageThreshold"`
	PointsPerWinner        int       `json:"pointsPerWinner"`
	EligibleWinners        int       `json:"eligibleWinners"`
	TotalPointsDistributed int       `json:"totalPointsDistributed"`
	AllocatedAt            time.Time `json:"allocatedAt"`
}

// EvaluationResult summarizes one evaluation pass.
type EvaluationResult struct {
	QuizID            string `json:"quizId"`
	UpdatedQuestions  int    `json:"updatedQuestions"`
	EvaluatedAttempts int    `json:"evaluatedAttempts"`
}

// AllocationRequest carries the admin-supplied allocation parameters.
type AllocationRequest struct {
	QuizID              string `json:"quizId"`
	PointsPerWinner     int    `json:"pointsPerWinner"`
	PercentageThreshold int    `json:"percentageThreshold"`
}

// AllocationSummary is the aggregate part of an allocation response.
type AllocationSummary struct {
	EligibleWinners        int `json:"eligibleWinners"`
	PointsPerWinner        int `json:"pointsPerWinner"`
	TotalPointsDistributed int `json:"totalPointsDistributed"`
}

// AllocationResult is returned by a successful allocation.
type AllocationResult struct {
	QuizID     string            `json:"quizId"`
	Allocation AllocationSummary `json:"allocation"`
	Winners    []Winner          `json:"winners"`
}

// QuestionStatus reports whether a question has its correct option assigned.
type QuestionStatus struct {
	ID               string  `json:"id"`
	Text             string  `json:"text"`
	Options          Options `json:"options"`
	CorrectOption    *int    `json:"correctOption"`
	HasCorrectAnswer bool    `json:"hasCorrectAnswer"`
}

// AttemptCounts splits a quiz's attempts by evaluation state.
type AttemptCounts struct {
	Total     int `json:"total"`
	Evaluated int `json:"evaluated"`
	Pending   int `json:"pending"`
}

// EvaluationStatus is the admin view of where a quiz stands.
type EvaluationStatus struct {
	Quiz       Quiz             `json:"quiz"`
	Questions  []QuestionStatus `json:"questions"`
	Attempts   AttemptCounts    `json:"attempts"`
	Allocation *Allocation      `json:"allocation,omitempty"`
}

// SessionQuestion is a question as shown to a player: no correct answer.
type SessionQuestion struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// SessionSnapshot is the player's view of a running attempt.
type SessionSnapshot struct {
	QuizID    string            `json:"quizId"`
	Title     string            `json:"title"`
	UserID    string            `json:"userId"`
	Questions []SessionQuestion `json:"questions"`
	Answered  map[string]int    `json:"answered"`
	StartedAt time.Time         `json:"startedAt"`
	Deadline  time.Time         `json:"deadline"`
}

// SubmissionResult is produced when an attempt session ends.
type SubmissionResult struct {
	Attempt  QuizAttempt `json:"attempt"`
	Answered int         `json:"answered"`
	Forced   bool        `json:"forced"`
}
