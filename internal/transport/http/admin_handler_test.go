package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"kheelo-quiz-service/internal/app"
	"kheelo-quiz-service/internal/auth"
	"kheelo-quiz-service/internal/domain"
	"kheelo-quiz-service/internal/infra/memory"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(store *memory.Store, secret string) *gin.Engine {
	log := discardLogger()
	locker := memory.NewLocker()
	quizzes := memory.NewQuizRepository(store, time.Minute)
	return NewRouter(Services{
		Evaluation: app.NewEvaluationService(store, locker, log),
		Allocation: app.NewAllocationService(store, locker, nil, log),
		Attempts:   app.NewAttemptService(store, quizzes, memory.NewSessionStore(), time.Minute, log),
	}, secret, log)
}

// seedQuiz stores a three-question quiz. Attempt "x" answers everything
// correctly (when the key is 1,0,2), attempt "y" gets only q1 right.
func seedQuiz(store *memory.Store) {
	store.AddQuiz(domain.Quiz{ID: "quiz-1", Title: "General knowledge"}, []domain.Question{
		{ID: "q1", Text: "2 + 2?", Options: domain.Options{"3", "4", "5"}},
		{ID: "q2", Text: "Capital of India?", Options: domain.Options{"Delhi", "Mumbai"}},
		{ID: "q3", Text: "Largest planet?", Options: domain.Options{"Mars", "Venus", "Jupiter"}},
	})
	store.AddUser(domain.User{ID: "ux", Name: "Asha", Email: "asha@example.com", Points: 10})
	store.AddUser(domain.User{ID: "uy", Name: "Ravi", Email: "ravi@example.com"})

	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	addAttempt(store, "x", "ux", base, 1, 0, 2)
	addAttempt(store, "y", "uy", base.Add(time.Minute), 1, 1, 0)
}

func addAttempt(store *memory.Store, id, userID string, completed time.Time, q1, q2, q3 int) {
	store.AddAttempt(domain.QuizAttempt{
		ID: id, UserID: userID, QuizID: "quiz-1", IsCompleted: true, CompletedAt: completed,
	}, []domain.Answer{
		{ID: id + "-q1", UserID: userID, AttemptID: id, QuestionID: "q1", SelectedOption: q1},
		{ID: id + "-q2", UserID: userID, AttemptID: id, QuestionID: "q2", SelectedOption: q2},
		{ID: id + "-q3", UserID: userID, AttemptID: id, QuestionID: "q3", SelectedOption: q3},
	})
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := auth.IssueAdminToken(testSecret, "ops-1", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func TestEvaluateThenAllocateOverHTTP(t *testing.T) {
	store := memory.NewStore()
	seedQuiz(store)
	router := newTestRouter(store, testSecret)
	token := adminToken(t)

	rec := doJSON(t, router, http.MethodPost, "/api/admin/quiz-evaluation", token, map[string]any{
		"quizId":         "quiz-1",
		"correctAnswers": map[string]int{"q1": 1, "q2": 0, "q3": 2},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("evaluate status %d: %s", rec.Code, rec.Body.String())
	}
	var evaluated struct {
		Message           string `json:"message"`
		QuizID            string `json:"quizId"`
		UpdatedQuestions  int    `json:"updatedQuestions"`
		EvaluatedAttempts int    `json:"evaluatedAttempts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &evaluated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if evaluated.EvaluatedAttempts != 2 || evaluated.UpdatedQuestions != 3 || evaluated.Message == "" {
		t.Fatalf("unexpected evaluation response %+v", evaluated)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/admin/quiz-evaluation?quizId=quiz-1", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status endpoint %d: %s", rec.Code, rec.Body.String())
	}
	var status domain.EvaluationStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Attempts.Pending != 0 || status.Attempts.Evaluated != 2 || len(status.Questions) != 3 {
		t.Fatalf("unexpected status %+v", status)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/admin/points-allocation", token, domain.AllocationRequest{
		QuizID: "quiz-1", PointsPerWinner: 5, PercentageThreshold: 10,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("allocate status %d: %s", rec.Code, rec.Body.String())
	}
	var allocated struct {
		Message    string                   `json:"message"`
		Allocation domain.AllocationSummary `json:"allocation"`
		Winners    []domain.Winner          `json:"winners"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &allocated); err != nil {
		t.Fatalf("decode allocation: %v", err)
	}
	if allocated.Allocation.EligibleWinners != 1 || allocated.Allocation.TotalPointsDistributed != 5 {
		t.Fatalf("unexpected allocation %+v", allocated.Allocation)
	}
	if len(allocated.Winners) != 1 || allocated.Winners[0].UserID != "ux" || allocated.Winners[0].Score != 100 {
		t.Fatalf("unexpected winners %+v", allocated.Winners)
	}
	if u, _ := store.User("ux"); u.Points != 15 {
		t.Fatalf("expected winner balance 15, got %d", u.Points)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/admin/points-allocation", token, domain.AllocationRequest{
		QuizID: "quiz-1", PointsPerWinner: 5, PercentageThreshold: 10,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on repeat allocation, got %d", rec.Code)
	}
	if u, _ := store.User("ux"); u.Points != 15 {
		t.Fatalf("repeat allocation changed balance to %d", u.Points)
	}
}

func TestAdminErrorStatuses(t *testing.T) {
	store := memory.NewStore()
	seedQuiz(store)
	router := newTestRouter(store, testSecret)
	token := adminToken(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{
			name:   "missing coverage",
			method: http.MethodPost,
			path:   "/api/admin/quiz-evaluation",
			body:   map[string]any{"quizId": "quiz-1", "correctAnswers": map[string]int{"q1": 1, "q2": 0}},
			want:   http.StatusBadRequest,
		},
		{
			name:   "unknown quiz",
			method: http.MethodPost,
			path:   "/api/admin/quiz-evaluation",
			body:   map[string]any{"quizId": "nope", "correctAnswers": map[string]int{}},
			want:   http.StatusNotFound,
		},
		{
			name:   "allocation before evaluation",
			method: http.MethodPost,
			path:   "/api/admin/points-allocation",
			body:   domain.AllocationRequest{QuizID: "quiz-1", PointsPerWinner: 5, PercentageThreshold: 50},
			want:   http.StatusBadRequest,
		},
		{
			name:   "threshold out of range",
			method: http.MethodPost,
			path:   "/api/admin/points-allocation",
			body:   domain.AllocationRequest{QuizID: "quiz-1", PointsPerWinner: 5, PercentageThreshold: 101},
			want:   http.StatusBadRequest,
		},
		{
			name:   "malformed body",
			method: http.MethodPost,
			path:   "/api/admin/points-allocation",
			body:   "not an object",
			want:   http.StatusBadRequest,
		},
		{
			name:   "status without quiz id",
			method: http.MethodGet,
			path:   "/api/admin/quiz-evaluation",
			want:   http.StatusBadRequest,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, tc.method, tc.path, token, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Message == "" {
				t.Fatalf("expected {message} body, got %s", rec.Body.String())
			}
		})
	}

	if u, _ := store.User("ux"); u.Points != 10 {
		t.Fatalf("failed requests changed balance to %d", u.Points)
	}
	if q, _ := store.Question("q1"); q.HasCorrectAnswer {
		t.Fatalf("rejected evaluation must not touch questions")
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	store := memory.NewStore()
	seedQuiz(store)
	router := newTestRouter(store, testSecret)

	rec := doJSON(t, router, http.MethodGet, "/api/admin/quiz-evaluation?quizId=quiz-1", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/admin/quiz-evaluation?quizId=quiz-1", "garbage", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", rec.Code)
	}

	open := newTestRouter(store, "")
	rec = doJSON(t, open, http.MethodGet, "/api/admin/quiz-evaluation?quizId=quiz-1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected open admin routes without secret, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(memory.NewStore(), "")
	rec := doJSON(t, router, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
}
