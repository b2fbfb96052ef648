package memory

import (
	"context"
	"sync"

	"vocab-quiz-service/internal/domain"
)

// ResultStore keeps submitted results in memory and derives the summary the
// scoring service would return. Used in demo mode and as a test double with
// failure injection.
type ResultStore struct {
	mu       sync.Mutex
	results  []domain.QuizResult
	attempts map[string]int
	failWith error
}

func NewResultStore() *ResultStore {
	return &ResultStore{attempts: make(map[string]int)}
}

func (s *ResultStore) SubmitResult(_ context.Context, result domain.QuizResult) (domain.SubmissionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[result.SessionID]++
	if s.failWith != nil {
		return domain.SubmissionSummary{}, s.failWith
	}
	s.results = append(s.results, result)

	correct := 0
	for _, entry := range result.Entries {
		if entry.IsCorrect {
			correct++
		}
	}
	return domain.SubmissionSummary{
		CorrectAnswers: correct,
		TotalQuestions: len(result.Entries),
	}, nil
}

// FailWith makes subsequent submissions fail with err; pass nil to recover.
func (s *ResultStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// Attempts reports how many times a session's result was submitted.
func (s *ResultStore) Attempts(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[sessionID]
}

// Results returns the stored results.
func (s *ResultStore) Results() []domain.QuizResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.QuizResult, len(s.results))
	copy(out, s.results)
	return out
}
