package memory

import (
	"context"
	"sync"

	"vocab-quiz-service/internal/domain"
)

// StatusRecorder is an in-memory word status service. Per-word failure
// injection lets tests exercise the partial-failure aggregate report.
type StatusRecorder struct {
	mu       sync.Mutex
	statuses map[string]domain.WordStatus
	failFor  map[string]error
}

func NewStatusRecorder() *StatusRecorder {
	return &StatusRecorder{
		statuses: make(map[string]domain.WordStatus),
		failFor:  make(map[string]error),
	}
}

func (r *StatusRecorder) UpdateStatus(_ context.Context, wordID string, status domain.WordStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failFor[wordID]; ok {
		return err
	}
	r.statuses[wordID] = status
	return nil
}

// FailWord makes updates for wordID fail with err; pass nil to recover.
func (r *StatusRecorder) FailWord(wordID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.failFor, wordID)
		return
	}
	r.failFor[wordID] = err
}

// Status returns the recorded status for a word.
func (r *StatusRecorder) Status(wordID string) (domain.WordStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status, ok := r.statuses[wordID]
	return status, ok
}
