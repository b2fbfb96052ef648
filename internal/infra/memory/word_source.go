package memory

import (
	"context"

	"vocab-quiz-service/internal/domain"
)

// WordSource fetches the word pool for a status filter from a backing store
// (e.g., Postgres).
type WordSource interface {
	LoadWords(ctx context.Context, status domain.WordStatus) ([]domain.Word, error)
}

// StaticWordSource is a simple source backed by an in-memory slice (useful
// for tests/demos).
type StaticWordSource struct {
	words []domain.Word
}

func NewStaticWordSource(words []domain.Word) *StaticWordSource {
	return &StaticWordSource{words: words}
}

func (s *StaticWordSource) LoadWords(_ context.Context, status domain.WordStatus) ([]domain.Word, error) {
	if status == domain.StatusAll || status == "" {
		out := make([]domain.Word, len(s.words))
		copy(out, s.words)
		return out, nil
	}
	var out []domain.Word
	for _, w := range s.words {
		if w.Status == status {
			out = append(out, w)
		}
	}
	return out, nil
}
