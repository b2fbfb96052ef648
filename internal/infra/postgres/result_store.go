package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"vocab-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ResultStore persists finished quiz results as JSONB rows and reports the
// scoring summary back. Inserting the same session twice is a no-op, so a
// retried submission cannot duplicate a row.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) SubmitResult(ctx context.Context, result domain.QuizResult) (domain.SubmissionSummary, error) {
	correct := 0
	for _, entry := range result.Entries {
		if entry.IsCorrect {
			correct++
		}
	}

	entries, err := json.Marshal(result.Entries)
	if err != nil {
		return domain.SubmissionSummary{}, fmt.Errorf("marshal result entries: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO quiz_results (id, question_type, correct_answers, total_questions, entries, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		result.SessionID, string(result.QuestionType), correct, len(result.Entries), entries, result.FinishedAt)
	if err != nil {
		return domain.SubmissionSummary{}, fmt.Errorf("insert quiz result: %w", err)
	}

	return domain.SubmissionSummary{
		CorrectAnswers: correct,
		TotalQuestions: len(result.Entries),
	}, nil
}
