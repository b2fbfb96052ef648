package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"vocab-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// WordStore reads the word pool from Postgres and serves status updates.
// Word content lives in a JSONB column; the status is a plain column so the
// pool query can filter on it.
type WordStore struct {
	pool *pgxpool.Pool
}

func NewWordStore(pool *pgxpool.Pool) *WordStore {
	return &WordStore{pool: pool}
}

func (s *WordStore) LoadWords(ctx context.Context, status domain.WordStatus) ([]domain.Word, error) {
	query := `SELECT id, status, data FROM words`
	args := []interface{}{}
	if status != domain.StatusAll && status != "" {
		query += ` WHERE status=$1`
		args = append(args, string(status))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load words: %w", err)
	}
	defer rows.Close()

	var words []domain.Word
	for rows.Next() {
		var (
			id  string
			st  string
			raw []byte
		)
		if err := rows.Scan(&id, &st, &raw); err != nil {
			return nil, fmt.Errorf("scan word: %w", err)
		}
		var word domain.Word
		if err := json.Unmarshal(raw, &word); err != nil {
			return nil, fmt.Errorf("unmarshal word %s: %w", id, err)
		}
		word.ID = id
		word.Status = domain.WordStatus(st)
		words = append(words, word)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load words: %w", err)
	}
	return words, nil
}

func (s *WordStore) UpdateStatus(ctx context.Context, wordID string, status domain.WordStatus) error {
	tag, err := s.pool.Exec(ctx, `UPDATE words SET status=$2 WHERE id=$1`, wordID, string(status))
	if err != nil {
		return fmt.Errorf("update word status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWordNotFound
	}
	return nil
}
