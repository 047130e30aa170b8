// Package faq answers questions from a curated list before any retrieval
// work happens.
//
// Matching is a case-insensitive substring test of the user's question
// against each curated question, in curation order. The first hit wins. This
// is deliberately simple: FAQ entries are written by operators who control
// both sides of the match.
package faq

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docsage/docsage/internal/log"
)

// Querier is the common interface satisfied by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// matchSQL finds the first curated question contained in the user's
// question, case-insensitively. ESCAPE-protected so literal % and _ in
// curated questions do not act as wildcards.
const matchSQL = `SELECT question, answer
	FROM faq_entries
	WHERE $1 ILIKE '%' || replace(replace(replace(question, '\', '\\'), '%', '\%'), '_', '\_') || '%' ESCAPE '\'
	ORDER BY position, id
	LIMIT 1`

const listSQL = `SELECT id, question, answer, position FROM faq_entries ORDER BY position, id`

const insertSQL = `INSERT INTO faq_entries (question, answer, position) VALUES ($1, $2, $3) RETURNING id`

const deleteSQL = `DELETE FROM faq_entries WHERE id = $1`

// Entry is one curated question/answer pair.
type Entry struct {
	ID       int64
	Question string
	Answer   string
	Position int
}

// Store manages curated FAQ entries in PostgreSQL.
type Store struct {
	q      Querier
	logger log.Logger
}

// NewStore creates a FAQ store.
func NewStore(pool *pgxpool.Pool, logger log.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return NewStoreWithQuerier(pool, logger), nil
}

// NewStoreWithQuerier creates a Store over any Querier. Used in tests.
func NewStoreWithQuerier(q Querier, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{q: q, logger: logger}
}

// Match returns the answer for the first curated question found inside the
// user's question, or ("", false, nil) when nothing matches.
func (s *Store) Match(ctx context.Context, question string) (string, bool, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", false, nil
	}

	var matched, answer string
	err := s.q.QueryRow(ctx, matchSQL, question).Scan(&matched, &answer)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("matching faq: %w", err)
	}

	s.logger.Debug("faq hit", "curated_question", matched)
	return answer, true, nil
}

// List returns all entries in curation order.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.q.Query(ctx, listSQL)
	if err != nil {
		return nil, fmt.Errorf("listing faq entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Question, &e.Answer, &e.Position); err != nil {
			return nil, fmt.Errorf("scanning faq entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating faq entries: %w", err)
	}
	return entries, nil
}

// Add inserts a curated entry and returns its id.
func (s *Store) Add(ctx context.Context, question, answer string, position int) (int64, error) {
	if strings.TrimSpace(question) == "" || strings.TrimSpace(answer) == "" {
		return 0, fmt.Errorf("question and answer are required")
	}

	var id int64
	if err := s.q.QueryRow(ctx, insertSQL, question, answer, position).Scan(&id); err != nil {
		return 0, fmt.Errorf("adding faq entry: %w", err)
	}
	return id, nil
}

// Remove deletes an entry by id. Removing an unknown id is a no-op.
func (s *Store) Remove(ctx context.Context, id int64) error {
	if _, err := s.q.Exec(ctx, deleteSQL, id); err != nil {
		return fmt.Errorf("removing faq entry %d: %w", id, err)
	}
	return nil
}
