package faq

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type mockQuerier struct {
	row      *fakeRow
	rows     *fakeRows
	queryErr error
	lastSQL  string
	lastArgs []any
}

func (m *mockQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.lastSQL, m.lastArgs = sql, args
	return pgconn.NewCommandTag("DELETE 1"), nil
}

func (m *mockQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	m.lastSQL, m.lastArgs = sql, args
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if m.rows == nil {
		m.rows = &fakeRows{}
	}
	return m.rows, nil
}

func (m *mockQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	m.lastSQL, m.lastArgs = sql, args
	if m.row == nil {
		m.row = &fakeRow{err: pgx.ErrNoRows}
	}
	return m.row
}

type fakeRow struct {
	values []any
	err    error
}

func (f *fakeRow) Scan(dest ...any) error {
	if f.err != nil {
		return f.err
	}
	return scanInto(dest, f.values)
}

type fakeRows struct {
	rows [][]any
	pos  int
}

func (f *fakeRows) Close()                                       {}
func (f *fakeRows) Err() error                                   { return nil }
func (f *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (f *fakeRows) Next() bool {
	if f.pos >= len(f.rows) {
		return false
	}
	f.pos++
	return true
}
func (f *fakeRows) Scan(dest ...any) error { return scanInto(dest, f.rows[f.pos-1]) }
func (f *fakeRows) Values() ([]any, error) { return nil, nil }
func (f *fakeRows) RawValues() [][]byte    { return nil }
func (f *fakeRows) Conn() *pgx.Conn        { return nil }

func scanInto(dest, src []any) error {
	if len(dest) != len(src) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(src))
	}
	for i, v := range src {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *int:
			*d = v.(int)
		case *int64:
			*d = v.(int64)
		default:
			return fmt.Errorf("scan: unsupported destination %T", dest[i])
		}
	}
	return nil
}

func TestMatch_Hit(t *testing.T) {
	q := &mockQuerier{row: &fakeRow{values: []any{"office hours", "9 to 5 on weekdays."}}}
	s := NewStoreWithQuerier(q, nil)

	answer, ok, err := s.Match(context.Background(), "what are the office hours?")
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if !ok || answer != "9 to 5 on weekdays." {
		t.Errorf("Match() = (%q, %v)", answer, ok)
	}
	if q.lastArgs[0] != "what are the office hours?" {
		t.Errorf("query arg = %v", q.lastArgs[0])
	}
}

func TestMatch_Miss(t *testing.T) {
	q := &mockQuerier{row: &fakeRow{err: pgx.ErrNoRows}}
	s := NewStoreWithQuerier(q, nil)

	answer, ok, err := s.Match(context.Background(), "something uncurated")
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if ok || answer != "" {
		t.Errorf("Match() = (%q, %v), want miss", answer, ok)
	}
}

func TestMatch_EmptyQuestion(t *testing.T) {
	q := &mockQuerier{}
	s := NewStoreWithQuerier(q, nil)

	_, ok, err := s.Match(context.Background(), "   ")
	if err != nil || ok {
		t.Errorf("Match(blank) = (ok=%v, err=%v), want silent miss", ok, err)
	}
	if q.lastSQL != "" {
		t.Error("blank question must not hit the database")
	}
}

func TestMatch_QueryError(t *testing.T) {
	wantErr := errors.New("connection refused")
	q := &mockQuerier{row: &fakeRow{err: wantErr}}
	s := NewStoreWithQuerier(q, nil)

	_, _, err := s.Match(context.Background(), "anything here")
	if !errors.Is(err, wantErr) {
		t.Errorf("Match() error = %v, want wrapped %v", err, wantErr)
	}
}

func TestList(t *testing.T) {
	q := &mockQuerier{rows: &fakeRows{rows: [][]any{
		{int64(1), "office hours", "9 to 5.", 0},
		{int64(2), "parking", "Level B2.", 1},
	}}}
	s := NewStoreWithQuerier(q, nil)

	entries, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Question != "office hours" || entries[1].Position != 1 {
		t.Errorf("entries = %+v", entries)
	}
}

func TestAdd_RequiresContent(t *testing.T) {
	s := NewStoreWithQuerier(&mockQuerier{}, nil)

	if _, err := s.Add(context.Background(), "", "answer", 0); err == nil {
		t.Error("Add with empty question should fail")
	}
	if _, err := s.Add(context.Background(), "question", "  ", 0); err == nil {
		t.Error("Add with blank answer should fail")
	}
}

func TestAdd(t *testing.T) {
	q := &mockQuerier{row: &fakeRow{values: []any{int64(7)}}}
	s := NewStoreWithQuerier(q, nil)

	id, err := s.Add(context.Background(), "vpn", "Use the corp VPN app.", 3)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if id != 7 {
		t.Errorf("id = %d, want 7", id)
	}
}

func TestRemove(t *testing.T) {
	q := &mockQuerier{}
	s := NewStoreWithQuerier(q, nil)

	if err := s.Remove(context.Background(), 7); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if q.lastArgs[0] != int64(7) {
		t.Errorf("delete arg = %v", q.lastArgs[0])
	}
}
