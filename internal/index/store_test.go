package index

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgvector "github.com/pgvector/pgvector-go"
)

// mockQuerier records statements and injects failures per SQL fragment.
type mockQuerier struct {
	execCalls []execCall
	execErrs  map[string]error // keyed by SQL substring; applies to matching Exec calls
	failIndex map[int]error    // chunk_index → error for insert statements
	queryRows *fakeRows
	queryErr  error
	queryArgs []any
}

type execCall struct {
	sql  string
	args []any
}

func (m *mockQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.execCalls = append(m.execCalls, execCall{sql: sql, args: args})
	for frag, err := range m.execErrs {
		if strings.Contains(sql, frag) {
			return pgconn.CommandTag{}, err
		}
	}
	if strings.Contains(sql, "INSERT") && m.failIndex != nil {
		if idx, ok := args[1].(int); ok {
			if err, found := m.failIndex[idx]; found {
				return pgconn.CommandTag{}, err
			}
		}
	}
	return pgconn.NewCommandTag("OK 1"), nil
}

func (m *mockQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	m.queryArgs = args
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if m.queryRows == nil {
		m.queryRows = &fakeRows{}
	}
	return m.queryRows, nil
}

func (m *mockQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	return nil
}

// fakeRows is a minimal in-memory pgx.Rows for scanning search results.
type fakeRows struct {
	rows [][]any
	pos  int
	err  error
}

func (f *fakeRows) Close()                                       {}
func (f *fakeRows) Err() error                                   { return f.err }
func (f *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (f *fakeRows) Next() bool {
	if f.pos >= len(f.rows) {
		return false
	}
	f.pos++
	return true
}

func (f *fakeRows) Scan(dest ...any) error {
	row := f.rows[f.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(row))
	}
	for i, src := range row {
		switch d := dest[i].(type) {
		case *string:
			*d = src.(string)
		case *int:
			*d = src.(int)
		case *float64:
			*d = src.(float64)
		case *[]string:
			*d = src.([]string)
		default:
			return fmt.Errorf("scan: unsupported destination %T", dest[i])
		}
	}
	return nil
}

func (f *fakeRows) Values() ([]any, error) { return nil, nil }
func (f *fakeRows) RawValues() [][]byte    { return nil }
func (f *fakeRows) Conn() *pgx.Conn        { return nil }

func testVector() pgvector.Vector {
	return pgvector.NewVector(make([]float32, 768))
}

func TestReplace_DeleteThenInsert(t *testing.T) {
	q := &mockQuerier{}
	s := NewStoreWithQuerier(q, nil)

	chunks := []Chunk{
		{Index: 0, Content: "first", Embedding: testVector()},
		{Index: 1, Content: "second", Embedding: testVector()},
	}
	meta := DocumentMeta{Name: "Guide", FolderPath: "/docs", Tags: []string{"hr"}}

	chunkErrs, err := s.Replace(context.Background(), "doc-1", meta, chunks)
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if len(chunkErrs) != 0 {
		t.Errorf("chunk errors = %v, want none", chunkErrs)
	}

	if len(q.execCalls) != 3 {
		t.Fatalf("exec calls = %d, want delete + 2 inserts", len(q.execCalls))
	}
	if !strings.Contains(q.execCalls[0].sql, "DELETE") {
		t.Errorf("first statement = %q, want DELETE", q.execCalls[0].sql)
	}
	for i, call := range q.execCalls[1:] {
		if !strings.Contains(call.sql, "INSERT") {
			t.Errorf("statement %d = %q, want INSERT", i+1, call.sql)
		}
	}
}

func TestReplace_ZeroChunks(t *testing.T) {
	q := &mockQuerier{}
	s := NewStoreWithQuerier(q, nil)

	chunkErrs, err := s.Replace(context.Background(), "doc-1", DocumentMeta{}, nil)
	if err != nil || len(chunkErrs) != 0 {
		t.Fatalf("Replace() = (%v, %v)", chunkErrs, err)
	}
	// Still deletes: a document that became empty leaves no stale rows.
	if len(q.execCalls) != 1 || !strings.Contains(q.execCalls[0].sql, "DELETE") {
		t.Errorf("exec calls = %+v, want single DELETE", q.execCalls)
	}
}

func TestReplace_DeleteFailureAbortsInserts(t *testing.T) {
	wantErr := errors.New("connection lost")
	q := &mockQuerier{execErrs: map[string]error{"DELETE": wantErr}}
	s := NewStoreWithQuerier(q, nil)

	_, err := s.Replace(context.Background(), "doc-1", DocumentMeta{},
		[]Chunk{{Index: 0, Content: "x", Embedding: testVector()}})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Replace() error = %v, want wrapped %v", err, wantErr)
	}
	if len(q.execCalls) != 1 {
		t.Errorf("exec calls = %d, inserts must not run after failed delete", len(q.execCalls))
	}
}

func TestReplace_PartialInsertFailure(t *testing.T) {
	insertErr := errors.New("value too long")
	q := &mockQuerier{failIndex: map[int]error{1: insertErr}}
	s := NewStoreWithQuerier(q, nil)

	chunks := []Chunk{
		{Index: 0, Content: "ok", Embedding: testVector()},
		{Index: 1, Content: "bad", Embedding: testVector()},
		{Index: 2, Content: "ok", Embedding: testVector()},
	}
	chunkErrs, err := s.Replace(context.Background(), "doc-1", DocumentMeta{}, chunks)
	if err != nil {
		t.Fatalf("Replace() error = %v, partial failure must not be fatal", err)
	}
	if len(chunkErrs) != 1 {
		t.Fatalf("chunk errors = %v, want exactly one", chunkErrs)
	}
	if chunkErrs[0].Index != 1 || !errors.Is(chunkErrs[0], insertErr) {
		t.Errorf("chunk error = %+v", chunkErrs[0])
	}
	// All three inserts attempted despite the middle failure.
	if len(q.execCalls) != 4 {
		t.Errorf("exec calls = %d, want delete + 3 inserts", len(q.execCalls))
	}
}

func TestReplace_EmptyDocumentID(t *testing.T) {
	s := NewStoreWithQuerier(&mockQuerier{}, nil)
	if _, err := s.Replace(context.Background(), "", DocumentMeta{}, nil); err == nil {
		t.Error("Replace(\"\") should return error")
	}
}

func TestPurge(t *testing.T) {
	q := &mockQuerier{}
	s := NewStoreWithQuerier(q, nil)

	if err := s.Purge(context.Background(), "doc-1"); err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if len(q.execCalls) != 1 || !strings.Contains(q.execCalls[0].sql, "DELETE") {
		t.Errorf("exec calls = %+v", q.execCalls)
	}
}

func TestPurge_EmptyDocumentID(t *testing.T) {
	s := NewStoreWithQuerier(&mockQuerier{}, nil)
	if err := s.Purge(context.Background(), ""); err == nil {
		t.Error("Purge(\"\") should return error")
	}
}

func TestSearch(t *testing.T) {
	q := &mockQuerier{queryRows: &fakeRows{rows: [][]any{
		{"doc-1", 0, "best match", "Guide", "/docs", []string{"hr"}, 0.91},
		{"doc-2", 3, "second", "Handbook", "", []string{}, 0.72},
	}}}
	s := NewStoreWithQuerier(q, nil)

	results, err := s.Search(context.Background(), testVector(), 0.5, 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].DocumentID != "doc-1" || results[0].Similarity != 0.91 {
		t.Errorf("first result = %+v", results[0])
	}
	if results[1].ChunkIndex != 3 {
		t.Errorf("second result chunk index = %d", results[1].ChunkIndex)
	}

	if q.queryArgs[1] != 0.5 {
		t.Errorf("threshold arg = %v, want 0.5", q.queryArgs[1])
	}
	if q.queryArgs[2] != 5 {
		t.Errorf("limit arg = %v, want 5", q.queryArgs[2])
	}
}

func TestSearch_EmptyResultIsValid(t *testing.T) {
	q := &mockQuerier{queryRows: &fakeRows{}}
	s := NewStoreWithQuerier(q, nil)

	results, err := s.Search(context.Background(), testVector(), 0.99, 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %v, want empty", results)
	}
}

func TestSearch_DefaultsLimit(t *testing.T) {
	q := &mockQuerier{queryRows: &fakeRows{}}
	s := NewStoreWithQuerier(q, nil)

	if _, err := s.Search(context.Background(), testVector(), 0.5, 0); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if q.queryArgs[2] != 5 {
		t.Errorf("limit arg = %v, want default 5", q.queryArgs[2])
	}
}

func TestSearch_QueryError(t *testing.T) {
	wantErr := errors.New("timeout")
	q := &mockQuerier{queryErr: wantErr}
	s := NewStoreWithQuerier(q, nil)

	if _, err := s.Search(context.Background(), testVector(), 0.5, 5); !errors.Is(err, wantErr) {
		t.Errorf("Search() error = %v, want wrapped %v", err, wantErr)
	}
}

func TestNewStore_NilPool(t *testing.T) {
	if _, err := NewStore(nil, nil); err == nil {
		t.Error("NewStore(nil) should return error")
	}
}
