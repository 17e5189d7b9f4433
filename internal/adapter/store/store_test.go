package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/go-rag-qa/internal/domain"
	"github.com/arturoeanton/go-rag-qa/internal/port"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "rag.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_SQLiteMigratesOnce(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "rag.db")

	s, err := Open(context.Background(), "sqlite://"+dbPath)
	require.NoError(t, err)
	assert.Equal(t, DialectSQLite, s.Dialect())
	require.NoError(t, s.Close())

	// Reopening must not re-run the initial migration.
	s, err = Open(context.Background(), dbPath)
	require.NoError(t, err)
	defer s.Close()

	var n int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestRebind(t *testing.T) {
	pg := &Store{dialect: DialectPostgres}
	lite := &Store{dialect: DialectSQLite}
	q := "SELECT * FROM t WHERE a = ? AND b = ?"

	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.rebind(q))
	assert.Equal(t, q, lite.rebind(q))
}

func TestSaveAndGetDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := &domain.Document{SourceURL: "https://example.com", Content: "cats purr. dogs bark.", Vector: domain.Vector{1, 0}}
	chunks := []domain.Chunk{
		{Ordinal: 0, Content: "cats purr.", Vector: domain.Vector{1, 0}},
		{Ordinal: 1, Content: "dogs bark.", Vector: domain.Vector{0, 1}},
	}
	require.NoError(t, s.SaveDocument(ctx, doc, chunks))
	require.NotEmpty(t, doc.ID)
	assert.Equal(t, doc.ID, chunks[1].DocumentID)
	assert.NotEmpty(t, chunks[0].ID)

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got.SourceURL)
	assert.Equal(t, domain.Vector{1, 0}, got.Vector)
	require.Len(t, got.Chunks, 2)
	assert.Equal(t, "dogs bark.", got.Chunks[1].Content)
	assert.Equal(t, domain.Vector{0, 1}, got.Chunks[1].Vector)
}

func TestGetDocument_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, port.ErrDocumentNotFound)
	assert.NotErrorIs(t, err, port.ErrStorage)
}

func TestSaveDocument_RollsBackOnChunkFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := &domain.Document{Content: "x", Vector: domain.Vector{1}}
	// Duplicate ordinals violate UNIQUE(document_id, ordinal).
	chunks := []domain.Chunk{
		{Ordinal: 0, Content: "a", Vector: domain.Vector{1}},
		{Ordinal: 0, Content: "b", Vector: domain.Vector{1}},
	}
	err := s.SaveDocument(ctx, doc, chunks)
	require.Error(t, err)
	assert.ErrorIs(t, err, port.ErrStorage)

	_, err = s.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, port.ErrDocumentNotFound)

	n := 0
	require.NoError(t, s.ScanChunks(ctx, func(domain.Chunk) error { n++; return nil }))
	assert.Zero(t, n)
}

func TestScanChunks_InsertionOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, text := range []string{"first", "second"} {
		doc := &domain.Document{Content: text, Vector: domain.Vector{1}}
		require.NoError(t, s.SaveDocument(ctx, doc, []domain.Chunk{
			{Ordinal: 0, Content: text + "-0", Vector: domain.Vector{1}},
			{Ordinal: 1, Content: text + "-1", Vector: domain.Vector{1}},
		}))
	}

	var got []string
	require.NoError(t, s.ScanChunks(ctx, func(c domain.Chunk) error {
		got = append(got, c.Content)
		return nil
	}))
	assert.Equal(t, []string{"first-0", "first-1", "second-0", "second-1"}, got)

	stop := errors.New("stop")
	calls := 0
	err := s.ScanChunks(ctx, func(domain.Chunk) error { calls++; return stop })
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestInteractions_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, q := range []string{"q1", "q2", "q3"} {
		require.NoError(t, s.AppendInteraction(ctx, &domain.Interaction{
			Question:  q,
			Answer:    "a",
			Context:   "c",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := s.ListInteractions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "q3", all[0].Question)
	assert.Equal(t, "q1", all[2].Question)
	assert.True(t, all[0].CreatedAt.Equal(base.Add(2*time.Minute)))

	two, err := s.ListInteractions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, two, 2)
	assert.Equal(t, "q2", two[1].Question)
}

func TestListInteractions_EmptyIsNotNil(t *testing.T) {
	s := newTestStore(t)
	got, err := s.ListInteractions(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAppendInteraction_StorageFailure(t *testing.T) {
	s := newTestStore(t)
	_, err := s.DB().Exec("DROP TABLE interactions")
	require.NoError(t, err)

	err = s.AppendInteraction(context.Background(), &domain.Interaction{Question: "q", Answer: "a"})
	assert.ErrorIs(t, err, port.ErrStorage)
}

func TestPurgeAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := &domain.Document{Content: "x", Vector: domain.Vector{1}}
	require.NoError(t, s.SaveDocument(ctx, doc, []domain.Chunk{{Content: "x", Vector: domain.Vector{1}}}))
	require.NoError(t, s.AppendInteraction(ctx, &domain.Interaction{Question: "q", Answer: "a"}))

	require.NoError(t, s.PurgeAll(ctx))

	_, err := s.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, port.ErrDocumentNotFound)
	history, err := s.ListInteractions(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
	n := 0
	require.NoError(t, s.ScanChunks(ctx, func(domain.Chunk) error { n++; return nil }))
	assert.Zero(t, n)

	// Purging an empty store is fine.
	require.NoError(t, s.PurgeAll(ctx))
}
