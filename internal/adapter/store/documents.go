package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arturoeanton/go-rag-qa/internal/domain"
	"github.com/arturoeanton/go-rag-qa/internal/port"
)

// SaveDocument persists a document and all of its chunks in one transaction.
// Either everything is written or nothing is.
func (s *Store) SaveDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %w", port.ErrStorage, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		s.rebind(`INSERT INTO documents (id, source_url, content, embedding, created_at) VALUES (?, ?, ?, ?, ?)`),
		doc.ID, doc.SourceURL, doc.Content, doc.Vector.Bytes(), doc.CreatedAt,
	); err != nil {
		return fmt.Errorf("%w: insert document: %w", port.ErrStorage, err)
	}

	if len(chunks) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			s.rebind(`INSERT INTO chunks (id, document_id, ordinal, content, embedding) VALUES (?, ?, ?, ?, ?)`))
		if err != nil {
			return fmt.Errorf("%w: prepare: %w", port.ErrStorage, err)
		}
		defer stmt.Close()

		for i := range chunks {
			c := &chunks[i]
			if c.ID == "" {
				c.ID = uuid.New().String()
			}
			c.DocumentID = doc.ID
			if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.Ordinal, c.Content, c.Vector.Bytes()); err != nil {
				return fmt.Errorf("%w: insert chunk %d: %w", port.ErrStorage, c.Ordinal, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", port.ErrStorage, err)
	}
	return nil
}

// GetDocument loads a document with its chunks in ordinal order.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.DocumentWithChunks, error) {
	var (
		d    domain.DocumentWithChunks
		blob []byte
	)
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, source_url, content, embedding, created_at FROM documents WHERE id = ?`), id,
	).Scan(&d.ID, &d.SourceURL, &d.Content, &blob, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, port.ErrDocumentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get document: %w", port.ErrStorage, err)
	}
	if d.Vector, err = domain.VectorFromBytes(blob); err != nil {
		return nil, fmt.Errorf("%w: document %s embedding: %w", port.ErrStorage, id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT id, document_id, ordinal, content, embedding FROM chunks WHERE document_id = ? ORDER BY ordinal`), id)
	if err != nil {
		return nil, fmt.Errorf("%w: list chunks: %w", port.ErrStorage, err)
	}
	defer rows.Close()

	d.Chunks = []domain.Chunk{}
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		d.Chunks = append(d.Chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list chunks: %w", port.ErrStorage, err)
	}
	return &d, nil
}

// ScanChunks streams every chunk in insertion order. Iteration stops at the
// first error returned by fn, which is passed through unwrapped.
func (s *Store) ScanChunks(ctx context.Context, fn func(domain.Chunk) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, ordinal, content, embedding FROM chunks ORDER BY seq`)
	if err != nil {
		return fmt.Errorf("%w: scan chunks: %w", port.ErrStorage, err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: scan chunks: %w", port.ErrStorage, err)
	}
	return nil
}

func scanChunk(rows *sql.Rows) (domain.Chunk, error) {
	var (
		c    domain.Chunk
		blob []byte
	)
	if err := rows.Scan(&c.ID, &c.DocumentID, &c.Ordinal, &c.Content, &blob); err != nil {
		return c, fmt.Errorf("%w: scan chunk: %w", port.ErrStorage, err)
	}
	v, err := domain.VectorFromBytes(blob)
	if err != nil {
		return c, fmt.Errorf("%w: chunk %s embedding: %w", port.ErrStorage, c.ID, err)
	}
	c.Vector = v
	return c, nil
}
