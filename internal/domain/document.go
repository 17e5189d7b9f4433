package domain

import "time"

// Document is an ingested text. It is immutable once created.
type Document struct {
	ID        string    `json:"id"         db:"id"`
	SourceURL string    `json:"source_url" db:"source_url"`
	Content   string    `json:"content"    db:"content"`
	Vector    Vector    `json:"-"          db:"embedding"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DocumentWithChunks is a document and its chunks in ordinal order.
type DocumentWithChunks struct {
	Document
	Chunks []Chunk `json:"chunks"`
}
