package domain

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Vector is an embedding: an ordered sequence of float32 values of a fixed dimension.
type Vector []float32

// Dot returns the dot product of v and w. Both vectors must have the same length.
func (v Vector) Dot(w Vector) float64 {
	var sum float64
	for i := range v {
		sum += float64(v[i]) * float64(w[i])
	}
	return sum
}

// Norm returns the Euclidean length of v.
func (v Vector) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Cosine returns the cosine similarity of v and w, or 0 when either is a zero vector.
func (v Vector) Cosine(w Vector) float64 {
	nv, nw := v.Norm(), w.Norm()
	if nv == 0 || nw == 0 {
		return 0
	}
	return v.Dot(w) / (nv * nw)
}

// Bytes encodes the vector as little-endian float32 values, 4 bytes each.
func (v Vector) Bytes() []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// VectorFromBytes decodes a blob produced by Vector.Bytes.
func VectorFromBytes(data []byte) (Vector, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(data))
	}
	v := make(Vector, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v, nil
}

// Chunk is a bounded excerpt of a document together with its embedding.
type Chunk struct {
	ID         string `json:"id"          db:"id"`
	DocumentID string `json:"document_id" db:"document_id"`
	Ordinal    int    `json:"ordinal"     db:"ordinal"`
	Content    string `json:"content"     db:"content"`
	Vector     Vector `json:"-"           db:"embedding"`
}

// ScoredChunk is returned by similarity search.
type ScoredChunk struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Ordinal    int     `json:"ordinal"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}
