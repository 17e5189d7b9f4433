package domain

import "time"

// Interaction records one answered question. Interactions are append-only.
type Interaction struct {
	ID        string    `json:"id"         db:"id"`
	Question  string    `json:"question"   db:"question"`
	Answer    string    `json:"answer"     db:"answer"`
	Context   string    `json:"context"    db:"context"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
