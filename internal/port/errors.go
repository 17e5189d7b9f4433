package port

import "errors"

// Sentinel errors used across ports. Callers match them with errors.Is.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrEmbedding         = errors.New("embedding failed")
	ErrGeneration        = errors.New("generation failed")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrTimeout           = errors.New("upstream timeout")
	ErrStorage           = errors.New("storage failure")
	ErrResponseTooLong   = errors.New("generated response exceeds ceiling")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrJobNotFound       = errors.New("job not found")
)

// ErrorKind returns a short machine-readable name for the kind of err.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrDocumentNotFound), errors.Is(err, ErrJobNotFound):
		return "not_found"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrDimensionMismatch):
		return "dimension_mismatch"
	case errors.Is(err, ErrEmbedding):
		return "embedding_error"
	case errors.Is(err, ErrGeneration):
		return "generation_error"
	case errors.Is(err, ErrStorage):
		return "storage_error"
	default:
		return "internal"
	}
}
