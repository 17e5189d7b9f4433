// Package gateway wraps the upstream embedding and generation capabilities
// behind timeouts, throttling and typed errors.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/arturoeanton/go-rag-qa/internal/port"
)

// translate wraps an upstream failure with its kind, adding port.ErrTimeout
// when the call ran out of time.
func translate(kind error, callCtx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w: %w", kind, port.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", kind, err)
}
