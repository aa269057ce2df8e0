package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zubari/pkg/utils"
)

// storeError maps a repository failure to the service taxonomy. Deadlines and
// cancellations are transient; everything else is a generic database error.
// The underlying error stays in the chain for logging only.
func storeError(op string, err error) error {
	if classified(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %w", op, utils.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w: %w", op, utils.ErrDatabaseError, err)
}

func withStoreTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func classified(err error) bool {
	for _, target := range []error{
		utils.ErrStoreUnavailable,
		utils.ErrDatabaseError,
		utils.ErrAccountNotFound,
		utils.ErrInvalidPlan,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
