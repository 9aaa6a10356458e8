package retry

import (
	"context"
)

// Action is a function to be performed in a retriable manner.
type Action func() error

// Retrier retries the provided action.
type Retrier interface {
	Retry(ctx context.Context, action Action) (uint, error)
}

type retrier struct {
	strategies []Strategy
}

// NewRetrier returns a Retrier that will retry actions based off of the
// provided strategies. If no strategies are provided, the retrier retries
// until the action succeeds or the context is done.
func NewRetrier(strategies ...Strategy) Retrier {
	return &retrier{
		strategies: strategies,
	}
}

func (r *retrier) Retry(ctx context.Context, action Action) (uint, error) {
	return Retry(ctx, action, r.strategies...)
}

// Retry executes the provided action, potentially multiple times based off of
// the provided strategies. Retry blocks until the action is successful, one of
// the strategies indicates no further retries should be performed, or ctx is
// done.
//
// The strategies are executed in the provided order, so any strategies that
// induce delays should be specified last.
//
// If ctx is done before the first attempt, ctx.Err() is returned. Otherwise
// the error from the last attempt is returned.
func Retry(ctx context.Context, action Action, strategies ...Strategy) (uint, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	for i := uint(1); ; i++ {
		err := action()
		if err == nil {
			return i, nil
		}

		for _, s := range strategies {
			if shouldRetry := s(ctx, i, err); !shouldRetry {
				return i, err
			}
		}

		if ctx.Err() != nil {
			return i, err
		}
	}
}
