package executor

import (
	"context"
	"time"

	"github.com/Hephree4887/EJSupervision-Importer/pkg/etlerrors"
	"github.com/cenkalti/backoff/v4"
)

// RunStepWithRetry executes a single statement like RunStep, retrying
// transient driver failures (deadlocks, lock-wait timeouts, dropped
// connections) with exponential backoff: the delay doubles after each
// failed attempt, starting from the configured base delay. Logic errors
// such as syntax or constraint violations are surfaced immediately without
// retry, and the last error is surfaced once the attempt budget is
// exhausted.
//
// Retry applies to single statements only. Multi-batch scripts are never
// retried as a whole; rerunning a partially applied script is not safe.
func (e *Executor) RunStepWithRetry(ctx context.Context, r Runner, name, sqlText string, timeout time.Duration) (*RowSet, error) {
	var rs *RowSet

	operation := func() error {
		var err error
		rs, err = e.RunStep(ctx, r, name, sqlText, timeout)
		if err == nil {
			return nil
		}

		if !etlerrors.IsTransient(err) {
			return backoff.Permanent(err)
		}

		if etlerrors.IsLockTimeout(err) {
			e.logger.Warn("lock wait timeout, retrying", "step", name)
		}

		return err
	}

	if err := backoff.Retry(operation, e.retryPolicy(ctx)); err != nil {
		return nil, err
	}

	return rs, nil
}

// retryPolicy builds the backoff schedule: base delay doubling per attempt,
// no jitter, bounded by the configured attempt budget, cancellable via ctx.
func (e *Executor) retryPolicy(ctx context.Context) backoff.BackOffContext {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.baseDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0

	var retries uint64
	if e.maxAttempts > 1 {
		retries = uint64(e.maxAttempts - 1)
	}

	return backoff.WithContext(backoff.WithMaxRetries(bo, retries), ctx)
}
