package scheduler

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/axe-engine/axe/internal/provider"
)

const (
	// dispatchMaxRetries bounds retried transient provider failures
	// before the turn is abandoned and the agent marked degraded.
	dispatchMaxRetries = 3
	dispatchInitialInterval = 500 * time.Millisecond
	dispatchMaxInterval     = 20 * time.Second
	dispatchMaxElapsedTime  = 90 * time.Second

	// dispatchCallTimeout is the per-attempt deadline every provider call
	// carries.
	dispatchCallTimeout = 300 * time.Second
)

func newDispatchBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = dispatchInitialInterval
	b.MaxInterval = dispatchMaxInterval
	b.MaxElapsedTime = dispatchMaxElapsedTime
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, dispatchMaxRetries), ctx)
}

// dispatchResult is the collected output of one Provider call.
type dispatchResult struct {
	Reply string
	Usage provider.Usage
}

// dispatch calls the Provider with retried backoff on transient failures.
// A provider.ErrRateLimited is never retried here: the
// caller defers the agent's next turn instead of burning retry budget on
// it.
func (s *Scheduler) dispatch(ctx context.Context, modelRef string, messages []provider.Message) (dispatchResult, error) {
	var out dispatchResult

	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, dispatchCallTimeout)
		defer cancel()

		stream, err := s.prov.Call(callCtx, modelRef, messages)
		if err != nil {
			if errors.Is(err, provider.ErrRateLimited) {
				return backoff.Permanent(err)
			}
			return err
		}
		defer stream.Close()

		var text string
		for {
			chunk, err := stream.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return err
			}
			text += chunk.Text
		}
		out.Reply = text
		out.Usage = stream.Usage()
		return nil
	}

	if err := backoff.Retry(operation, newDispatchBackoff(ctx)); err != nil {
		return dispatchResult{}, err
	}
	return out, nil
}
