package ragfmt

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// NormalizeBatch normalizes many raw results concurrently.
//
// The returned envelopes are in input order. At most WithConcurrency inputs are
// processed at once. The first failure (a malformed input, a nil input or ctx
// cancellation) aborts the batch; the error names the failing input index.
func NormalizeBatch(ctx context.Context, inputs []*RawResult, optFns ...Option) ([]*Envelope, error) {
	o := applyOptions(optFns)
	start := time.Now()

	out := make([]*Envelope, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if in == nil {
				return &MalformedInputError{Section: SectionBatch, Index: i, Type: "nil"}
			}
			env, err := in.normalize(&o)
			if err != nil {
				return fmt.Errorf("batch input %d: %w", i, err)
			}
			out[i] = env
			return nil
		})
	}

	err := g.Wait()
	o.metricsCollector.RecordBatch(len(inputs), time.Since(start), err)
	o.logger.LogBatch(ctx, len(inputs), err)
	if err != nil {
		return nil, err
	}
	return out, nil
}
