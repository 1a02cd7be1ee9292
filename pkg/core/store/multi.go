package store

import (
	"context"
	"errors"
	"log"

	"holdings_extract/pkg/core/pipeline"
)

// Retracter is a sink that can remove a filing's published output.
type Retracter interface {
	Retract(ctx context.Context, filingID string) error
}

// MultiSink publishes to every sink in order and stops at the first failure.
// Sinks that already published that outcome are retracted, so a failed
// publish leaves no output for the filing in any sink.
type MultiSink []pipeline.Sink

// Publish implements pipeline.Sink.
func (m MultiSink) Publish(ctx context.Context, out *pipeline.ExtractionOutcome) error {
	for i, s := range m {
		err := s.Publish(ctx, out)
		if err == nil {
			continue
		}
		errs := []error{err}
		for j := i - 1; j >= 0; j-- {
			r, ok := m[j].(Retracter)
			if !ok {
				continue
			}
			// the publish context may already be cancelled
			if rerr := r.Retract(context.WithoutCancel(ctx), out.FilingID); rerr != nil {
				errs = append(errs, rerr)
			}
		}
		log.Printf("[MultiSink] %s: publish failed, retracted %d earlier sinks", out.FilingID, i)
		return errors.Join(errs...)
	}
	return nil
}
