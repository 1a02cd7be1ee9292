package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"holdings_extract/pkg/core/ingest"
)

// Sink receives finished outcomes. Publish is called from worker goroutines
// and must be safe for concurrent use.
type Sink interface {
	Publish(ctx context.Context, out *ExtractionOutcome) error
}

// BatchReport summarises a batch run.
type BatchReport struct {
	RunID      string            `json:"run_id"`
	Submitted  int               `json:"submitted"`
	Published  int               `json:"published"`
	Flagged    int               `json:"flagged"`
	Structural int               `json:"structural_misses"`
	Retry      []string          `json:"retry_with_alternate,omitempty"` // filing ids
	Failed     map[string]string `json:"failed,omitempty"`            // filing id → error
	Cancelled  bool              `json:"cancelled"`
	Started    time.Time         `json:"started"`
	Finished   time.Time         `json:"finished"`
}

// RunBatch extracts refs on at most workers goroutines and publishes each
// complete outcome to sink. A failing filing is recorded and does not affect
// the others. On cancellation no further filings are submitted, and filings
// still in flight are discarded rather than published; the report is
// returned together with ctx.Err().
func (e *Engine) RunBatch(ctx context.Context, src ingest.Source, refs []ingest.FilingRef, sink Sink, workers int) (*BatchReport, error) {
	if workers <= 0 {
		workers = 1
	}
	report := &BatchReport{
		RunID:   uuid.New().String(),
		Failed:  make(map[string]string),
		Started: time.Now(),
	}
	log.Printf("[Batch] Run %s: %d filings, %d workers", report.RunID, len(refs), workers)

	var mu sync.Mutex
	fail := func(id string, err error) {
		mu.Lock()
		defer mu.Unlock()
		report.Failed[id] = err.Error()
		log.Printf("[Batch] %s failed: %v", id, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, ref := range refs {
		if ctx.Err() != nil {
			break
		}
		report.Submitted++
		ref := ref
		g.Go(func() error {
			out, err := e.process(gctx, src, ref)
			if err != nil {
				if gctx.Err() == nil {
					fail(ref.ID, err)
				}
				return nil
			}
			out.RunID = report.RunID

			// never publish once cancelled
			if gctx.Err() != nil {
				return nil
			}
			if err := sink.Publish(gctx, out); err != nil {
				fail(ref.ID, fmt.Errorf("publish: %w", err))
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			report.Published++
			if out.Coverage.Flagged {
				report.Flagged++
			}
			if out.Structural != nil {
				report.Structural++
			}
			if out.RetryWithAlternate {
				report.Retry = append(report.Retry, out.FilingID)
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Finished = time.Now()
	report.Cancelled = ctx.Err() != nil
	log.Printf("[Batch] SUMMARY %s: submitted=%d, published=%d, failed=%d, flagged=%d, structural=%d, cancelled=%v, elapsed=%s",
		report.RunID, report.Submitted, report.Published, len(report.Failed), report.Flagged, report.Structural,
		report.Cancelled, report.Finished.Sub(report.Started).Round(time.Millisecond))

	if report.Cancelled {
		return report, ctx.Err()
	}
	return report, nil
}

// process loads and extracts one filing.
func (e *Engine) process(ctx context.Context, src ingest.Source, ref ingest.FilingRef) (*ExtractionOutcome, error) {
	filing, err := src.Load(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := e.Extract(filing)
	if err != nil {
		if errors.Is(err, ErrNoInput) {
			return nil, fmt.Errorf("%s: %w", ref.ID, err)
		}
		return nil, fmt.Errorf("extract: %w", err)
	}
	return out, nil
}
