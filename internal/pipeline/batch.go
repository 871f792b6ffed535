package pipeline

import (
	"context"
	"sync"

	perrors "plate-reader/internal/errors"
)

// Outcome is the result of one crop in a batch.
type Outcome struct {
	Source string
	Read   *Read
	Err    error
}

// Status classifies the outcome.
func (o Outcome) Status() Status {
	return StatusOf(o.Read, o.Err)
}

// ReadAll reads crops with a pool of workers and returns one Outcome per crop
// in input order. A plate that fails segmentation does not stop the batch; a
// classifier failure does, and is returned. Crops never dispatched carry the
// cancellation error.
func (r *Reader) ReadAll(ctx context.Context, crops []Crop, workers int) ([]Outcome, error) {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make([]Outcome, len(crops))
	dispatched := make([]bool, len(crops))
	jobs := make(chan int)

	var (
		wg        sync.WaitGroup
		fatalOnce sync.Once
		fatal     error
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				read, err := r.Read(crops[i])
				outcomes[i] = Outcome{Source: crops[i].Source, Read: read, Err: err}
				if perrors.IsClassifierUnavailable(err) {
					fatalOnce.Do(func() {
						fatal = err
						cancel()
					})
				}
			}
		}()
	}

feed:
	for i := range crops {
		select {
		case jobs <- i:
			dispatched[i] = true
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	// Crops never handed to a worker report cancellation
	for i, sent := range dispatched {
		if !sent {
			outcomes[i] = Outcome{Source: crops[i].Source, Err: context.Canceled}
		}
	}

	if fatal != nil {
		return outcomes, fatal
	}
	return outcomes, ctx.Err()
}
