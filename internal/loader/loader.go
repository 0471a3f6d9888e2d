package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"sync"

	"vidbunch/internal/collate"
	"vidbunch/internal/dataset"
	"vidbunch/internal/logging"
	"vidbunch/internal/vberr"
)

// shuffleStream is the PCG stream reserved for epoch shuffling; worker
// streams use the worker number.
const shuffleStream = ^uint64(0)

// Dataset is the part of *dataset.Dataset the loader needs.
type Dataset interface {
	Len() int
	Item(ctx context.Context, i int, rng *rand.Rand) (dataset.Sample, error)
}

// Options configures a Loader.
type Options struct {
	BatchSize int
	Shuffle   bool
	DropLast  bool
	Workers   int
	Seed      uint64
	// WorkerInit runs on each worker goroutine before it takes any work.
	WorkerInit func(worker int, rng *rand.Rand)
	Logger     *slog.Logger
}

// Loader delivers collated batches from a dataset.
type Loader struct {
	ds      Dataset
	opts    Options
	logger  *slog.Logger
	mu      sync.Mutex
	shuffle *rand.Rand
	rngs    []*rand.Rand
	epoch   int
}

// New validates opts and seeds the per-worker generators.
func New(ds Dataset, opts Options) (*Loader, error) {
	if ds == nil {
		return nil, vberr.Configf("loader", "dataset is required")
	}
	if opts.BatchSize <= 0 {
		return nil, vberr.Configf("loader", "batch_size must be positive, received %d", opts.BatchSize)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	l := &Loader{
		ds:      ds,
		opts:    opts,
		logger:  logging.NewComponentLogger(opts.Logger, "loader"),
		shuffle: rand.New(rand.NewPCG(opts.Seed, shuffleStream)),
		rngs:    make([]*rand.Rand, opts.Workers),
	}
	for w := range l.rngs {
		l.rngs[w] = rand.New(rand.NewPCG(opts.Seed, uint64(w)))
	}
	return l, nil
}

// NumBatches returns the number of batches one epoch yields.
func (l *Loader) NumBatches() int {
	n := l.ds.Len()
	if l.opts.DropLast {
		return n / l.opts.BatchSize
	}
	return (n + l.opts.BatchSize - 1) / l.opts.BatchSize
}

// Epoch returns the number of completed or started epochs.
func (l *Loader) Epoch() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.epoch
}

// plan returns the row indices of every batch of the next epoch.
func (l *Loader) plan() [][]int {
	order := make([]int, l.ds.Len())
	for i := range order {
		order[i] = i
	}
	if l.opts.Shuffle {
		l.shuffle.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	batches := make([][]int, 0, l.NumBatches())
	for start := 0; start < len(order); start += l.opts.BatchSize {
		end := min(start+l.opts.BatchSize, len(order))
		if end-start < l.opts.BatchSize && l.opts.DropLast {
			break
		}
		batches = append(batches, order[start:end])
	}
	return batches
}

type job struct {
	index int
	rows  []int
}

type result struct {
	index int
	batch *collate.Batch
	err   error
}

// Run loads one epoch and calls fn with each batch in order. Calls to Run are
// serialized.
func (l *Loader) Run(ctx context.Context, fn func(*collate.Batch) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.epoch++

	logger := logging.WithContext(ctx, l.logger).With(slog.Int("epoch", l.epoch))
	batches := l.plan()
	if len(batches) == 0 {
		logger.Debug("epoch has no batches")
		return nil
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	workers := min(l.opts.Workers, len(batches))
	jobs := make(chan job)
	results := make(chan result, workers)
	// slots bounds how many batches may be built ahead of delivery.
	slots := make(chan struct{}, 2*workers)

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go l.work(ctx, w, jobs, results, &wg)
	}
	go func() {
		defer close(jobs)
		for i, rows := range batches {
			select {
			case slots <- struct{}{}:
			case <-ctx.Done():
				return
			}
			select {
			case jobs <- job{index: i, rows: rows}:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	progress := logging.NewProgressSampler(10)
	pending := make(map[int]*collate.Batch)
	next := 0
	var runErr error
	for r := range results {
		if runErr != nil {
			continue
		}
		if r.err != nil {
			runErr = r.err
			cancel(runErr)
			continue
		}
		pending[r.index] = r.batch
		for {
			batch, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			if err := fn(batch); err != nil {
				runErr = err
				cancel(runErr)
				break
			}
			next++
			<-slots
			if progress.ShouldLog(next, len(batches)) {
				logger.Info("epoch progress",
					slog.Int("batches", next),
					slog.Int("total", len(batches)),
				)
			}
		}
	}

	if runErr != nil {
		logger.Warn("epoch aborted",
			slog.Int("delivered", next),
			logging.Error(runErr),
			slog.String(logging.FieldErrorKind, vberr.Kind(runErr)),
		)
		return runErr
	}
	if next < len(batches) {
		if cause := context.Cause(ctx); cause != nil {
			return cause
		}
		return fmt.Errorf("epoch ended after %d of %d batches", next, len(batches))
	}
	return nil
}

func (l *Loader) work(ctx context.Context, worker int, jobs <-chan job, results chan<- result, wg *sync.WaitGroup) {
	defer wg.Done()
	rng := l.rngs[worker]
	if l.opts.WorkerInit != nil {
		l.opts.WorkerInit(worker, rng)
	}
	logger := l.logger.With(slog.Int(logging.FieldWorker, worker))

	for j := range jobs {
		batch, err := l.load(ctx, rng, j.rows)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Debug("batch failed", slog.Int("batch", j.index), logging.Error(err))
		}
		select {
		case results <- result{index: j.index, batch: batch, err: err}:
		case <-ctx.Done():
			return
		}
	}
}

func (l *Loader) load(ctx context.Context, rng *rand.Rand, rows []int) (*collate.Batch, error) {
	samples := make([]dataset.Sample, 0, len(rows))
	for _, i := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sample, err := l.ds.Item(ctx, i, rng)
		if err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	batch, err := collate.Collate(samples)
	if err != nil {
		return nil, err
	}
	batch.Indices = append([]int(nil), rows...)
	return batch, nil
}
