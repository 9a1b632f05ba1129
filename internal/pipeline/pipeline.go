package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// errStopped reports that the context ended mid-cycle.
var errStopped = errors.New("pipeline stopped")

// BatchExtractor reads up to batchSize raw volumes from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer turns one raw volume into a grid product.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.GridProduct, error)
}

// BatchLoader writes grid products to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, products []domain.GridProduct) error
}

// Pipeline consumes volumes, grids them, and publishes the products.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	batchSize   int

	produced atomic.Bool
}

// New wires the stages of a pipeline.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil once the pipeline has published a grid.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.produced.Load() {
		return errors.New("pipeline has not produced any grids yet")
	}
	return nil
}

// Ready reports whether a grid has been published.
func (p *Pipeline) Ready() bool { return p.produced.Load() }

// Run loops until ctx is cancelled. It returns nil on cancellation.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	extractBackoff := initialBackoff
	for ctx.Err() == nil {
		raws, err := p.extractor.ExtractBatch(ctx, p.batchSize)
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			p.logger.Error("extract batch failed", "error", err, "retry_in", extractBackoff)
			retry.SleepWithContext(ctx, extractBackoff)
			extractBackoff = retry.NextBackoff(extractBackoff, maxBackoff)
			continue
		}
		extractBackoff = initialBackoff
		if len(raws) == 0 {
			continue
		}
		// errStopped only surfaces once ctx is done, which ends the loop.
		_ = p.cycle(ctx, raws)
	}
	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	return nil
}

// batch is the outcome of resampling one extracted batch.
type batch struct {
	products []domain.GridProduct
	// commits holds every message of the batch in arrival order, skipped
	// volumes included, so offsets only ever move forward.
	commits []domain.RawEvent
	skipped int
}

// cycle grids raws, publishes the products, and commits their offsets.
func (p *Pipeline) cycle(ctx context.Context, raws []domain.RawEvent) error {
	start := time.Now()
	p.metrics.VolumesConsumed.Add(float64(len(raws)))
	p.metrics.BatchSize.Observe(float64(len(raws)))

	b, err := p.resample(ctx, raws)
	if err != nil {
		return err
	}
	if len(b.products) == 0 {
		p.logger.Warn("batch produced no grids", "volumes", len(raws), "skipped", b.skipped)
		p.commitAll(ctx, b.commits)
		return nil
	}
	if err := p.publish(ctx, b.products); err != nil {
		return err
	}
	p.commitAll(ctx, b.commits)

	p.metrics.GridsProduced.Add(float64(len(b.products)))
	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.produced.Store(true)
	p.logger.Debug("batch published",
		"grids", len(b.products),
		"skipped", b.skipped,
		"duration", time.Since(start),
	)
	return nil
}

// resample transforms every volume of the batch. A volume that cannot be
// gridded is skipped; its offset is committed with the rest of the batch.
func (p *Pipeline) resample(ctx context.Context, raws []domain.RawEvent) (batch, error) {
	b := batch{
		products: make([]domain.GridProduct, 0, len(raws)),
		commits:  make([]domain.RawEvent, 0, len(raws)),
	}
	for _, raw := range raws {
		product, err := p.transformer.Transform(ctx, raw)
		if ctx.Err() != nil {
			return batch{}, errStopped
		}
		if err != nil {
			p.logger.Warn("skipping volume",
				"error", err,
				"key", string(raw.Key),
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			b.commits = append(b.commits, raw)
			b.skipped++
			continue
		}
		b.products = append(b.products, product)
		b.commits = append(b.commits, raw)
	}
	return b, nil
}

// publish retries the sink with exponential backoff until it accepts the
// products or ctx ends. Nothing is committed before it succeeds.
func (p *Pipeline) publish(ctx context.Context, products []domain.GridProduct) error {
	wait := initialBackoff
	for attempt := 1; ; attempt++ {
		err := p.loader.LoadBatch(ctx, products)
		if err == nil {
			return nil
		}
		p.logger.Error("load batch failed",
			"error", err,
			"grids", len(products),
			"attempt", attempt,
			"retry_in", wait,
		)
		if !retry.SleepWithContext(ctx, wait) {
			return errStopped
		}
		wait = retry.NextBackoff(wait, maxBackoff)
	}
}

func (p *Pipeline) commitAll(ctx context.Context, raws []domain.RawEvent) {
	for _, raw := range raws {
		p.commit(ctx, raw)
	}
}

func (p *Pipeline) commit(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed",
			"error", err,
			"partition", raw.Partition,
			"offset", raw.Offset,
		)
	}
}
