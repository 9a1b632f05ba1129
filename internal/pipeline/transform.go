package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/observability"
	"github.com/couchcryptid/storm-data-radar/internal/resample"
)

// Status describes the most recent product of one sensor.
type Status struct {
	ProductID   string                   `json:"product_id"`
	SensorID    string                   `json:"sensor_id"`
	VolumeTime  time.Time                `json:"volume_time"`
	ProcessedAt time.Time                `json:"processed_at"`
	Stats       domain.GridStats         `json:"stats"`
	Sector      resample.Sector          `json:"sector"`
	TimingsMS   map[resample.Phase]int64 `json:"timings_ms"`
}

// VolumeTransformer implements Transformer by parsing a volume and gridding
// it onto a fixed output grid.
type VolumeTransformer struct {
	resampler *resample.Resampler
	grid      domain.GridSpec
	metrics   *observability.Metrics
	logger    *slog.Logger

	mu       sync.RWMutex
	last     *Status
	bySensor map[string]*Status
}

// NewTransformer creates a VolumeTransformer for grid.
func NewTransformer(r *resample.Resampler, grid domain.GridSpec, metrics *observability.Metrics, logger *slog.Logger) *VolumeTransformer {
	return &VolumeTransformer{
		resampler: r,
		grid:      grid,
		metrics:   metrics,
		logger:    logger,
		bySensor:  make(map[string]*Status),
	}
}

func (t *VolumeTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.GridProduct, error) {
	vol, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.GridProduct{}, err
	}

	res, err := t.resampler.Resample(ctx, &vol, t.grid)
	if err != nil {
		return domain.GridProduct{}, err
	}
	t.observe(res)

	product := domain.NewGridProduct(vol, t.grid, res.Fields, res.Stats)
	status := &Status{
		ProductID:   product.ID,
		SensorID:    product.SensorID,
		VolumeTime:  product.VolumeTime,
		ProcessedAt: product.ProcessedAt,
		Stats:       product.Stats,
		Sector:      res.Sector,
		TimingsMS:   make(map[resample.Phase]int64, len(res.Timings)),
	}
	for phase, d := range res.Timings {
		status.TimingsMS[phase] = d.Milliseconds()
	}
	t.record(status)

	t.logger.Info("grid produced",
		"product_id", product.ID,
		"sensor_id", product.SensorID,
		"volume_time", product.VolumeTime,
		"resolved", product.Stats.Resolved,
		"unresolved", product.Stats.Unresolved,
	)
	return product, nil
}

func (t *VolumeTransformer) record(s *Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = s
	if prev, ok := t.bySensor[s.SensorID]; ok && prev.VolumeTime.After(s.VolumeTime) {
		return
	}
	t.bySensor[s.SensorID] = s
}

// LastStatus returns the status of the most recent product, or nil.
func (t *VolumeTransformer) LastStatus() *Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// SensorStatus returns the status of the newest volume gridded for sensorID.
func (t *VolumeTransformer) SensorStatus(sensorID string) (Status, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.bySensor[sensorID]
	if !ok {
		return Status{}, false
	}
	return *s, true
}

// Statuses returns the newest status of every sensor, ordered by sensor ID.
func (t *VolumeTransformer) Statuses() []Status {
	t.mu.RLock()
	out := make([]Status, 0, len(t.bySensor))
	for _, s := range t.bySensor {
		out = append(out, *s)
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].SensorID < out[j].SensorID })
	return out
}

func (t *VolumeTransformer) observe(res *resample.Result) {
	if t.metrics == nil {
		return
	}
	for phase, d := range res.Timings {
		t.metrics.PhaseDuration.WithLabelValues(string(phase)).Observe(d.Seconds())
	}
	t.metrics.CellsResolved.Add(float64(res.Stats.Resolved))
	t.metrics.CellsUnresolved.Add(float64(res.Stats.Unresolved))
	result := observability.CacheMiss
	if res.GeometryCacheHit {
		result = observability.CacheHit
	}
	t.metrics.GeometryCache.WithLabelValues(result).Inc()
}
