package resample

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
)

// Phase names one stage of a pass for timing.
type Phase string

const (
	PhaseSeed     Phase = "seed"
	PhaseFill     Phase = "fill"
	PhaseGeometry Phase = "geometry"
	PhaseInterp   Phase = "interp"
)

// Phases lists every phase in execution order.
var Phases = []Phase{PhaseSeed, PhaseFill, PhaseGeometry, PhaseInterp}

// Result is the output of one pass.
type Result struct {
	Fields           []domain.GridField
	Stats            domain.GridStats
	Sector           Sector
	Search           *SearchGrid
	Timings          map[Phase]time.Duration
	GeometryCacheHit bool
}

// Resampler turns volumes into grids. It is safe for concurrent use; passes
// share only the geometry cache.
type Resampler struct {
	opts   Options
	cache  *GeometryCache
	logger *slog.Logger
}

// New creates a Resampler. A nil cache gets a single-entry cache over the
// default mapper.
func New(opts Options, cache *GeometryCache, logger *slog.Logger) *Resampler {
	if cache == nil {
		cache = NewGeometryCache(NewGeometryMapper(nil), 1)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resampler{opts: opts.withDefaults(), cache: cache, logger: logger}
}

// Options returns the effective options.
func (r *Resampler) Options() Options { return r.opts }

// Resample grids vol onto grid. It fails only for conditions that make the
// whole pass meaningless; cells that cannot be resolved are left missing.
func (r *Resampler) Resample(ctx context.Context, vol *domain.Volume, grid domain.GridSpec) (*Result, error) {
	if err := checkInputs(vol, grid); err != nil {
		return nil, err
	}
	opts := r.opts
	parallel := opts.UseMultipleThreads && opts.NThreads > 1
	res := &Result{Timings: make(map[Phase]time.Duration, len(Phases))}

	start := time.Now()
	search, sector, used, err := r.buildSearchGrid(ctx, vol)
	if err != nil {
		return nil, err
	}
	res.Timings[PhaseSeed] = time.Since(start)

	start = time.Now()
	if err := fillQuadrants(ctx, search, parallel); err != nil {
		return nil, fmt.Errorf("fill search grid: %w", err)
	}
	res.Timings[PhaseFill] = time.Since(start)

	start = time.Now()
	geom, hit, err := r.cache.Get(ctx, vol.SensorID, grid, vol.Radar)
	if err != nil {
		return nil, err
	}
	res.Timings[PhaseGeometry] = time.Since(start)
	res.GeometryCacheHit = hit

	start = time.Now()
	job := &rowJob{
		ip: &interpolator{
			grid:   search,
			sector: sector,
			rays:   vol.Rays,
			bwH:    vol.Radar.BeamWidthH,
			bwV:    vol.Radar.BeamWidthV,
			frac:   opts.BeamWidthExtensionFraction,
		},
		geom:     geom,
		fields:   vol.Fields,
		policies: make([]Policy, len(vol.Fields)),
		minValid: opts.MinValidForInterp,
		out:      make([][]float64, len(vol.Fields)),
	}
	for i, f := range vol.Fields {
		job.policies[i] = PolicyFor(f, opts)
		job.out[i] = missingArray(grid.NPoints())
	}
	if opts.DebugFields {
		job.debug = newDebugOutput(grid.NPoints())
	}
	if err := interpolateRows(ctx, job, opts.NThreads); err != nil {
		return nil, fmt.Errorf("interpolate: %w", err)
	}
	res.Timings[PhaseInterp] = time.Since(start)

	res.Fields = make([]domain.GridField, 0, len(vol.Fields))
	for i, f := range vol.Fields {
		res.Fields = append(res.Fields, domain.GridField{
			Name:    f.Name,
			Units:   f.Units,
			Missing: domain.MissingValue,
			Data:    job.out[i],
		})
	}
	if job.debug != nil {
		res.Fields = append(res.Fields, job.debug.fields()...)
	}

	resolved := 0
	for _, n := range job.resolved {
		resolved += n
	}
	res.Sector = sector
	res.Search = search
	res.Stats = domain.GridStats{
		Cells:      grid.NPoints(),
		Resolved:   resolved,
		Unresolved: grid.NPoints() - resolved,
		RaysUsed:   used,
		IsSector:   sector.IsSector,
	}
	if sector.IsSector {
		res.Stats.SectorStartAzDeg = sector.StartAzDeg
		res.Stats.SectorEndAzDeg = sector.EndAzDeg
	}

	r.logger.Debug("volume resampled",
		"sensor_id", vol.SensorID,
		"rays_used", used,
		"is_sector", sector.IsSector,
		"resolved", resolved,
		"cells", res.Stats.Cells,
		"geometry_cache_hit", hit,
	)
	return res, nil
}

// buildSearchGrid sizes the search grid from the rays and seeds it.
func (r *Resampler) buildSearchGrid(ctx context.Context, vol *domain.Volume) (*SearchGrid, Sector, int, error) {
	opts := r.opts
	rays := vol.Rays
	bwH, bwV := vol.Radar.BeamWidthH, vol.Radar.BeamWidthV

	deltaEl := scanDeltaEl(rays, bwV)
	deltaAz := scanDeltaAz(rays)
	buffer := deltaAz + bwH + 1

	sector, err := DetectSector(rays, buffer)
	if err != nil {
		return nil, Sector{}, 0, err
	}

	radiusEl := deltaEl + bwV + 1
	if opts.SearchRadiusElDeg > 0 {
		radiusEl = opts.SearchRadiusElDeg
	}
	radiusAz := buffer
	if opts.SearchRadiusAzDeg > 0 {
		radiusAz = opts.SearchRadiusAzDeg
	}

	lo, hi := elevationExtent(rays)
	pad := bwV * opts.BeamWidthExtensionFraction * 2
	search, err := newSearchGrid(gridBounds{
		minEl:    lo - pad,
		maxEl:    hi + pad,
		minAz:    sector.StartAzDeg,
		maxAz:    sector.EndAzDeg,
		radiusEl: radiusEl,
		radiusAz: radiusAz,
	}, opts.AngleResDeg)
	if err != nil {
		return nil, Sector{}, 0, err
	}

	used, err := seedGrid(ctx, search, sector, rays, opts.NThreads)
	if err != nil {
		return nil, Sector{}, 0, err
	}
	return search, sector, used, nil
}

func checkInputs(vol *domain.Volume, grid domain.GridSpec) error {
	if vol == nil || len(vol.Rays) == 0 {
		return ErrNoRays
	}
	if err := validateGrid(grid); err != nil {
		return err
	}
	if vol.Radar.BeamWidthH <= 0 || vol.Radar.BeamWidthV <= 0 {
		return fmt.Errorf("%w: h=%g v=%g", ErrNoBeamWidth, vol.Radar.BeamWidthH, vol.Radar.BeamWidthV)
	}
	for i := range vol.Rays {
		ray := &vol.Rays[i]
		if len(ray.Gates) > 0 && ray.GateSpacingKm <= 0 {
			return fmt.Errorf("%w: ray %d gate spacing %g", ErrNoGateGeometry, i, ray.GateSpacingKm)
		}
	}
	return nil
}

func missingArray(n int) []float64 {
	data := make([]float64, n)
	for i := range data {
		data[i] = domain.MissingValue
	}
	return data
}
