package resample

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
)

// seedBlock is the number of rays binned per work unit.
const seedBlock = 512

// runUnits calls fn for every unit in [0, n) on at most limit goroutines.
// Go blocks while the pool is full and Wait drains the rest, so units are
// pulled as workers free up. A limit of 1 runs inline.
func runUnits(ctx context.Context, n, limit int, fn func(ctx context.Context, unit int) error) error {
	if limit <= 1 {
		for u := 0; u < n; u++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx, u); err != nil {
				return err
			}
		}
		return nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for u := 0; u < n; u++ {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			return fn(egCtx, u)
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

type seedBin struct {
	iel, iaz int
	el, az   float64
	ok       bool
}

// seedGrid bins every ray on the pool, then writes the seeds from the calling
// goroutine. Full-circle frames also seed the overlap band above 360. Rays
// without gate geometry are never seeded.
func seedGrid(ctx context.Context, g *SearchGrid, sector Sector, rays []domain.Ray, limit int) (used int, err error) {
	bins := make([]seedBin, len(rays))
	nUnits := (len(rays) + seedBlock - 1) / seedBlock
	err = runUnits(ctx, nUnits, limit, func(_ context.Context, u int) error {
		end := min((u+1)*seedBlock, len(rays))
		for i := u * seedBlock; i < end; i++ {
			el := rays[i].ElevationDeg
			az := sector.seedAz(rays[i].AzimuthDeg)
			iel, iaz := g.ElBin(el), g.AzBin(az)
			ok := iel >= 0 && iaz >= 0 && rays[i].HasGateGeometry()
			bins[i] = seedBin{iel: iel, iaz: iaz, el: el, az: az, ok: ok}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	g.bindRays(len(rays))
	for i, b := range bins {
		g.rayEl[i], g.rayAz[i] = b.el, b.az
		if !b.ok {
			continue
		}
		if g.seed(b.iel, b.iaz, i, false) {
			used++
		}
		if !sector.IsSector && b.az < overlapDeg {
			if iaz := g.AzBin(b.az + 360); iaz >= 0 {
				g.seed(b.iel, iaz, i, true)
			}
		}
	}
	if used < 2 {
		return used, fmt.Errorf("seed search grid: %d of %d rays inside grid: %w", used, len(rays), ErrTooFewRays)
	}
	return used, nil
}

// rowJob carries the read-only state every interpolation row shares.
type rowJob struct {
	ip       *interpolator
	geom     *Geometry
	fields   []domain.FieldInfo
	policies []Policy
	minValid int
	out      [][]float64
	debug    *debugOutput
	resolved []int // per row
}

// interpolateRows resolves every (iz, iy) row of the grid as one pool unit.
// Rows touch disjoint output ranges.
func interpolateRows(ctx context.Context, job *rowJob, limit int) error {
	grid := job.geom.Grid
	nRows := grid.NZ() * grid.NY
	job.resolved = make([]int, nRows)
	return runUnits(ctx, nRows, limit, func(_ context.Context, u int) error {
		job.row(u/grid.NY, u%grid.NY, u)
		return nil
	})
}

func (job *rowJob) row(iz, iy, unit int) {
	grid := job.geom.Grid
	ip := job.ip
	var cw cellWeights
	samples := make([]sample, 0, 2*numQuadrants)

	for ix := 0; ix < grid.NX; ix++ {
		idx := grid.Index(ix, iy, iz)
		loc := &job.geom.Locations[idx]
		az := ip.sector.ConditionAz(loc.AzDeg)
		if !ip.resolve(loc.ElDeg, az, loc.SlantKm, &cw) {
			continue
		}
		job.resolved[unit]++

		for fi := range job.fields {
			samples = gatherSamples(&cw, ip.rays, fi, job.fields[fi].Missing, samples)
			if v, ok := accumulate(job.policies[fi], job.fields[fi], samples, job.minValid); ok {
				job.out[fi][idx] = v
			}
		}
		if job.debug != nil {
			job.debug.record(idx, loc, az, &cw)
		}
	}
}
