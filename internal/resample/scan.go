package resample

import (
	"math"
	"slices"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
)

// scanDeltaEl returns the widest spacing between consecutive sweep
// elevations. A single-sweep volume falls back to the vertical beam width.
func scanDeltaEl(rays []domain.Ray, beamWidthV float64) float64 {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for i := range rays {
		sums[rays[i].SweepIndex] += rays[i].ElevationDeg
		counts[rays[i].SweepIndex]++
	}
	els := make([]float64, 0, len(sums))
	for sweep, sum := range sums {
		els = append(els, sum/float64(counts[sweep]))
	}
	slices.Sort(els)

	delta := 0.0
	for i := 1; i < len(els); i++ {
		delta = math.Max(delta, els[i]-els[i-1])
	}
	if delta <= 0 {
		return beamWidthV
	}
	return delta
}

// scanDeltaAz returns the median azimuth step between consecutive rays of
// the same sweep, or 1 degree when no step can be measured.
func scanDeltaAz(rays []domain.Ray) float64 {
	steps := make([]float64, 0, len(rays))
	for i := 1; i < len(rays); i++ {
		if rays[i].SweepIndex != rays[i-1].SweepIndex {
			continue
		}
		d := math.Abs(rays[i].AzimuthDeg - rays[i-1].AzimuthDeg)
		if d > 180 {
			d = 360 - d
		}
		if d > 0 {
			steps = append(steps, d)
		}
	}
	if len(steps) == 0 {
		return 1
	}
	slices.Sort(steps)
	return steps[len(steps)/2]
}

func elevationExtent(rays []domain.Ray) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for i := range rays {
		lo = math.Min(lo, rays[i].ElevationDeg)
		hi = math.Max(hi, rays[i].ElevationDeg)
	}
	return lo, hi
}
