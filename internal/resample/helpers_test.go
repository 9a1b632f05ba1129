package resample

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// rayAt builds a ray with one field whose gates all hold value.
func rayAt(az, el float64, sweep int, value float64) domain.Ray {
	gates := make([]float64, 100)
	for i := range gates {
		gates[i] = value
	}
	return domain.Ray{
		AzimuthDeg:    az,
		ElevationDeg:  el,
		SweepIndex:    sweep,
		StartRangeKm:  0,
		GateSpacingKm: 1,
		Gates:         [][]float64{gates},
	}
}

func testVolume(rays ...domain.Ray) *domain.Volume {
	return &domain.Volume{
		SensorID: "TEST",
		Radar: domain.RadarInfo{
			LatitudeDeg:  35,
			LongitudeDeg: -97,
			BeamWidthH:   1,
			BeamWidthV:   1,
		},
		Fields: []domain.FieldInfo{{Name: "DBZ", Missing: -32768}},
		Rays:   rays,
	}
}

func sequentialOptions() Options {
	opts := DefaultOptions()
	opts.UseMultipleThreads = false
	return opts
}

// buildInterpolator seeds and fills the search grid for vol, stopping before
// geometry and interpolation.
func buildInterpolator(t *testing.T, vol *domain.Volume, opts Options) *interpolator {
	t.Helper()
	r := New(opts, nil, discardLogger())
	search, sector, _, err := r.buildSearchGrid(context.Background(), vol)
	require.NoError(t, err)
	require.NoError(t, fillQuadrants(context.Background(), search, false))
	return &interpolator{
		grid:   search,
		sector: sector,
		rays:   vol.Rays,
		bwH:    vol.Radar.BeamWidthH,
		bwV:    vol.Radar.BeamWidthV,
		frac:   r.opts.BeamWidthExtensionFraction,
	}
}

// ppiRays returns one full-circle sweep per elevation at the given azimuth
// step and offset.
func ppiRays(elevations []float64, step, offset float64, value float64) []domain.Ray {
	var rays []domain.Ray
	n := int(360/step + 0.5)
	for sweep, el := range elevations {
		for i := 0; i < n; i++ {
			rays = append(rays, rayAt(domain.NormalizeAz(offset+float64(i)*step), el, sweep, value))
		}
	}
	return rays
}
