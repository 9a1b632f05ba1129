package resample

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/mockvolume"
)

// mockGrid covers the storm cell of mockvolume.Default: 0..40 km east and
// north at 2 km, two levels.
func mockGrid() domain.GridSpec {
	return domain.GridSpec{
		NX: 21, NY: 21,
		MinXKm: 0, MinYKm: 0,
		DXKm: 2, DYKm: 2,
		ZLevelsKm: []float64{1, 3},
	}
}

func mockOptions() Options {
	opts := DefaultOptions()
	opts.AngleResDeg = 0.2
	opts.NThreads = 4
	return opts
}

func mockVolume(t *testing.T, s mockvolume.Spec) *domain.Volume {
	t.Helper()
	vol := mockvolume.Build(s)
	require.NoError(t, domain.ValidateVolume(vol))
	return &vol
}

func TestResample_InputErrors(t *testing.T) {
	good := rayAt(10, 1, 0, 5)
	noSpacing := rayAt(11, 1, 0, 5)
	noSpacing.GateSpacingKm = 0

	tests := []struct {
		name string
		vol  *domain.Volume
		grid domain.GridSpec
		want error
	}{
		{"nil volume", nil, smallGrid(), ErrNoRays},
		{"no rays", testVolume(), smallGrid(), ErrNoRays},
		{"single ray", testVolume(good), smallGrid(), ErrTooFewRays},
		{"bad gate spacing", testVolume(good, noSpacing), smallGrid(), ErrNoGateGeometry},
		{"invalid grid", testVolume(good, rayAt(11, 1, 0, 5)), domain.GridSpec{NX: 0, NY: 1, DXKm: 1, DYKm: 1, ZLevelsKm: []float64{1}}, ErrInvalidGrid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(sequentialOptions(), nil, discardLogger()).Resample(context.Background(), tt.vol, tt.grid)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestResample_NoBeamWidth(t *testing.T) {
	vol := testVolume(rayAt(10, 1, 0, 5), rayAt(11, 1, 0, 5))
	vol.Radar.BeamWidthV = 0
	_, err := New(sequentialOptions(), nil, discardLogger()).Resample(context.Background(), vol, smallGrid())
	require.ErrorIs(t, err, ErrNoBeamWidth)
}

func TestResample_MockVolumeMatchesTruth(t *testing.T) {
	spec := mockvolume.Default()
	vol := mockVolume(t, spec)
	grid := mockGrid()

	res, err := New(mockOptions(), nil, discardLogger()).Resample(context.Background(), vol, grid)
	require.NoError(t, err)
	require.Len(t, res.Fields, 3)
	assert.False(t, res.Sector.IsSector)
	assert.Equal(t, len(vol.Rays), res.Stats.RaysUsed)
	assert.Equal(t, grid.NPoints(), res.Stats.Cells)
	assert.Equal(t, res.Stats.Cells, res.Stats.Resolved+res.Stats.Unresolved)
	for _, p := range Phases {
		assert.Contains(t, res.Timings, p)
	}

	dbz := res.Fields[0]
	assert.Equal(t, mockvolume.FieldReflectivity, dbz.Name)
	assert.Equal(t, domain.MissingValue, dbz.Missing)

	// Near the cell center at 1 km.
	got := dbz.Data[grid.Index(10, 8, 0)]
	want := spec.Reflectivity(20, 16, 1)
	assert.InDelta(t, want, got, 3, "dBZ at (20, 16, 1)")

	// A few kilometres off center still tracks the Gaussian.
	got = dbz.Data[grid.Index(12, 9, 0)]
	want = spec.Reflectivity(24, 18, 1)
	assert.InDelta(t, want, got, 3, "dBZ at (24, 18, 1)")
}

func TestResample_GatelessRayKeepsOutputFinite(t *testing.T) {
	vol := mockVolume(t, mockvolume.Default())
	for i := range vol.Rays {
		if vol.Rays[i].SweepIndex == 1 && i%7 == 0 {
			vol.Rays[i].Gates = nil
			vol.Rays[i].GateSpacingKm = 0
		}
	}

	res, err := New(mockOptions(), nil, discardLogger()).Resample(context.Background(), vol, mockGrid())
	require.NoError(t, err)
	for _, f := range res.Fields {
		for i, v := range f.Data {
			require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "%s[%d] = %v", f.Name, i, v)
		}
	}
	assert.Positive(t, res.Stats.Resolved)
}

func TestResample_FieldPolicies(t *testing.T) {
	spec := mockvolume.Default()
	res, err := New(mockOptions(), nil, discardLogger()).Resample(context.Background(), mockVolume(t, spec), mockGrid())
	require.NoError(t, err)

	vel, class := res.Fields[1], res.Fields[2]
	nVel := 0
	for _, v := range vel.Data {
		if v == domain.MissingValue {
			continue
		}
		nVel++
		assert.GreaterOrEqual(t, v, -spec.NyquistMS)
		assert.Less(t, v, spec.NyquistMS)
	}
	assert.Positive(t, nVel)

	for i, v := range class.Data {
		assert.Contains(t, []float64{1, 2, domain.MissingValue}, v, "echo class at %d", i)
	}
}

func TestResample_ThreadCountDoesNotChangeOutput(t *testing.T) {
	spec := mockvolume.Default()
	grid := mockGrid()

	seq := mockOptions()
	seq.UseMultipleThreads = false
	want, err := New(seq, nil, discardLogger()).Resample(context.Background(), mockVolume(t, spec), grid)
	require.NoError(t, err)

	got, err := New(mockOptions(), nil, discardLogger()).Resample(context.Background(), mockVolume(t, spec), grid)
	require.NoError(t, err)

	require.Equal(t, want.Fields, got.Fields)
	require.Equal(t, want.Stats, got.Stats)
	require.Equal(t, want.Search.Dump(want.Sector), got.Search.Dump(got.Sector))
}

func TestResample_GeometryCache(t *testing.T) {
	spec := mockvolume.Default()
	grid := mockGrid()
	r := New(mockOptions(), NewGeometryCache(NewGeometryMapper(nil), 4), discardLogger())
	ctx := context.Background()

	first, err := r.Resample(ctx, mockVolume(t, spec), grid)
	require.NoError(t, err)
	assert.False(t, first.GeometryCacheHit)

	second, err := r.Resample(ctx, mockVolume(t, spec), grid)
	require.NoError(t, err)
	assert.True(t, second.GeometryCacheHit)
	assert.Equal(t, first.Fields, second.Fields)

	spec.LatitudeDeg += 0.01
	moved, err := r.Resample(ctx, mockVolume(t, spec), grid)
	require.NoError(t, err)
	assert.False(t, moved.GeometryCacheHit)
}

func TestResample_SectorVolume(t *testing.T) {
	spec := mockvolume.Default()
	spec.GapStartDeg = 90
	spec.GapWidthDeg = 180
	grid := domain.GridSpec{
		NX: 21, NY: 21,
		MinXKm: -40, MinYKm: -40,
		DXKm: 4, DYKm: 4,
		ZLevelsKm: []float64{1},
	}

	res, err := New(mockOptions(), nil, discardLogger()).Resample(context.Background(), mockVolume(t, spec), grid)
	require.NoError(t, err)
	require.True(t, res.Sector.IsSector)
	assert.True(t, res.Sector.SpansNorth)
	assert.True(t, res.Stats.IsSector)
	assert.Less(t, res.Stats.SectorStartAzDeg, 360.0)
	assert.Greater(t, res.Stats.SectorEndAzDeg, 360.0)

	vel := res.Fields[1]
	north := vel.Data[grid.Index(10, 18, 0)] // (0, 32) km
	south := vel.Data[grid.Index(10, 2, 0)]  // (0, -32) km
	assert.NotEqual(t, domain.MissingValue, north)
	assert.Equal(t, domain.MissingValue, south)
	assert.Positive(t, res.Stats.Unresolved)
}

func TestResample_DebugFields(t *testing.T) {
	opts := mockOptions()
	opts.DebugFields = true
	res, err := New(opts, nil, discardLogger()).Resample(context.Background(), mockVolume(t, mockvolume.Default()), mockGrid())
	require.NoError(t, err)

	names := make(map[string]domain.GridField, len(res.Fields))
	for _, f := range res.Fields {
		names[f.Name] = f
	}
	for _, n := range []string{DebugNContrib, DebugEl, DebugAz, DebugRange, "debug_lower_left_el", "debug_upper_right_az"} {
		assert.Contains(t, names, n)
	}

	idx := mockGrid().Index(10, 8, 0)
	assert.Positive(t, names[DebugNContrib].Data[idx])
	assert.InDelta(t, math.Hypot(20, 16), names[DebugRange].Data[idx], 0.5)
}

func TestResample_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, threads := range []bool{false, true} {
		opts := mockOptions()
		opts.UseMultipleThreads = threads
		_, err := New(opts, nil, discardLogger()).Resample(ctx, mockVolume(t, mockvolume.Default()), mockGrid())
		require.ErrorIs(t, err, context.Canceled)
	}
}

func TestSearchMatrix_RoundTrip(t *testing.T) {
	res, err := New(mockOptions(), nil, discardLogger()).Resample(context.Background(), mockVolume(t, mockvolume.Default()), mockGrid())
	require.NoError(t, err)

	dump := res.Search.Dump(res.Sector)
	var buf bytes.Buffer
	require.NoError(t, WriteSearchMatrix(&buf, dump))

	got, err := ReadSearchMatrix(&buf)
	require.NoError(t, err)
	assert.Equal(t, dump, got)
	assert.Len(t, got.Quadrants, int(numQuadrants))
	assert.Len(t, got.Quadrants[LowerLeft.String()].Rays, got.NEl*got.NAz)
}
