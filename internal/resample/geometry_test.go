package resample

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/geo"
)

func smallGrid() domain.GridSpec {
	return domain.GridSpec{
		NX: 11, NY: 11,
		MinXKm: -20, MinYKm: -20,
		DXKm: 4, DYKm: 4,
		ZLevelsKm: []float64{1, 3},
	}
}

var ktlx = domain.RadarInfo{LatitudeDeg: 35.333, LongitudeDeg: -97.278, AltitudeKm: 0.384, BeamWidthH: 1, BeamWidthV: 1}

// countingProjector wraps the real projection and counts constructions.
type countingProjector struct {
	builds int
}

func (c *countingProjector) build(kind string, lat, lon float64) (geo.Projector, error) {
	c.builds++
	return geo.NewProjection(kind, lat, lon)
}

func TestGeometryMapper_Map(t *testing.T) {
	grid := smallGrid()
	geom, err := NewGeometryMapper(nil).Map(context.Background(), grid, ktlx)
	require.NoError(t, err)
	require.Len(t, geom.Locations, grid.NPoints())

	// x = +20 km east, y = 0 at z = 1 km.
	loc := geom.Locations[grid.Index(10, 5, 0)]
	assert.InDelta(t, 90, loc.AzDeg, 0.1)
	assert.InDelta(t, 20, loc.GroundKm, 0.1)
	assert.Greater(t, loc.ElDeg, 0.0)
	assert.InDelta(t, 20, loc.XYZ.X, 0.1)
	assert.InDelta(t, 0, loc.XYZ.Y, 0.1)
	assert.InDelta(t, loc.SlantKm, r3.Norm(loc.XYZ), 1e-9)

	// Cell above the sensor.
	center := geom.Locations[grid.Index(5, 5, 1)]
	assert.InDelta(t, 0, center.GroundKm, 1e-6)
	assert.InDelta(t, 90, center.ElDeg, 1e-6)
	assert.InDelta(t, 3-ktlx.AltitudeKm, center.SlantKm, 1e-6)
}

func TestGeometryMapper_InvalidGrid(t *testing.T) {
	grid := smallGrid()
	grid.ZLevelsKm = nil
	_, err := NewGeometryMapper(nil).Map(context.Background(), grid, ktlx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidGrid))
}

func TestGeometryMapper_ProjectionError(t *testing.T) {
	grid := smallGrid()
	grid.Projection = "nonsense"
	_, err := NewGeometryMapper(nil).Map(context.Background(), grid, ktlx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown projection")
}

func TestGeometryCache_ReusesUntilSensorMoves(t *testing.T) {
	proj := &countingProjector{}
	cache := NewGeometryCache(NewGeometryMapper(proj.build), 4)
	ctx := context.Background()
	grid := smallGrid()

	first, hit, err := cache.Get(ctx, "KTLX", grid, ktlx)
	require.NoError(t, err)
	assert.False(t, hit)

	again, hit, err := cache.Get(ctx, "KTLX", grid, ktlx)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Same(t, first, again)

	jitter := ktlx
	jitter.LatitudeDeg += positionEpsilon / 2
	_, hit, err = cache.Get(ctx, "KTLX", grid, jitter)
	require.NoError(t, err)
	assert.True(t, hit, "movement below epsilon keeps the cache")

	moved := ktlx
	moved.AltitudeKm += 0.01
	_, hit, err = cache.Get(ctx, "KTLX", grid, moved)
	require.NoError(t, err)
	assert.False(t, hit)

	assert.Equal(t, 2, proj.builds)
}

func TestGeometryCache_GridChangeInvalidates(t *testing.T) {
	cache := NewGeometryCache(NewGeometryMapper(nil), 4)
	ctx := context.Background()
	grid := smallGrid()

	_, _, err := cache.Get(ctx, "KTLX", grid, ktlx)
	require.NoError(t, err)

	grid.ZLevelsKm = []float64{1, 3, 5}
	geom, hit, err := cache.Get(ctx, "KTLX", grid, ktlx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, geom.Locations, grid.NPoints())
}

func TestGeometryCache_EvictsLeastRecentSensor(t *testing.T) {
	proj := &countingProjector{}
	cache := NewGeometryCache(NewGeometryMapper(proj.build), 2)
	ctx := context.Background()
	grid := smallGrid()

	for _, id := range []string{"KTLX", "KFDR", "KTLX", "KINX"} {
		_, _, err := cache.Get(ctx, id, grid, ktlx)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, cache.Len())
	assert.Equal(t, 3, proj.builds)

	// KFDR was least recently used.
	_, hit, err := cache.Get(ctx, "KFDR", grid, ktlx)
	require.NoError(t, err)
	assert.False(t, hit)
	_, hit, err = cache.Get(ctx, "KINX", grid, ktlx)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestGeometryCache_Invalidate(t *testing.T) {
	cache := NewGeometryCache(NewGeometryMapper(nil), 2)
	_, _, err := cache.Get(context.Background(), "KTLX", smallGrid(), ktlx)
	require.NoError(t, err)

	cache.Invalidate("KTLX")
	assert.Equal(t, 0, cache.Len())
}

func TestGridLocation_ElevationMatchesBeamModel(t *testing.T) {
	grid := smallGrid()
	geom, err := NewGeometryMapper(nil).Map(context.Background(), grid, ktlx)
	require.NoError(t, err)

	beam := geo.NewBeamModel()
	for _, loc := range geom.Locations {
		if loc.GroundKm < 1 {
			continue
		}
		h := beam.Height(loc.SlantKm, loc.ElDeg)
		g := beam.GroundRange(loc.SlantKm, loc.ElDeg)
		assert.InDelta(t, loc.GroundKm, g, 1e-6)
		assert.False(t, math.IsNaN(h))
	}
}
