package resample

import (
	"context"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/geo"
)

// positionEpsilon is how far the sensor may move (degrees, km) before cached
// geometry is recomputed.
const positionEpsilon = 1e-5

// GridLocation is the polar position of one output cell relative to the sensor.
type GridLocation struct {
	ElDeg    float64
	AzDeg    float64 // [0, 360), not yet conditioned
	SlantKm  float64
	GroundKm float64
	XYZ      r3.Vec // instrument frame: x east, y north, z up, km
}

// Geometry holds the GridLocation of every output cell, addressed like the
// output fields.
type Geometry struct {
	Grid      domain.GridSpec
	Radar     domain.RadarInfo
	Locations []GridLocation
}

// matches reports whether g was computed for this grid and a sensor within
// epsilon of radar.
func (g *Geometry) matches(grid domain.GridSpec, radar domain.RadarInfo) bool {
	return sameGrid(g.Grid, grid) &&
		math.Abs(g.Radar.LatitudeDeg-radar.LatitudeDeg) <= positionEpsilon &&
		math.Abs(g.Radar.LongitudeDeg-radar.LongitudeDeg) <= positionEpsilon &&
		math.Abs(g.Radar.AltitudeKm-radar.AltitudeKm) <= positionEpsilon
}

func sameGrid(a, b domain.GridSpec) bool {
	return a.NX == b.NX && a.NY == b.NY &&
		a.MinXKm == b.MinXKm && a.MinYKm == b.MinYKm &&
		a.DXKm == b.DXKm && a.DYKm == b.DYKm &&
		a.OriginLat == b.OriginLat && a.OriginLon == b.OriginLon &&
		a.Projection == b.Projection &&
		slices.Equal(a.ZLevelsKm, b.ZLevelsKm)
}

// ProjectorFunc builds the grid projection for an origin.
type ProjectorFunc func(kind string, originLat, originLon float64) (geo.Projector, error)

func defaultProjector(kind string, lat, lon float64) (geo.Projector, error) {
	return geo.NewProjection(kind, lat, lon)
}

// GeometryMapper computes per-cell polar coordinates for an output grid.
type GeometryMapper struct {
	beam      geo.BeamModel
	projector ProjectorFunc
}

// NewGeometryMapper returns a mapper using the 4/3-earth beam model. A nil
// projector selects the PROJ4 projections of package geo.
func NewGeometryMapper(projector ProjectorFunc) *GeometryMapper {
	if projector == nil {
		projector = defaultProjector
	}
	return &GeometryMapper{beam: geo.NewBeamModel(), projector: projector}
}

// Map computes the geometry of grid as seen from radar. Grids without an
// explicit origin are centered on the sensor.
func (m *GeometryMapper) Map(ctx context.Context, grid domain.GridSpec, radar domain.RadarInfo) (*Geometry, error) {
	if err := validateGrid(grid); err != nil {
		return nil, err
	}
	originLat, originLon := radar.LatitudeDeg, radar.LongitudeDeg
	if grid.HasOrigin() {
		originLat, originLon = grid.OriginLat, grid.OriginLon
	}
	proj, err := m.projector(grid.Projection, originLat, originLon)
	if err != nil {
		return nil, fmt.Errorf("map geometry: %w", err)
	}

	locs := make([]GridLocation, grid.NPoints())
	nz := grid.NZ()
	for iy := 0; iy < grid.NY; iy++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		y := grid.MinYKm + float64(iy)*grid.DYKm
		for ix := 0; ix < grid.NX; ix++ {
			x := grid.MinXKm + float64(ix)*grid.DXKm
			lat, lon, err := proj.ToLatLon(x, y)
			if err != nil {
				return nil, fmt.Errorf("map geometry: project (%g, %g): %w", x, y, err)
			}
			ground, az := geo.RangeAzimuth(radar.LatitudeDeg, radar.LongitudeDeg, lat, lon)
			sinAz, cosAz := math.Sincos(az * math.Pi / 180)

			for iz := 0; iz < nz; iz++ {
				dh := grid.ZLevelsKm[iz] - radar.AltitudeKm
				el, slant := m.beam.ElevationSlant(ground, dh)
				sinEl, cosEl := math.Sincos(el * math.Pi / 180)
				horiz := slant * cosEl
				locs[grid.Index(ix, iy, iz)] = GridLocation{
					ElDeg:    el,
					AzDeg:    az,
					SlantKm:  slant,
					GroundKm: ground,
					XYZ:      r3.Vec{X: horiz * sinAz, Y: horiz * cosAz, Z: slant * sinEl},
				}
			}
		}
	}
	return &Geometry{Grid: grid, Radar: radar, Locations: locs}, nil
}

func validateGrid(grid domain.GridSpec) error {
	switch {
	case grid.NX < 1 || grid.NY < 1:
		return fmt.Errorf("%w: nx=%d ny=%d", ErrInvalidGrid, grid.NX, grid.NY)
	case grid.NZ() < 1:
		return fmt.Errorf("%w: no z levels", ErrInvalidGrid)
	case grid.DXKm <= 0 || grid.DYKm <= 0:
		return fmt.Errorf("%w: dx=%g dy=%g", ErrInvalidGrid, grid.DXKm, grid.DYKm)
	}
	return nil
}

// GeometryCache keeps the most recent geometry per sensor. An entry is reused
// until the sensor moves beyond epsilon or the grid changes.
type GeometryCache struct {
	mapper *GeometryMapper
	lru    *lruCache
}

// NewGeometryCache caches up to maxSensors geometries computed by mapper.
func NewGeometryCache(mapper *GeometryMapper, maxSensors int) *GeometryCache {
	if maxSensors < 1 {
		maxSensors = 1
	}
	return &GeometryCache{mapper: mapper, lru: newLRUCache(maxSensors)}
}

// Get returns the geometry for sensorID, computing it when absent or stale.
// hit reports whether the cached entry was reused.
func (c *GeometryCache) Get(ctx context.Context, sensorID string, grid domain.GridSpec, radar domain.RadarInfo) (geom *Geometry, hit bool, err error) {
	if cached, ok := c.lru.get(sensorID); ok && cached.matches(grid, radar) {
		return cached, true, nil
	}
	geom, err = c.mapper.Map(ctx, grid, radar)
	if err != nil {
		return nil, false, err
	}
	c.lru.put(sensorID, geom)
	return geom, false, nil
}

// Invalidate drops the entry for sensorID.
func (c *GeometryCache) Invalidate(sensorID string) { c.lru.delete(sensorID) }

// Len returns the number of cached sensors.
func (c *GeometryCache) Len() int { return c.lru.len() }
