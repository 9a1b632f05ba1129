package resample

import (
	"fmt"
	"math"
)

// Quadrant names a search direction by the corner of a cell its rays come from.
type Quadrant int

const (
	LowerLeft Quadrant = iota
	UpperLeft
	LowerRight
	UpperRight
	numQuadrants
)

var quadrantNames = [numQuadrants]string{"lower_left", "upper_left", "lower_right", "upper_right"}

func (q Quadrant) String() string {
	if q < 0 || q >= numQuadrants {
		return fmt.Sprintf("quadrant(%d)", int(q))
	}
	return quadrantNames[q]
}

// step returns the direction each quadrant floods toward: a lower-left seed
// is the lower-left corner of every cell above and to the right of it.
func (q Quadrant) step() (dEl, dAz int) {
	switch q {
	case LowerLeft:
		return 1, 1
	case UpperLeft:
		return -1, 1
	case LowerRight:
		return 1, -1
	default:
		return -1, -1
	}
}

func (q Quadrant) upper() bool { return q == UpperLeft || q == UpperRight }
func (q Quadrant) right() bool { return q == LowerRight || q == UpperRight }

// noRay marks an empty cell.
const noRay = -1

// maxSearchCells caps the cells of one quadrant buffer. Operational volumes
// at 0.1 degrees need well under a quarter of it.
const maxSearchCells = 1 << 23

// maxPropagation bounds the propagation distance so levels fit in a cell.
const maxPropagation = math.MaxInt16 / 2

// SearchPoint is one search grid cell as seen by callers: the nearest ray in
// the quadrant's direction, as an index into the volume's ray slice, plus
// the ray's angles in the grid frame.
type SearchPoint struct {
	Level  int
	ElDist int
	AzDist int
	Ray    int

	RayEl float64
	RayAz float64 // grid frame, may exceed 360

	InterpEl float64
	InterpAz float64
}

// Empty reports whether the point references no ray.
func (p SearchPoint) Empty() bool { return p.Ray < 0 }

var emptyPoint = SearchPoint{Ray: noRay}

// searchCell is the stored form of a SearchPoint. Angles live once per ray in
// the grid's ray table.
type searchCell struct {
	ray     int32
	level   int16
	elDist  int16
	azDist  int16
	wrapped bool // seeded from the overlap band, azimuth +360
}

var emptyCell = searchCell{ray: noRay}

func (c *searchCell) empty() bool { return c.ray < 0 }

// SearchGrid is the elevation x azimuth lattice, one flat buffer per quadrant.
type SearchGrid struct {
	ResDeg   float64
	MinElDeg float64
	MinAzDeg float64
	NEl      int
	NAz      int

	MaxPropEl int
	MaxPropAz int

	cells [numQuadrants][]searchCell

	// Seed angles per ray index, grid frame without the overlap offset.
	rayEl []float64
	rayAz []float64
}

// gridBounds holds the angular extent of a search grid before allocation.
type gridBounds struct {
	minEl, maxEl float64
	minAz, maxAz float64
	radiusEl     float64
	radiusAz     float64
}

// newSearchGrid allocates an empty grid covering b, widened in elevation by
// the search radius, at resolution res.
func newSearchGrid(b gridBounds, res float64) (*SearchGrid, error) {
	minEl := snapDown(b.minEl-b.radiusEl, res)
	maxEl := snapUp(b.maxEl+b.radiusEl, res)
	minAz := snapDown(b.minAz, res)
	maxAz := snapUp(b.maxAz, res)

	spanEl := (maxEl-minEl)/res + 1
	spanAz := (maxAz-minAz)/res + 1
	if !(spanEl >= 1 && spanAz >= 1) {
		return nil, fmt.Errorf("search grid: empty extent el [%g, %g] az [%g, %g]", minEl, maxEl, minAz, maxAz)
	}
	if spanEl*spanAz > maxSearchCells {
		return nil, fmt.Errorf("search grid: el [%g, %g] x az [%g, %g] at %g deg: %w",
			minEl, maxEl, minAz, maxAz, res, ErrSearchTooLarge)
	}
	nEl := int(math.Round(spanEl-1)) + 1
	nAz := int(math.Round(spanAz-1)) + 1

	g := &SearchGrid{
		ResDeg:    res,
		MinElDeg:  minEl,
		MinAzDeg:  minAz,
		NEl:       nEl,
		NAz:       nAz,
		MaxPropEl: int(math.Round(b.radiusEl / res)),
		MaxPropAz: int(math.Round(b.radiusAz / res)),
	}
	if g.MaxPropEl > maxPropagation || g.MaxPropAz > maxPropagation {
		return nil, fmt.Errorf("search grid: search radius too large for resolution %g", res)
	}
	for q := range g.cells {
		cells := make([]searchCell, nEl*nAz)
		for i := range cells {
			cells[i] = emptyCell
		}
		g.cells[q] = cells
	}
	return g, nil
}

func snapDown(v, res float64) float64 { return math.Floor(v/res+1e-9) * res }
func snapUp(v, res float64) float64   { return math.Ceil(v/res-1e-9) * res }

func (g *SearchGrid) index(iel, iaz int) int { return iel*g.NAz + iaz }

func (g *SearchGrid) inBounds(iel, iaz int) bool {
	return iel >= 0 && iel < g.NEl && iaz >= 0 && iaz < g.NAz
}

// ElBin returns the bin whose center is nearest to el, or -1 outside the grid.
func (g *SearchGrid) ElBin(el float64) int {
	i := int(math.Floor((el-g.MinElDeg)/g.ResDeg + 0.5))
	if i < 0 || i >= g.NEl {
		return -1
	}
	return i
}

// AzBin returns the bin whose center is nearest to az (grid frame), or -1.
func (g *SearchGrid) AzBin(az float64) int {
	i := int(math.Floor((az-g.MinAzDeg)/g.ResDeg + 0.5))
	if i < 0 || i >= g.NAz {
		return -1
	}
	return i
}

// ElAt and AzAt return bin centers.
func (g *SearchGrid) ElAt(iel int) float64 { return g.MinElDeg + float64(iel)*g.ResDeg }
func (g *SearchGrid) AzAt(iaz int) float64 { return g.MinAzDeg + float64(iaz)*g.ResDeg }

// At returns the point of quadrant q at (iel, iaz). Cells outside the grid
// read as empty.
func (g *SearchGrid) At(q Quadrant, iel, iaz int) SearchPoint {
	if !g.inBounds(iel, iaz) {
		return emptyPoint
	}
	return g.point(&g.cells[q][g.index(iel, iaz)])
}

func (g *SearchGrid) point(c *searchCell) SearchPoint {
	if c.empty() {
		return emptyPoint
	}
	el, az := g.rayAngles(int(c.ray), c.wrapped)
	return SearchPoint{
		Level:    int(c.level),
		ElDist:   int(c.elDist),
		AzDist:   int(c.azDist),
		Ray:      int(c.ray),
		RayEl:    el,
		RayAz:    az,
		InterpEl: el,
		InterpAz: az,
	}
}

func (g *SearchGrid) rayAngles(ray int, wrapped bool) (el, az float64) {
	el, az = g.rayEl[ray], g.rayAz[ray]
	if wrapped {
		az += 360
	}
	return el, az
}

// Filled counts the non-empty cells of quadrant q.
func (g *SearchGrid) Filled(q Quadrant) int {
	n := 0
	for i := range g.cells[q] {
		if !g.cells[q][i].empty() {
			n++
		}
	}
	return n
}

// bindRays sizes the ray angle table for n rays.
func (g *SearchGrid) bindRays(n int) {
	g.rayEl = make([]float64, n)
	g.rayAz = make([]float64, n)
}

// seed places ray at (iel, iaz) in every quadrant. The ray's angles must be
// in the table already. When the cell is taken, the ray closer to the bin
// center wins, ties to the lower index.
func (g *SearchGrid) seed(iel, iaz, ray int, wrapped bool) bool {
	if !g.inBounds(iel, iaz) {
		return false
	}
	idx := g.index(iel, iaz)
	cur := &g.cells[0][idx]
	if !cur.empty() {
		el, az := g.rayAngles(ray, wrapped)
		curEl, curAz := g.rayAngles(int(cur.ray), cur.wrapped)
		dNew := g.binOffset(iel, iaz, el, az)
		dCur := g.binOffset(iel, iaz, curEl, curAz)
		if dNew > dCur || (dNew == dCur && ray > int(cur.ray)) {
			return true
		}
	}
	c := searchCell{ray: int32(ray), wrapped: wrapped}
	for q := range g.cells {
		g.cells[q][idx] = c
	}
	return true
}

func (g *SearchGrid) binOffset(iel, iaz int, el, az float64) float64 {
	return math.Hypot(el-g.ElAt(iel), az-g.AzAt(iaz))
}
