package resample

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
)

// minAngularDist floors inverse-distance weights.
const minAngularDist = 1e-6

// corner is a bounding ray resolved for one quadrant of a cell.
type corner struct {
	pt    SearchPoint
	valid bool
	synth bool // placeholder angles only, carries no ray
}

// CornerWeights are the eight normalized weights of a cell: index 2q is the
// inner gate of quadrant q, 2q+1 the outer gate.
type CornerWeights [2 * numQuadrants]float64

// cellWeights is everything the accumulators need for one output cell.
type cellWeights struct {
	corners [numQuadrants]corner
	w       CornerWeights
	inner   [numQuadrants]int
	nValid  int
}

// interpolator resolves cells against a filled search grid.
type interpolator struct {
	grid   *SearchGrid
	sector Sector
	rays   []domain.Ray
	bwH    float64
	bwV    float64
	frac   float64
}

// resolve finds and weights the bounding rays of the point (el, az, slant).
// az must already be conditioned. It returns false for unresolved cells.
func (ip *interpolator) resolve(el, az, slantKm float64, cw *cellWeights) bool {
	*cw = cellWeights{}
	iel := ip.grid.ElBin(el)
	iaz := ip.grid.AzBin(az)
	if iel < 0 || iaz < 0 {
		return false
	}

	for q := Quadrant(0); q < numQuadrants; q++ {
		c := ip.correct(q, iel, iaz, el, az)
		if c.valid && !ip.rays[c.pt.Ray].HasGateGeometry() {
			c = corner{}
		}
		cw.corners[q] = c
		if c.valid {
			cw.nValid++
		}
	}

	var angular [numQuadrants]float64
	switch cw.nValid {
	case 0, 1:
		return false
	case 2:
		if !ip.withinEdge(cw, el, az) {
			return false
		}
		inverseDistance(cw, el, az, &angular)
	case 3:
		synthesize(cw)
		bilinear(cw, el, az, &angular)
		for q := range cw.corners {
			if cw.corners[q].synth {
				angular[q] = 0
			}
		}
		if floats.Sum(angular[:]) == 0 {
			inverseDistance(cw, el, az, &angular)
		}
	default:
		bilinear(cw, el, az, &angular)
	}

	for q := range cw.corners {
		c := &cw.corners[q]
		if !c.valid || c.synth {
			continue
		}
		ray := &ip.rays[c.pt.Ray]
		dgate := (slantKm - ray.StartRangeKm) / ray.GateSpacingKm
		inner := math.Floor(dgate)
		wOuter := dgate - inner
		cw.inner[q] = int(inner)
		cw.w[2*q] = angular[q] * (1 - wOuter)
		cw.w[2*q+1] = angular[q] * wOuter
	}

	sum := floats.Sum(cw.w[:])
	if math.IsNaN(sum) || math.IsInf(sum, 0) {
		*cw = cellWeights{}
		return false
	}
	if sum == 0 {
		sum = 1
	}
	floats.Scale(1/sum, cw.w[:])
	return true
}

// correct fetches the quadrant q point at (iel, iaz) and, up to twice, steps
// one bin away when its ray lies on the wrong side of the point. A step onto
// an empty cell leaves the corner empty.
func (ip *interpolator) correct(q Quadrant, iel, iaz int, el, az float64) corner {
	p := ip.grid.At(q, iel, iaz)
	if p.Empty() {
		return corner{}
	}
	for pass := 0; pass < 2; pass++ {
		dEl, dAz := 0, 0
		if q.upper() {
			if p.RayEl < el {
				dEl = 1
			}
		} else if p.RayEl > el {
			dEl = -1
		}
		if q.right() {
			if p.RayAz < az {
				dAz = 1
			}
		} else if p.RayAz > az {
			dAz = -1
		}
		if dEl == 0 && dAz == 0 {
			break
		}
		iel += dEl
		iaz += dAz
		p = ip.grid.At(q, iel, iaz)
		if p.Empty() {
			return corner{}
		}
	}
	return corner{pt: p, valid: true}
}

// withinEdge applies the data-edge rule for two-corner cells. Corners on the
// same side of the point only bound it in one dimension, so the point must
// stay within the extended beam width of the nearer ray in the other.
func (ip *interpolator) withinEdge(cw *cellWeights, el, az float64) bool {
	c := &cw.corners
	ll, ul, lr, ur := c[LowerLeft].valid, c[UpperLeft].valid, c[LowerRight].valid, c[UpperRight].valid

	switch {
	case ll && ul, lr && ur:
		a, b := LowerLeft, UpperLeft
		if lr {
			a, b = LowerRight, UpperRight
		}
		off := math.Min(
			math.Abs(angleDiff(az, ip.rays[c[a].pt.Ray].LimitsAz())),
			math.Abs(angleDiff(az, ip.rays[c[b].pt.Ray].LimitsAz())))
		return off <= ip.bwH*ip.frac
	case ll && lr, ul && ur:
		a, b := LowerLeft, LowerRight
		if ul {
			a, b = UpperLeft, UpperRight
		}
		off := math.Min(
			math.Abs(el-ip.rays[c[a].pt.Ray].LimitsEl()),
			math.Abs(el-ip.rays[c[b].pt.Ray].LimitsEl()))
		return off <= ip.bwV*ip.frac
	}
	return true
}

// angleDiff returns a-b wrapped into [-180, 180).
func angleDiff(a, b float64) float64 {
	d := math.Mod(a-b+180, 360)
	if d < 0 {
		d += 360
	}
	return d - 180
}

func inverseDistance(cw *cellWeights, el, az float64, out *[numQuadrants]float64) {
	for q := range cw.corners {
		c := &cw.corners[q]
		if !c.valid || c.synth {
			out[q] = 0
			continue
		}
		d := math.Hypot(el-c.pt.InterpEl, az-c.pt.InterpAz)
		out[q] = 1 / math.Max(d, minAngularDist)
	}
}

// synthesize fills the single missing corner with placeholder angles: its
// elevation from the corner on the same elevation side, its azimuth from the
// corner on the same azimuth side.
func synthesize(cw *cellWeights) {
	c := &cw.corners
	var missing, sameEl, sameAz Quadrant
	switch {
	case !c[LowerLeft].valid:
		missing, sameEl, sameAz = LowerLeft, LowerRight, UpperLeft
	case !c[UpperLeft].valid:
		missing, sameEl, sameAz = UpperLeft, UpperRight, LowerLeft
	case !c[LowerRight].valid:
		missing, sameEl, sameAz = LowerRight, LowerLeft, UpperRight
	default:
		missing, sameEl, sameAz = UpperRight, UpperLeft, LowerRight
	}
	c[missing] = corner{
		pt: SearchPoint{
			Ray:      noRay,
			InterpEl: c[sameEl].pt.InterpEl,
			InterpAz: c[sameAz].pt.InterpAz,
		},
		valid: true,
		synth: true,
	}
}

// bilinear interpolates in azimuth along the lower and upper pairs, then in
// elevation between the two results.
func bilinear(cw *cellWeights, el, az float64, out *[numQuadrants]float64) {
	c := &cw.corners
	ll, ul, lr, ur := &c[LowerLeft].pt, &c[UpperLeft].pt, &c[LowerRight].pt, &c[UpperRight].pt

	rLow := ratio(az, ll.InterpAz, lr.InterpAz)
	elLow := ll.InterpEl + rLow*(lr.InterpEl-ll.InterpEl)
	rUp := ratio(az, ul.InterpAz, ur.InterpAz)
	elUp := ul.InterpEl + rUp*(ur.InterpEl-ul.InterpEl)
	rEl := ratio(el, elLow, elUp)

	out[LowerLeft] = (1 - rLow) * (1 - rEl)
	out[LowerRight] = rLow * (1 - rEl)
	out[UpperLeft] = (1 - rUp) * rEl
	out[UpperRight] = rUp * rEl
}

// ratio is the position of x between a and b clamped to [0, 1], or 0.5 when
// a and b coincide.
func ratio(x, a, b float64) float64 {
	if math.Abs(b-a) < 1e-9 {
		return 0.5
	}
	r := (x - a) / (b - a)
	return math.Max(0, math.Min(1, r))
}
