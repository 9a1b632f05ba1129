package resample

import (
	"math"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
)

// Policy selects how a field's samples are combined.
type Policy int

const (
	PolicyLinear Policy = iota
	PolicyNearest
	PolicyFolded
)

func (p Policy) String() string {
	switch p {
	case PolicyNearest:
		return "nearest"
	case PolicyFolded:
		return "folded"
	default:
		return "linear"
	}
}

// PolicyFor picks the accumulation policy of a field. Configured overrides
// and discrete fields use nearest; circular fields are folded.
func PolicyFor(f domain.FieldInfo, opts Options) Policy {
	switch {
	case opts.nearestFor(f.Name) || f.Discrete:
		return PolicyNearest
	case f.Folds:
		return PolicyFolded
	default:
		return PolicyLinear
	}
}

type sample struct {
	v float64
	w float64
}

// gatherSamples collects the weighted, non-missing samples of field fi for
// one resolved cell.
func gatherSamples(cw *cellWeights, rays []domain.Ray, fi int, missing float64, dst []sample) []sample {
	dst = dst[:0]
	for q := range cw.corners {
		c := &cw.corners[q]
		if !c.valid || c.synth {
			continue
		}
		ray := &rays[c.pt.Ray]
		for k := 0; k < 2; k++ {
			w := cw.w[2*q+k]
			if !(w > 0) {
				continue
			}
			v, ok := ray.Gate(fi, cw.inner[q]+k)
			if !ok || v == missing || math.IsNaN(v) {
				continue
			}
			dst = append(dst, sample{v: v, w: w})
		}
	}
	return dst
}

// accumulate combines samples under policy p. It returns false when fewer
// than minValid samples contribute.
func accumulate(p Policy, f domain.FieldInfo, samples []sample, minValid int) (float64, bool) {
	if len(samples) < minValid || len(samples) == 0 {
		return domain.MissingValue, false
	}
	switch p {
	case PolicyNearest:
		best := 0
		for i := 1; i < len(samples); i++ {
			if samples[i].w > samples[best].w {
				best = i
			}
		}
		return samples[best].v, true

	case PolicyFolded:
		var sumSin, sumCos float64
		for _, s := range samples {
			sin, cos := math.Sincos(foldAngle(s.v, f.FoldLower, f.FoldRange))
			sumSin += s.w * sin
			sumCos += s.w * cos
		}
		return unfoldAngle(math.Atan2(sumSin, sumCos), f.FoldLower, f.FoldRange), true

	default:
		var sum, wsum float64
		for _, s := range samples {
			sum += s.w * s.v
			wsum += s.w
		}
		if wsum == 0 {
			return domain.MissingValue, false
		}
		return sum / wsum, true
	}
}

// foldAngle maps v in [lower, lower+foldRange) onto [-pi, pi).
func foldAngle(v, lower, foldRange float64) float64 {
	return -math.Pi + ((v-lower)/foldRange)*2*math.Pi
}

// unfoldAngle inverts foldAngle, keeping the result in [lower, lower+foldRange).
func unfoldAngle(theta, lower, foldRange float64) float64 {
	v := lower + ((theta+math.Pi)/(2*math.Pi))*foldRange
	if v >= lower+foldRange {
		v -= foldRange
	}
	if v < lower {
		v += foldRange
	}
	return v
}
