package resample

import (
	"fmt"
	"math"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
)

// Sector is the azimuth frame of a pass. Full-circle volumes use
// [0, 360+overlap]; sector volumes use the buffered extent of the data.
type Sector struct {
	IsSector    bool    `json:"is_sector"`
	SpansNorth  bool    `json:"spans_north"`
	StartAzDeg  float64 `json:"start_az_deg"`
	EndAzDeg    float64 `json:"end_az_deg"`
	GapWidthDeg float64 `json:"gap_width_deg"`
}

// FullCircle is the frame used when the rays cover every direction.
func FullCircle() Sector {
	return Sector{StartAzDeg: 0, EndAzDeg: 360 + overlapDeg}
}

// DetectSector classifies the azimuth coverage of rays from a 360-bin
// integer-degree histogram. The widest empty run decides: below 30 degrees
// the volume is treated as a full circle, otherwise the frame is
// [gapEnd-buffer, gapStart+buffer+360] folded into the first turn.
func DetectSector(rays []domain.Ray, bufferDeg float64) (Sector, error) {
	var hist [360]int
	for i := range rays {
		bin := int(math.Floor(domain.NormalizeAz(rays[i].AzimuthDeg))) % 360
		hist[bin]++
	}

	firstEmpty := -1
	for i, n := range hist {
		if n == 0 {
			firstEmpty = i
			break
		}
	}
	if firstEmpty < 0 {
		return FullCircle(), nil
	}

	startBin := -1
	for k := 1; k <= 360; k++ {
		if hist[(firstEmpty+k)%360] > 0 {
			startBin = firstEmpty + k
			break
		}
	}
	if startBin < 0 {
		return Sector{}, fmt.Errorf("detect sector: %w", ErrNoRays)
	}

	// Walk one full turn from the first populated bin, closing runs on the
	// first populated bin after them. startBin+360 is populated by definition.
	gapStart, gapEnd, width := 0, 0, 0
	runStart := -1
	for k := startBin; k <= startBin+360; k++ {
		empty := hist[k%360] == 0
		switch {
		case empty && runStart < 0:
			runStart = k
		case !empty && runStart >= 0:
			if k-runStart > width {
				gapStart, gapEnd, width = runStart, k, k-runStart
			}
			runStart = -1
		}
	}

	if float64(width) < minSectorGapDeg || 2*bufferDeg >= float64(width) {
		s := FullCircle()
		s.GapWidthDeg = float64(width)
		return s, nil
	}

	start := float64(gapEnd) - bufferDeg
	end := float64(gapStart) + bufferDeg + 360
	for start >= 360 && end >= 360 {
		start -= 360
		end -= 360
	}
	if start < 0 {
		start += 360
		end += 360
	}
	return Sector{
		IsSector:    true,
		SpansNorth:  start < 360 && end > 360,
		StartAzDeg:  start,
		EndAzDeg:    end,
		GapWidthDeg: float64(width),
	}, nil
}

// ConditionAz maps az into the frame so comparisons within the frame are
// monotone. In full-circle mode azimuths in the low half of the overlap band
// move into the replicated band above 360. Applying it twice is a no-op.
func (s Sector) ConditionAz(az float64) float64 {
	az = domain.NormalizeAz(az)
	if s.IsSector {
		if az < s.StartAzDeg && az+360 <= s.EndAzDeg {
			az += 360
		}
		return az
	}
	if az < overlapDeg/2 {
		az += 360
	}
	return az
}

// seedAz is the azimuth a ray is seeded at. Full-circle seeds stay in
// [0, 360) and the overlap band is replicated separately.
func (s Sector) seedAz(az float64) float64 {
	if s.IsSector {
		return s.ConditionAz(az)
	}
	return domain.NormalizeAz(az)
}
