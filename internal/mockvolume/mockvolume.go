// Package mockvolume builds synthetic radar volumes for fixtures and tests.
// The fields are analytic so gridded output can be checked against truth:
// a Gaussian reflectivity cell, the radial component of a uniform wind folded
// at the Nyquist velocity, and an echo class derived from reflectivity.
package mockvolume

import (
	"math"
	"time"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/geo"
)

// Field names produced by Build.
const (
	FieldReflectivity = "DBZ"
	FieldVelocity     = "VEL"
	FieldEchoClass    = "ECHO_CLASS"
)

// Missing sentinels per field. They differ on purpose so consumers honour
// FieldInfo.Missing.
const (
	MissingReflectivity = -32768.0
	MissingVelocity     = -9999.0
	MissingEchoClass    = -1.0
)

// Spec describes a synthetic volume.
type Spec struct {
	SensorID     string
	Time         time.Time
	LatitudeDeg  float64
	LongitudeDeg float64
	AltitudeKm   float64
	BeamWidthDeg float64

	ElevationsDeg []float64
	AzStepDeg     float64
	AzOffsetDeg   float64

	// Azimuths in [GapStartDeg, GapStartDeg+GapWidthDeg) carry no rays.
	GapStartDeg float64
	GapWidthDeg float64

	NGates        int
	StartRangeKm  float64
	GateSpacingKm float64

	// Storm cell center (km east/north of the sensor), peak dBZ and radius.
	CellXKm      float64
	CellYKm      float64
	CellPeakDBZ  float64
	CellRadiusKm float64

	WindSpeed   float64 // m/s
	WindFromDeg float64
	NyquistMS   float64
}

// Default returns a small full-circle volume: nine sweeps, 1 degree azimuth
// steps, 250 m gates to 60 km.
func Default() Spec {
	return Spec{
		SensorID:      "KTLX",
		Time:          time.Date(2024, time.May, 6, 22, 30, 0, 0, time.UTC),
		LatitudeDeg:   35.333,
		LongitudeDeg:  -97.278,
		AltitudeKm:    0.384,
		BeamWidthDeg:  0.95,
		ElevationsDeg: []float64{0.5, 1.5, 2.4, 3.4, 4.3, 6.0, 9.9, 14.6, 19.5},
		AzStepDeg:     1,
		AzOffsetDeg:   0.5,
		NGates:        240,
		StartRangeKm:  0.125,
		GateSpacingKm: 0.25,
		CellXKm:       20,
		CellYKm:       15,
		CellPeakDBZ:   55,
		CellRadiusKm:  8,
		WindSpeed:     20,
		WindFromDeg:   225,
		NyquistMS:     27,
	}
}

// Build renders s into a volume.
func Build(s Spec) domain.Volume {
	beam := geo.NewBeamModel()
	vol := domain.Volume{
		SensorID: s.SensorID,
		Time:     s.Time,
		Radar: domain.RadarInfo{
			LatitudeDeg:  s.LatitudeDeg,
			LongitudeDeg: s.LongitudeDeg,
			AltitudeKm:   s.AltitudeKm,
			BeamWidthH:   s.BeamWidthDeg,
			BeamWidthV:   s.BeamWidthDeg,
		},
		Fields: []domain.FieldInfo{
			{Name: FieldReflectivity, Units: "dBZ", Missing: MissingReflectivity},
			{Name: FieldVelocity, Units: "m/s", Missing: MissingVelocity,
				Folds: s.NyquistMS > 0, FoldLower: -s.NyquistMS, FoldRange: 2 * s.NyquistMS},
			{Name: FieldEchoClass, Missing: MissingEchoClass, Discrete: true},
		},
	}

	nAz := 0
	if s.AzStepDeg > 0 {
		nAz = int(math.Round(360 / s.AzStepDeg))
	}
	for sweep, el := range s.ElevationsDeg {
		for i := 0; i < nAz; i++ {
			az := domain.NormalizeAz(s.AzOffsetDeg + float64(i)*s.AzStepDeg)
			if s.inGap(az) {
				continue
			}
			vol.Rays = append(vol.Rays, s.ray(beam, sweep, el, az))
		}
	}
	return vol
}

func (s Spec) inGap(az float64) bool {
	if s.GapWidthDeg <= 0 {
		return false
	}
	d := domain.NormalizeAz(az - s.GapStartDeg)
	return d < s.GapWidthDeg
}

func (s Spec) ray(beam geo.BeamModel, sweep int, el, az float64) domain.Ray {
	dbz := make([]float64, s.NGates)
	vel := make([]float64, s.NGates)
	class := make([]float64, s.NGates)
	sinAz, cosAz := math.Sincos(az * math.Pi / 180)

	for g := 0; g < s.NGates; g++ {
		slant := s.StartRangeKm + float64(g)*s.GateSpacingKm
		ground := beam.GroundRange(slant, el)
		height := s.AltitudeKm + beam.Height(slant, el)
		x, y := ground*sinAz, ground*cosAz

		dbz[g] = s.Reflectivity(x, y, height)
		vel[g] = s.RadialVelocity(az, el)
		class[g] = EchoClass(dbz[g])
		if dbz[g] < 0 {
			dbz[g] = MissingReflectivity
		}
	}
	return domain.Ray{
		AzimuthDeg:    az,
		ElevationDeg:  el,
		SweepIndex:    sweep,
		StartRangeKm:  s.StartRangeKm,
		GateSpacingKm: s.GateSpacingKm,
		Gates:         [][]float64{dbz, vel, class},
	}
}

// Reflectivity is the analytic dBZ at (x, y) km from the sensor and height
// km MSL. Values below 0 dBZ are reported missing by Build.
func (s Spec) Reflectivity(x, y, heightKm float64) float64 {
	r := math.Hypot(x-s.CellXKm, y-s.CellYKm)
	horiz := math.Exp(-(r * r) / (2 * s.CellRadiusKm * s.CellRadiusKm))
	vert := math.Max(0, 1-heightKm/12)
	return s.CellPeakDBZ*horiz*vert - 5
}

// RadialVelocity is the folded radial component of the uniform wind.
// Positive values move away from the radar.
func (s Spec) RadialVelocity(azDeg, elDeg float64) float64 {
	toward := (s.WindFromDeg + 180) * math.Pi / 180
	v := s.WindSpeed * math.Cos(azDeg*math.Pi/180-toward) * math.Cos(elDeg*math.Pi/180)
	if s.NyquistMS <= 0 {
		return v
	}
	return Fold(v, s.NyquistMS)
}

// Fold wraps v into [-nyquist, nyquist).
func Fold(v, nyquist float64) float64 {
	span := 2 * nyquist
	f := math.Mod(v+nyquist, span)
	if f < 0 {
		f += span
	}
	return f - nyquist
}

// EchoClass is 2 for convective-strength echo, 1 for weak echo, and
// MissingEchoClass where there is none.
func EchoClass(dbz float64) float64 {
	switch {
	case dbz >= 35:
		return 2
	case dbz >= 5:
		return 1
	default:
		return MissingEchoClass
	}
}
