package geo

import "math"

// StandardRefraction is the effective earth radius multiplier for a standard
// atmosphere.
const StandardRefraction = 4.0 / 3.0

// BeamModel propagates a radar beam over an effective-radius earth.
// Heights are relative to the antenna.
type BeamModel struct {
	EffectiveRadiusKm float64
}

// NewBeamModel returns the standard 4/3-earth model.
func NewBeamModel() BeamModel {
	return BeamModel{EffectiveRadiusKm: StandardRefraction * EarthRadiusKm}
}

// Height returns the beam height above the antenna in km for a slant range
// and elevation.
func (m BeamModel) Height(slantKm, elDeg float64) float64 {
	re := m.EffectiveRadiusKm
	el := elDeg * deg2rad
	return math.Sqrt(slantKm*slantKm+re*re+2*slantKm*re*math.Sin(el)) - re
}

// GroundRange returns the great-circle distance under the beam in km.
func (m BeamModel) GroundRange(slantKm, elDeg float64) float64 {
	re := m.EffectiveRadiusKm
	el := elDeg * deg2rad
	h := m.Height(slantKm, elDeg)
	return re * math.Asin(slantKm*math.Cos(el)/(re+h))
}

// ElevationSlant inverts the model: given the ground range to a point and its
// height above the antenna, it returns the elevation angle in degrees and the
// slant range in km.
func (m BeamModel) ElevationSlant(groundKm, dhKm float64) (elDeg, slantKm float64) {
	re := m.EffectiveRadiusKm
	theta := groundKm / re
	rt := re + dhKm

	dx := rt * math.Sin(theta)
	dz := rt*math.Cos(theta) - re
	slantKm = math.Hypot(dx, dz)
	elDeg = math.Atan2(dz, dx) * rad2deg
	return elDeg, slantKm
}
