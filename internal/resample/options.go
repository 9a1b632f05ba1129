package resample

import (
	"runtime"
	"slices"
)

// DefaultAngleResDeg is the search grid resolution in both elevation and azimuth.
const DefaultAngleResDeg = 0.1

// overlapDeg is the low-azimuth band duplicated above 360 in full-circle mode.
const overlapDeg = 20.0

// minSectorGapDeg is the narrowest azimuth gap that makes a volume a sector.
const minSectorGapDeg = 30.0

// Options tunes a resampling pass.
type Options struct {
	// AngleResDeg is the search grid resolution. Zero means DefaultAngleResDeg.
	AngleResDeg float64

	// BeamWidthExtensionFraction scales the beam width when padding the
	// elevation bounds and when checking two-corner cells against the data edge.
	BeamWidthExtensionFraction float64

	// MinValidForInterp is the least number of contributing samples a cell
	// needs before a field value is written.
	MinValidForInterp int

	UseMultipleThreads bool
	NThreads           int

	// NearestAll forces nearest-neighbour for every field. NearestFields
	// forces it for the named fields only.
	NearestAll    bool
	NearestFields []string

	// SearchRadiusElDeg and SearchRadiusAzDeg override the radii derived from
	// scan spacing and beam width when positive.
	SearchRadiusElDeg float64
	SearchRadiusAzDeg float64

	// DebugFields adds per-cell diagnostic fields to the output.
	DebugFields bool
}

// DefaultOptions returns the options used by the service when nothing is configured.
func DefaultOptions() Options {
	return Options{
		AngleResDeg:                DefaultAngleResDeg,
		BeamWidthExtensionFraction: 0.5,
		MinValidForInterp:          2,
		UseMultipleThreads:         true,
		NThreads:                   runtime.NumCPU(),
	}
}

func (o Options) withDefaults() Options {
	if o.AngleResDeg <= 0 {
		o.AngleResDeg = DefaultAngleResDeg
	}
	if o.BeamWidthExtensionFraction < 0 {
		o.BeamWidthExtensionFraction = 0
	}
	if o.MinValidForInterp < 1 {
		o.MinValidForInterp = 1
	}
	if o.NThreads < 1 {
		o.NThreads = 1
	}
	if !o.UseMultipleThreads {
		o.NThreads = 1
	}
	return o
}

// nearestFor reports whether field uses nearest-neighbour accumulation
// regardless of its own flags.
func (o Options) nearestFor(field string) bool {
	return o.NearestAll || slices.Contains(o.NearestFields, field)
}
