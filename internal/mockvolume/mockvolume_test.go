package mockvolume

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_Default(t *testing.T) {
	s := Default()
	vol := Build(s)

	assert.Equal(t, "KTLX", vol.SensorID)
	require.Len(t, vol.Fields, 3)
	assert.Len(t, vol.Rays, 360*len(s.ElevationsDeg))

	ray := vol.Rays[0]
	assert.InDelta(t, 0.5, ray.AzimuthDeg, 1e-9)
	assert.InDelta(t, 0.5, ray.ElevationDeg, 1e-9)
	require.Len(t, ray.Gates, 3)
	for _, g := range ray.Gates {
		assert.Len(t, g, s.NGates)
	}
	assert.True(t, vol.Fields[1].Folds)
	assert.InDelta(t, -27, vol.Fields[1].FoldLower, 1e-9)
	assert.InDelta(t, 54, vol.Fields[1].FoldRange, 1e-9)
	assert.True(t, vol.Fields[2].Discrete)
}

func TestBuild_Gap(t *testing.T) {
	s := Default()
	s.ElevationsDeg = []float64{0.5}
	s.GapStartDeg = 100
	s.GapWidthDeg = 60

	vol := Build(s)
	assert.Len(t, vol.Rays, 300)
	for _, r := range vol.Rays {
		assert.False(t, r.AzimuthDeg >= 100 && r.AzimuthDeg < 160, "ray at %v inside gap", r.AzimuthDeg)
	}
}

func TestFold(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{26, 26},
		{27, -27},
		{30, -24},
		{-30, 24},
		{81, -27},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Fold(tt.in, 27), 1e-9, "fold %v", tt.in)
	}
}

func TestEchoClass(t *testing.T) {
	assert.Equal(t, 2.0, EchoClass(50))
	assert.Equal(t, 1.0, EchoClass(20))
	assert.Equal(t, MissingEchoClass, EchoClass(-3))
}

func TestReflectivity_PeaksAtCell(t *testing.T) {
	s := Default()
	peak := s.Reflectivity(s.CellXKm, s.CellYKm, 0)
	off := s.Reflectivity(s.CellXKm+20, s.CellYKm, 0)
	assert.InDelta(t, s.CellPeakDBZ-5, peak, 1e-9)
	assert.Less(t, off, peak)
}
