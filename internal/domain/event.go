package domain

import (
	"context"
	"math"
	"time"
)

// MissingValue marks unresolved cells in every output field.
const MissingValue = -9999.0

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// RadarInfo describes the sensor that produced a volume.
type RadarInfo struct {
	LatitudeDeg  float64 `json:"latitude_deg"`
	LongitudeDeg float64 `json:"longitude_deg"`
	AltitudeKm   float64 `json:"altitude_km"`
	BeamWidthH   float64 `json:"beam_width_h_deg"`
	BeamWidthV   float64 `json:"beam_width_v_deg"`
}

// FieldInfo describes one field carried by the rays of a volume.
type FieldInfo struct {
	Name      string  `json:"name"`
	Units     string  `json:"units,omitempty"`
	Missing   float64 `json:"missing"`
	Folds     bool    `json:"folds,omitempty"`
	FoldLower float64 `json:"fold_lower,omitempty"`
	FoldRange float64 `json:"fold_range,omitempty"`
	Discrete  bool    `json:"discrete,omitempty"`
}

// Ray is one radial of gate samples at a fixed azimuth and elevation.
type Ray struct {
	AzimuthDeg    float64     `json:"azimuth_deg"`
	ElevationDeg  float64     `json:"elevation_deg"`
	SweepIndex    int         `json:"sweep"`
	StartRangeKm  float64     `json:"start_range_km"`
	GateSpacingKm float64     `json:"gate_spacing_km"`
	Gates         [][]float64 `json:"gates"`

	ForLimitsAzDeg *float64 `json:"for_limits_az_deg,omitempty"`
	ForLimitsElDeg *float64 `json:"for_limits_el_deg,omitempty"`
}

// LimitsAz returns the azimuth used for data-edge checks.
func (r *Ray) LimitsAz() float64 {
	if r.ForLimitsAzDeg != nil {
		return *r.ForLimitsAzDeg
	}
	return r.AzimuthDeg
}

// LimitsEl returns the elevation used for data-edge checks.
func (r *Ray) LimitsEl() float64 {
	if r.ForLimitsElDeg != nil {
		return *r.ForLimitsElDeg
	}
	return r.ElevationDeg
}

// HasGateGeometry reports whether the ray carries gates at a usable range
// spacing. Rays without it can neither seed nor contribute samples.
func (r *Ray) HasGateGeometry() bool {
	return len(r.Gates) > 0 &&
		r.GateSpacingKm > 0 && !math.IsInf(r.GateSpacingKm, 0) &&
		!math.IsNaN(r.StartRangeKm) && !math.IsInf(r.StartRangeKm, 0)
}

// Gate returns the sample of field f at gate g, and false when the ray
// carries no such gate.
func (r *Ray) Gate(f, g int) (float64, bool) {
	if f < 0 || f >= len(r.Gates) {
		return 0, false
	}
	data := r.Gates[f]
	if g < 0 || g >= len(data) {
		return 0, false
	}
	return data[g], true
}

// Volume is a full radar scan: rays from every sweep plus their metadata.
type Volume struct {
	SensorID string      `json:"sensor_id"`
	Time     time.Time   `json:"time"`
	Radar    RadarInfo   `json:"radar"`
	Fields   []FieldInfo `json:"fields"`
	Rays     []Ray       `json:"rays"`

	RawPayload []byte `json:"-"`
}

// FieldIndex returns the position of the named field, or -1.
func (v *Volume) FieldIndex(name string) int {
	for i := range v.Fields {
		if v.Fields[i].Name == name {
			return i
		}
	}
	return -1
}

// GridSpec defines the regular output grid.
type GridSpec struct {
	NX         int       `json:"nx"`
	NY         int       `json:"ny"`
	MinXKm     float64   `json:"min_x_km"`
	MinYKm     float64   `json:"min_y_km"`
	DXKm       float64   `json:"dx_km"`
	DYKm       float64   `json:"dy_km"`
	ZLevelsKm  []float64 `json:"z_levels_km"`
	OriginLat  float64   `json:"origin_lat"`
	OriginLon  float64   `json:"origin_lon"`
	Projection string    `json:"projection"`
}

// HasOrigin reports whether the grid names its own projection origin. A zero
// origin means the grid is centered on the sensor.
func (g GridSpec) HasOrigin() bool { return g.OriginLat != 0 || g.OriginLon != 0 }

// NZ returns the number of vertical levels.
func (g GridSpec) NZ() int { return len(g.ZLevelsKm) }

// NPoints returns nx*ny*nz.
func (g GridSpec) NPoints() int { return g.NX * g.NY * len(g.ZLevelsKm) }

// Index returns the flat array position of cell (ix, iy, iz).
func (g GridSpec) Index(ix, iy, iz int) int {
	return iz*g.NX*g.NY + iy*g.NX + ix
}

// GridField is one resampled field.
type GridField struct {
	Name    string    `json:"name"`
	Units   string    `json:"units,omitempty"`
	Missing float64   `json:"missing"`
	Data    []float64 `json:"data"`
}

// GridStats summarizes one resampling pass.
type GridStats struct {
	Cells            int     `json:"cells"`
	Resolved         int     `json:"resolved"`
	Unresolved       int     `json:"unresolved"`
	RaysUsed         int     `json:"rays_used"`
	IsSector         bool    `json:"is_sector"`
	SectorStartAzDeg float64 `json:"sector_start_az_deg,omitempty"`
	SectorEndAzDeg   float64 `json:"sector_end_az_deg,omitempty"`
}

// GridProduct is the Cartesian product derived from one volume.
type GridProduct struct {
	ID          string      `json:"id"`
	SensorID    string      `json:"sensor_id"`
	VolumeTime  time.Time   `json:"volume_time"`
	Grid        GridSpec    `json:"grid"`
	Fields      []GridField `json:"fields"`
	Stats       GridStats   `json:"stats"`
	ProcessedAt time.Time   `json:"processed_at"`
}

// Field returns the named field, or nil.
func (p *GridProduct) Field(name string) *GridField {
	for i := range p.Fields {
		if p.Fields[i].Name == name {
			return &p.Fields[i]
		}
	}
	return nil
}
