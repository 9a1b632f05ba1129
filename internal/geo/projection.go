package geo

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ctessum/geom/proj"
)

// Projection kinds accepted by NewProjection. Anything else is parsed as a
// raw PROJ4 definition string. Flat is a unit-scale transverse Mercator
// centered on the origin; its scale error stays below 0.05% within 200 km.
const (
	ProjectionFlat = "flat"
	ProjectionLCC  = "lcc"
)

const longLatDef = "+proj=longlat +datum=WGS84 +no_defs"

// Projector maps between grid-plane coordinates (km) and geographic degrees.
type Projector interface {
	ToLatLon(xKm, yKm float64) (lat, lon float64, err error)
	FromLatLon(lat, lon float64) (xKm, yKm float64, err error)
}

// Projection is a Projector backed by a PROJ4 spatial reference.
type Projection struct {
	def     string
	inverse proj.Transformer // grid -> longlat
	forward proj.Transformer // longlat -> grid
}

// NewProjection builds the projection of the given kind centered on
// (originLat, originLon).
func NewProjection(kind string, originLat, originLon float64) (*Projection, error) {
	def, err := projectionDef(kind, originLat, originLon)
	if err != nil {
		return nil, err
	}
	gridSR, err := proj.Parse(def)
	if err != nil {
		return nil, fmt.Errorf("parse grid projection %q: %w", def, err)
	}
	llSR, err := proj.Parse(longLatDef)
	if err != nil {
		return nil, fmt.Errorf("parse longlat projection: %w", err)
	}
	inverse, err := gridSR.NewTransform(llSR)
	if err != nil {
		return nil, fmt.Errorf("create grid->longlat transform: %w", err)
	}
	forward, err := llSR.NewTransform(gridSR)
	if err != nil {
		return nil, fmt.Errorf("create longlat->grid transform: %w", err)
	}
	if inverse == nil || forward == nil {
		return nil, errors.New("grid projection is geographic; a planar projection is required")
	}
	return &Projection{def: def, inverse: inverse, forward: forward}, nil
}

// Definition returns the PROJ4 string in use.
func (p *Projection) Definition() string { return p.def }

// ToLatLon converts grid-plane km to degrees.
func (p *Projection) ToLatLon(xKm, yKm float64) (float64, float64, error) {
	lon, lat, err := p.inverse(xKm*1000, yKm*1000)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	return lat, lon, nil
}

// FromLatLon converts degrees to grid-plane km.
func (p *Projection) FromLatLon(lat, lon float64) (float64, float64, error) {
	x, y, err := p.forward(lon, lat)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	return x / 1000, y / 1000, nil
}

func projectionDef(kind string, lat0, lon0 float64) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", ProjectionFlat:
		return fmt.Sprintf("+proj=tmerc +lat_0=%.6f +lon_0=%.6f +k=1 +x_0=0 +y_0=0 +ellps=WGS84 +units=m +no_defs", lat0, lon0), nil
	case ProjectionLCC:
		return fmt.Sprintf("+proj=lcc +lat_1=%.6f +lat_2=%.6f +lat_0=%.6f +lon_0=%.6f +x_0=0 +y_0=0 +ellps=WGS84 +units=m +no_defs",
			lat0-5, lat0+5, lat0, lon0), nil
	default:
		if !strings.Contains(kind, "+proj=") {
			return "", fmt.Errorf("unknown projection %q", kind)
		}
		return kind, nil
	}
}
