package resample

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
)

// Debug field names.
const (
	DebugNContrib = "debug_n_contrib"
	DebugEl       = "debug_el"
	DebugAz       = "debug_az"
	DebugRange    = "debug_range"
)

// debugOutput collects per-cell diagnostics. Each cell is written by exactly
// one row worker.
type debugOutput struct {
	nContrib []float64
	el       []float64
	az       []float64
	rng      []float64
	cornerEl [numQuadrants][]float64
	cornerAz [numQuadrants][]float64
}

func newDebugOutput(n int) *debugOutput {
	d := &debugOutput{
		nContrib: missingArray(n),
		el:       missingArray(n),
		az:       missingArray(n),
		rng:      missingArray(n),
	}
	for q := range d.cornerEl {
		d.cornerEl[q] = missingArray(n)
		d.cornerAz[q] = missingArray(n)
	}
	return d
}

func (d *debugOutput) record(idx int, loc *GridLocation, az float64, cw *cellWeights) {
	n := 0
	for _, w := range cw.w {
		if w > 0 {
			n++
		}
	}
	d.nContrib[idx] = float64(n)
	d.el[idx] = loc.ElDeg
	d.az[idx] = az
	d.rng[idx] = loc.SlantKm
	for q := range cw.corners {
		c := &cw.corners[q]
		if !c.valid {
			continue
		}
		d.cornerEl[q][idx] = c.pt.InterpEl
		d.cornerAz[q][idx] = c.pt.InterpAz
	}
}

func (d *debugOutput) fields() []domain.GridField {
	out := []domain.GridField{
		{Name: DebugNContrib, Missing: domain.MissingValue, Data: d.nContrib},
		{Name: DebugEl, Units: "deg", Missing: domain.MissingValue, Data: d.el},
		{Name: DebugAz, Units: "deg", Missing: domain.MissingValue, Data: d.az},
		{Name: DebugRange, Units: "km", Missing: domain.MissingValue, Data: d.rng},
	}
	for q := Quadrant(0); q < numQuadrants; q++ {
		out = append(out,
			domain.GridField{Name: fmt.Sprintf("debug_%s_el", q), Units: "deg", Missing: domain.MissingValue, Data: d.cornerEl[q]},
			domain.GridField{Name: fmt.Sprintf("debug_%s_az", q), Units: "deg", Missing: domain.MissingValue, Data: d.cornerAz[q]},
		)
	}
	return out
}

// SearchMatrixDump is a snapshot of a filled search grid: for every quadrant
// the ray index (-1 empty) and propagation level of each cell, row-major in
// elevation.
type SearchMatrixDump struct {
	ResDeg    float64                 `json:"res_deg"`
	MinElDeg  float64                 `json:"min_el_deg"`
	MinAzDeg  float64                 `json:"min_az_deg"`
	NEl       int                     `json:"n_el"`
	NAz       int                     `json:"n_az"`
	MaxPropEl int                     `json:"max_prop_el"`
	MaxPropAz int                     `json:"max_prop_az"`
	Sector    Sector                  `json:"sector"`
	Quadrants map[string]QuadrantDump `json:"quadrants"`
}

// QuadrantDump holds one quadrant buffer.
type QuadrantDump struct {
	Rays   []int `json:"rays"`
	Levels []int `json:"levels"`
}

// Dump snapshots g.
func (g *SearchGrid) Dump(sector Sector) SearchMatrixDump {
	d := SearchMatrixDump{
		ResDeg:    g.ResDeg,
		MinElDeg:  g.MinElDeg,
		MinAzDeg:  g.MinAzDeg,
		NEl:       g.NEl,
		NAz:       g.NAz,
		MaxPropEl: g.MaxPropEl,
		MaxPropAz: g.MaxPropAz,
		Sector:    sector,
		Quadrants: make(map[string]QuadrantDump, numQuadrants),
	}
	for q := Quadrant(0); q < numQuadrants; q++ {
		cells := g.cells[q]
		qd := QuadrantDump{Rays: make([]int, len(cells)), Levels: make([]int, len(cells))}
		for i := range cells {
			qd.Rays[i] = int(cells[i].ray)
			qd.Levels[i] = int(cells[i].level)
		}
		d.Quadrants[q.String()] = qd
	}
	return d
}

// WriteSearchMatrix streams d to w as zstd-compressed JSON.
func WriteSearchMatrix(w io.Writer, d SearchMatrixDump) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("search matrix: %w", err)
	}
	if err := json.NewEncoder(zw).Encode(d); err != nil {
		_ = zw.Close()
		return fmt.Errorf("search matrix: encode: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("search matrix: flush: %w", err)
	}
	return nil
}

// ReadSearchMatrix decodes a dump written by WriteSearchMatrix.
func ReadSearchMatrix(r io.Reader) (SearchMatrixDump, error) {
	zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return SearchMatrixDump{}, fmt.Errorf("search matrix: %w", err)
	}
	defer zr.Close()

	var d SearchMatrixDump
	if err := json.NewDecoder(zr).Decode(&d); err != nil {
		return SearchMatrixDump{}, fmt.Errorf("search matrix: decode: %w", err)
	}
	return d, nil
}
