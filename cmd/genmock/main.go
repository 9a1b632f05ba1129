// Command genmock writes a synthetic radar volume fixture. The volume is
// rendered by internal/mockvolume so fixtures, unit tests, and the offline
// resample command all see the same analytic storm.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock/ktlx_volume.json \
//	  -az-step 1 -gap-start 90 -gap-width 120
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/mockvolume"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	spec := mockvolume.Default()

	out := flag.String("out", "", "output path for the volume JSON fixture")
	compress := flag.Bool("zstd", false, "zstd-compress the fixture")
	elevations := flag.String("elevations", "", "comma-separated sweep elevations deg (default VCP-like set)")
	flag.StringVar(&spec.SensorID, "sensor", spec.SensorID, "sensor ID")
	flag.Float64Var(&spec.LatitudeDeg, "lat", spec.LatitudeDeg, "sensor latitude")
	flag.Float64Var(&spec.LongitudeDeg, "lon", spec.LongitudeDeg, "sensor longitude")
	flag.Float64Var(&spec.AzStepDeg, "az-step", spec.AzStepDeg, "azimuth spacing deg")
	flag.Float64Var(&spec.GapStartDeg, "gap-start", 0, "first azimuth of the sector gap")
	flag.Float64Var(&spec.GapWidthDeg, "gap-width", 0, "sector gap width deg (0 = full circle)")
	flag.IntVar(&spec.NGates, "gates", spec.NGates, "gates per ray")
	flag.Float64Var(&spec.GateSpacingKm, "gate-spacing", spec.GateSpacingKm, "gate spacing km")
	flag.Float64Var(&spec.CellXKm, "cell-x", spec.CellXKm, "storm cell km east of the sensor")
	flag.Float64Var(&spec.CellYKm, "cell-y", spec.CellYKm, "storm cell km north of the sensor")
	flag.Float64Var(&spec.CellPeakDBZ, "cell-peak", spec.CellPeakDBZ, "storm cell peak dBZ")
	flag.Float64Var(&spec.NyquistMS, "nyquist", spec.NyquistMS, "Nyquist velocity m/s (0 = unfolded)")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *elevations != "" {
		els, err := parseList(*elevations)
		if err != nil {
			return err
		}
		spec.ElevationsDeg = els
	}

	vol := mockvolume.Build(spec)
	if err := domain.ValidateVolume(vol); err != nil {
		return fmt.Errorf("generated volume: %w", err)
	}

	data, err := json.Marshal(vol)
	if err != nil {
		return fmt.Errorf("marshal volume: %w", err)
	}
	if *compress {
		if data, err = domain.EncodePayload(data, domain.EncodingZstd); err != nil {
			return fmt.Errorf("compress volume: %w", err)
		}
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}

	log.Printf("sensor %s: %d sweeps, %d rays, %d gates per ray", vol.SensorID, len(spec.ElevationsDeg), len(vol.Rays), spec.NGates)
	log.Printf("wrote volume fixture: %s (%d bytes)", *out, len(data))
	return nil
}

func parseList(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid elevation %q", part)
		}
		out = append(out, v)
	}
	return out, nil
}
