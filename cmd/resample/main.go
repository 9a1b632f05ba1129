// Command resample grids a single radar volume file offline. It reads a JSON
// volume (optionally zstd-compressed), resamples it onto the requested grid,
// writes the grid product JSON, and reports per-phase timings and cell
// statistics.
//
// Usage:
//
//	go run ./cmd/resample \
//	  -in data/mock/ktlx_volume.json \
//	  -out ktlx_grid.json \
//	  -nx 201 -ny 201 -dx 1 -min-x -100 -min-y -100 \
//	  -z 0.5,1,2,3,4,5,6,8,10 \
//	  -search-dump ktlx_search.json.zst
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/resample"
)

type flags struct {
	in, out, searchDump string
	grid                domain.GridSpec
	levels              string
	opts                resample.Options
	nearestFields       string
	logLevel            string
}

func main() {
	f := parseFlags()
	if f.in == "" {
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if code := run(ctx, f); code != 0 {
		os.Exit(code)
	}
}

func parseFlags() flags {
	var f flags
	f.opts = resample.DefaultOptions()

	flag.StringVar(&f.in, "in", "", "volume JSON file (.zst for zstd)")
	flag.StringVar(&f.out, "out", "", "grid product JSON output (stdout summary only when empty)")
	flag.StringVar(&f.searchDump, "search-dump", "", "write the filled search matrix as zstd JSON")
	flag.IntVar(&f.grid.NX, "nx", 201, "grid columns")
	flag.IntVar(&f.grid.NY, "ny", 201, "grid rows")
	flag.Float64Var(&f.grid.DXKm, "dx", 1, "column spacing km")
	flag.Float64Var(&f.grid.DYKm, "dy", 1, "row spacing km")
	flag.Float64Var(&f.grid.MinXKm, "min-x", -100, "first column km east of origin")
	flag.Float64Var(&f.grid.MinYKm, "min-y", -100, "first row km north of origin")
	flag.StringVar(&f.levels, "z", "0.5,1,2,3,4,5,6,8,10,12,15", "comma-separated z levels km MSL")
	flag.StringVar(&f.grid.Projection, "projection", "flat", "flat, lcc, or a PROJ4 string")
	flag.Float64Var(&f.grid.OriginLat, "origin-lat", 0, "grid origin latitude (0 = sensor)")
	flag.Float64Var(&f.grid.OriginLon, "origin-lon", 0, "grid origin longitude (0 = sensor)")
	flag.Float64Var(&f.opts.BeamWidthExtensionFraction, "beam-fraction", f.opts.BeamWidthExtensionFraction, "beam width extension fraction")
	flag.IntVar(&f.opts.MinValidForInterp, "min-valid", f.opts.MinValidForInterp, "minimum contributing samples per cell")
	flag.BoolVar(&f.opts.NearestAll, "nearest", false, "nearest neighbor for every field")
	flag.StringVar(&f.nearestFields, "nearest-fields", "", "comma-separated fields to grid by nearest neighbor")
	flag.IntVar(&f.opts.NThreads, "threads", runtime.NumCPU(), "worker goroutines (1 = single-threaded)")
	flag.BoolVar(&f.opts.DebugFields, "debug-fields", false, "add diagnostic output fields")
	flag.StringVar(&f.logLevel, "log-level", "info", "debug, info, warn, or error")
	flag.Parse()

	f.opts.UseMultipleThreads = f.opts.NThreads > 1
	for _, s := range strings.Split(f.nearestFields, ",") {
		if s = strings.TrimSpace(s); s != "" {
			f.opts.NearestFields = append(f.opts.NearestFields, s)
		}
	}
	return f
}

func run(ctx context.Context, f flags) int {
	logger := sharedobs.NewLogger(f.logLevel, "text")

	levels, err := parseLevels(f.levels)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	f.grid.ZLevelsKm = levels

	vol, err := loadVolume(f.in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load volume: %v\n", err)
		return 1
	}

	r := resample.New(f.opts, nil, logger)
	start := time.Now()
	res, err := r.Resample(ctx, &vol, f.grid)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: resample: %v\n", err)
		return 1
	}
	total := time.Since(start)

	product := domain.NewGridProduct(vol, f.grid, res.Fields, res.Stats)
	report(vol, product, res, total)

	if f.out != "" {
		if err := writeJSON(f.out, product); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: write product: %v\n", err)
			return 1
		}
		fmt.Printf("\nWrote %s\n", f.out)
	}
	if f.searchDump != "" {
		if err := writeSearchDump(f.searchDump, res); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: write search matrix: %v\n", err)
			return 1
		}
		fmt.Printf("Wrote %s\n", f.searchDump)
	}
	return 0
}

func report(vol domain.Volume, p domain.GridProduct, res *resample.Result, total time.Duration) {
	fmt.Println("=== Radar Volume Resample ===")
	fmt.Println()
	fmt.Printf("Sensor %s at %s: %d rays, %d fields\n",
		vol.SensorID, vol.Time.Format(time.RFC3339), len(vol.Rays), len(vol.Fields))
	if res.Sector.IsSector {
		fmt.Printf("Sector scan: az %.1f..%.1f (gap %.1f deg)\n",
			res.Sector.StartAzDeg, res.Sector.EndAzDeg, res.Sector.GapWidthDeg)
	} else {
		fmt.Println("Full-circle scan")
	}
	fmt.Printf("Search matrix: %d x %d at %.2f deg\n", res.Search.NEl, res.Search.NAz, res.Search.ResDeg)
	fmt.Println()

	for _, phase := range resample.Phases {
		fmt.Printf("  %-10s %10s\n", phase, res.Timings[phase].Round(time.Microsecond))
	}
	fmt.Printf("  %-10s %10s\n", "total", total.Round(time.Microsecond))
	fmt.Println()

	s := p.Stats
	pct := 0.0
	if s.Cells > 0 {
		pct = 100 * float64(s.Resolved) / float64(s.Cells)
	}
	fmt.Printf("Cells: %d total, %d resolved (%.1f%%), %d unresolved; %d rays used\n",
		s.Cells, s.Resolved, pct, s.Unresolved, s.RaysUsed)
	for _, field := range p.Fields {
		n := 0
		for _, v := range field.Data {
			if v != field.Missing {
				n++
			}
		}
		fmt.Printf("  %-24s %d valid\n", field.Name, n)
	}
}

func parseLevels(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		z, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid z level %q", part)
		}
		out = append(out, z)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no z levels")
	}
	return out, nil
}

func loadVolume(path string) (domain.Volume, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Volume{}, err
	}
	raw := domain.RawEvent{Value: data}
	if strings.HasSuffix(path, ".zst") {
		raw.Headers = map[string]string{domain.HeaderContentEncoding: domain.EncodingZstd}
	}
	return domain.ParseRawEvent(raw)
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func writeSearchDump(path string, res *resample.Result) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := resample.WriteSearchMatrix(out, res.Search.Dump(res.Sector)); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
