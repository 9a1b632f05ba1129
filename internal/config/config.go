package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
)

// Interpolation modes accepted by INTERP_MODE.
const (
	InterpModeInterp  = "interp"
	InterpModeNearest = "nearest"
)

const defaultZLevels = "0.5,1,2,3,4,5,6,8,10,12,15"

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	KafkaMaxBytes    int
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Output grid. A zero origin centers the grid on each sensor.
	Grid domain.GridSpec

	// Resampler tuning.
	BeamWidthExtensionFraction float64
	MinValidForInterp          int
	InterpMode                 string
	NearestNeighborFields      []string
	UseMultipleThreads         bool
	NThreads                   int
	GeometryCacheSize          int
	DebugFields                bool

	OutputCompression string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	grid, err := parseGrid()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-radar-volumes"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "gridded-radar-fields"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "storm-data-radar"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
		Grid:               grid,

		InterpMode:            strings.ToLower(sharedcfg.EnvOrDefault("INTERP_MODE", InterpModeInterp)),
		NearestNeighborFields: splitList(os.Getenv("NEAREST_NEIGHBOR_FIELDS")),
		OutputCompression:     strings.ToLower(sharedcfg.EnvOrDefault("OUTPUT_COMPRESSION", domain.EncodingNone)),
	}

	if cfg.KafkaMaxBytes, err = positiveInt("KAFKA_MAX_BYTES", 52428800); err != nil {
		return nil, err
	}
	if cfg.BeamWidthExtensionFraction, err = parseFloat("BEAM_WIDTH_EXTENSION_FRACTION", 0.5); err != nil {
		return nil, err
	}
	if cfg.BeamWidthExtensionFraction < 0 {
		return nil, errors.New("invalid BEAM_WIDTH_EXTENSION_FRACTION: must not be negative")
	}
	if cfg.MinValidForInterp, err = positiveInt("MIN_VALID_FOR_INTERP", 2); err != nil {
		return nil, err
	}
	if cfg.UseMultipleThreads, err = parseBool("USE_MULTIPLE_THREADS", true); err != nil {
		return nil, err
	}
	if cfg.NThreads, err = positiveInt("N_THREADS", runtime.NumCPU()); err != nil {
		return nil, err
	}
	if cfg.GeometryCacheSize, err = positiveInt("GEOMETRY_CACHE_SIZE", 16); err != nil {
		return nil, err
	}
	if cfg.DebugFields, err = parseBool("DEBUG_FIELDS", false); err != nil {
		return nil, err
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	switch cfg.InterpMode {
	case InterpModeInterp, InterpModeNearest:
	default:
		return nil, fmt.Errorf("invalid INTERP_MODE %q: must be interp or nearest", cfg.InterpMode)
	}
	switch cfg.OutputCompression {
	case domain.EncodingNone, domain.EncodingZstd:
	default:
		return nil, fmt.Errorf("invalid OUTPUT_COMPRESSION %q: must be none or zstd", cfg.OutputCompression)
	}

	return cfg, nil
}

func parseGrid() (domain.GridSpec, error) {
	var (
		g   domain.GridSpec
		err error
	)
	if g.NX, err = positiveInt("GRID_NX", 201); err != nil {
		return g, err
	}
	if g.NY, err = positiveInt("GRID_NY", 201); err != nil {
		return g, err
	}
	if g.DXKm, err = parseFloat("GRID_DX_KM", 1); err != nil {
		return g, err
	}
	if g.DYKm, err = parseFloat("GRID_DY_KM", 1); err != nil {
		return g, err
	}
	if g.DXKm <= 0 || g.DYKm <= 0 {
		return g, errors.New("invalid GRID_DX_KM/GRID_DY_KM: must be positive")
	}
	if g.MinXKm, err = parseFloat("GRID_MIN_X_KM", -100); err != nil {
		return g, err
	}
	if g.MinYKm, err = parseFloat("GRID_MIN_Y_KM", -100); err != nil {
		return g, err
	}
	if g.OriginLat, err = parseFloat("GRID_ORIGIN_LAT", 0); err != nil {
		return g, err
	}
	if g.OriginLon, err = parseFloat("GRID_ORIGIN_LON", 0); err != nil {
		return g, err
	}
	g.Projection = sharedcfg.EnvOrDefault("GRID_PROJECTION", "flat")

	for _, s := range splitList(sharedcfg.EnvOrDefault("GRID_Z_LEVELS_KM", defaultZLevels)) {
		z, perr := strconv.ParseFloat(s, 64)
		if perr != nil {
			return g, fmt.Errorf("invalid GRID_Z_LEVELS_KM entry %q", s)
		}
		if n := len(g.ZLevelsKm); n > 0 && z <= g.ZLevelsKm[n-1] {
			return g, errors.New("invalid GRID_Z_LEVELS_KM: levels must increase")
		}
		g.ZLevelsKm = append(g.ZLevelsKm, z)
	}
	if len(g.ZLevelsKm) == 0 {
		return g, errors.New("GRID_Z_LEVELS_KM is required")
	}
	return g, nil
}

func positiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: must be a number", key)
	}
	return f, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: must be true or false", key)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
