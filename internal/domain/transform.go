package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// productNamespace scopes name-based product IDs.
var productNamespace = uuid.MustParse("6f1c3c8e-59a4-4d0e-9a57-3c1e8f6b2d41")

// ErrInvalidVolume is returned for volumes that cannot be resampled.
var ErrInvalidVolume = errors.New("invalid volume")

// ParseRawEvent deserializes a RawEvent's value into a Volume. The payload is
// decompressed first when the content-encoding header says so.
func ParseRawEvent(raw RawEvent) (Volume, error) {
	payload, err := DecodePayload(raw.Value, raw.Headers[HeaderContentEncoding])
	if err != nil {
		return Volume{}, fmt.Errorf("parse raw event: %w", err)
	}

	var vol Volume
	if err := json.Unmarshal(payload, &vol); err != nil {
		return Volume{}, fmt.Errorf("parse raw event: %w", err)
	}
	if vol.SensorID == "" {
		vol.SensorID = strings.TrimSpace(string(raw.Key))
	}
	if vol.Time.IsZero() {
		vol.Time = raw.Timestamp
	}
	vol.RawPayload = raw.Value

	NormalizeVolume(&vol)
	if err := ValidateVolume(vol); err != nil {
		return Volume{}, err
	}
	return vol, nil
}

// NormalizeVolume folds azimuths into [0, 360) and pins the volume time to UTC.
func NormalizeVolume(vol *Volume) {
	for i := range vol.Rays {
		vol.Rays[i].AzimuthDeg = NormalizeAz(vol.Rays[i].AzimuthDeg)
	}
	vol.Time = vol.Time.UTC()
}

// NormalizeAz maps any azimuth into [0, 360).
func NormalizeAz(az float64) float64 {
	az = math.Mod(az, 360)
	if az < 0 {
		az += 360
	}
	if az >= 360 {
		az = 0
	}
	return az
}

// ValidateVolume checks the structural invariants the resampler relies on:
// a non-empty field table, gate arrays aligned with it, and ray angles that
// are finite with elevations in [-90, 90].
func ValidateVolume(vol Volume) error {
	if len(vol.Fields) == 0 {
		return fmt.Errorf("%w: no fields", ErrInvalidVolume)
	}
	seen := make(map[string]struct{}, len(vol.Fields))
	for _, f := range vol.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: unnamed field", ErrInvalidVolume)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidVolume, f.Name)
		}
		seen[f.Name] = struct{}{}
		if f.Folds && f.FoldRange <= 0 {
			return fmt.Errorf("%w: field %q folds with non-positive range", ErrInvalidVolume, f.Name)
		}
	}
	for i := range vol.Rays {
		ray := &vol.Rays[i]
		if len(ray.Gates) > len(vol.Fields) {
			return fmt.Errorf("%w: ray %d has %d gate arrays for %d fields",
				ErrInvalidVolume, i, len(ray.Gates), len(vol.Fields))
		}
		if !finite(ray.AzimuthDeg) || !finite(ray.ElevationDeg) {
			return fmt.Errorf("%w: ray %d has non-finite angles", ErrInvalidVolume, i)
		}
		if math.Abs(ray.ElevationDeg) > 90 {
			return fmt.Errorf("%w: ray %d elevation %g outside [-90, 90]", ErrInvalidVolume, i, ray.ElevationDeg)
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// ProductID produces a deterministic ID from the sensor and volume time.
// Replaying the same volume yields the same ID.
func ProductID(sensorID string, volumeTime time.Time) string {
	name := fmt.Sprintf("%s|%s", sensorID, volumeTime.UTC().Format(time.RFC3339Nano))
	return uuid.NewSHA1(productNamespace, []byte(name)).String()
}

// NewGridProduct assembles a product for vol and stamps it with the package clock.
func NewGridProduct(vol Volume, grid GridSpec, fields []GridField, stats GridStats) GridProduct {
	return GridProduct{
		ID:          ProductID(vol.SensorID, vol.Time),
		SensorID:    vol.SensorID,
		VolumeTime:  vol.Time,
		Grid:        grid,
		Fields:      fields,
		Stats:       stats,
		ProcessedAt: Now(),
	}
}
