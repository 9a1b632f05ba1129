// Package geo holds the earth-geometry collaborators of the resampler: the
// great-circle range/bearing routine, the 4/3-earth beam propagation model and
// map projections for the output grid.
package geo

import "math"

// EarthRadiusKm is the mean radius of Earth used for great-circle distances.
const EarthRadiusKm = 6371.0

const (
	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi
)

// RangeAzimuth returns the great-circle ground range in km and the initial
// bearing in degrees [0, 360) from point 1 to point 2 (degrees lat/lon).
func RangeAzimuth(lat1, lon1, lat2, lon2 float64) (rangeKm, azDeg float64) {
	lat1r := lat1 * deg2rad
	lat2r := lat2 * deg2rad
	dLat := (lat2 - lat1) * deg2rad
	dLon := (lon2 - lon1) * deg2rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	rangeKm = EarthRadiusKm * c

	y := math.Sin(dLon) * math.Cos(lat2r)
	x := math.Cos(lat1r)*math.Sin(lat2r) - math.Sin(lat1r)*math.Cos(lat2r)*math.Cos(dLon)
	azDeg = math.Atan2(y, x) * rad2deg
	if azDeg < 0 {
		azDeg += 360
	}
	if azDeg >= 360 {
		azDeg -= 360
	}
	return rangeKm, azDeg
}

// Destination returns the point reached by travelling rangeKm along the great
// circle leaving (lat, lon) at bearing azDeg.
func Destination(lat, lon, rangeKm, azDeg float64) (float64, float64) {
	latr := lat * deg2rad
	lonr := lon * deg2rad
	az := azDeg * deg2rad
	d := rangeKm / EarthRadiusKm

	lat2 := math.Asin(math.Sin(latr)*math.Cos(d) + math.Cos(latr)*math.Sin(d)*math.Cos(az))
	lon2 := lonr + math.Atan2(math.Sin(az)*math.Sin(d)*math.Cos(latr), math.Cos(d)-math.Sin(latr)*math.Sin(lat2))
	lon2Deg := math.Mod(lon2*rad2deg+540, 360) - 180
	return lat2 * rad2deg, lon2Deg
}
