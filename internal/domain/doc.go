// Package domain models weather radar volumes and the Cartesian grid products
// derived from them.
//
// # Data Source
//
// Volumes originate from the upstream ingest service, which decodes native
// radar files (CfRadial, NEXRAD Level II) and publishes one volume per Kafka
// message on the source topic as JSON, optionally zstd-compressed. A volume is
// a set of rays grouped by sweep index, plus the radar's position and beam
// widths and a table describing every field carried by the rays.
//
// # Radar Conventions
//
// Angles:
//
//	Azimuth in degrees clockwise from true north, [0, 360).
//	Elevation in degrees above the horizontal.
//	Values outside [0, 360) are normalized during parsing.
//
// Range geometry:
//
//	Each ray carries its own start range (center of gate 0) and gate spacing,
//	both in kilometres. The gate i center lies at start + i*spacing.
//
// Heights:
//
//	Sensor altitude and grid z levels are kilometres above mean sea level.
//
// Field table:
//
//	Volume.Fields lists every field once; Ray.Gates is indexed in the same
//	order ([field][gate]). A ray may omit a field by leaving its slice empty,
//	which is equivalent to all-missing.
//
//	Each field declares its own missing-value sentinel. Circular quantities
//	(Doppler velocity, differential phase) set Folds with FoldLower and
//	FoldRange, e.g. velocity with Nyquist 27 m/s: lower -27, range 54.
//	Categorical fields (echo class, hydrometeor id) set Discrete and are
//	never averaged.
//
// For-limits angles:
//
//	Rays may carry separate "for limits" azimuth/elevation used only when the
//	resampler checks whether a grid point still lies within a beam width of
//	the data edge. They default to the ray's own angles.
//
// # Products
//
// A GridProduct holds one flat array per field, length nx*ny*nz, addressed by
// iz*(nx*ny) + iy*nx + ix, with MissingValue for unresolved cells. Product
// IDs are name-based UUIDs of sensor|volume time, so replaying a volume yields
// the same key downstream. See [ProductID].
package domain
