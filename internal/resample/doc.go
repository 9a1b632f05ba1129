// Package resample converts a polar radar volume into a regular Cartesian
// grid.
//
// A pass runs in four phases:
//
//	seed      every ray is binned into an elevation x azimuth search grid
//	          held as four quadrant buffers (lower-left, upper-left,
//	          lower-right, upper-right)
//	fill      each quadrant is flooded breadth-first from its seeds, so a
//	          cell answers "nearest ray approaching from this direction"
//	geometry  each output cell gets its elevation, azimuth and range from the
//	          sensor (cached per sensor until it moves)
//	interp    each output cell looks up its four bounding rays, weights them
//	          in angle and range and accumulates every field
//
// Full-circle volumes replicate the low-azimuth band above 360 degrees so that
// lookups near north need no wraparound logic. Sector volumes are detected
// from the azimuth histogram and get a grid that covers only the sector.
//
// Fill runs one goroutine per quadrant; interpolation runs one (z, y) row per
// unit on a bounded pool. The search grid and geometry are written only
// between phases, so workers never share mutable state.
package resample
