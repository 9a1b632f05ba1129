package resample

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// quadrantFiller floods one quadrant buffer breadth-first from its seeds.
// this and next are swapped every level and belong to this filler alone.
type quadrantFiller struct {
	grid *SearchGrid
	q    Quadrant
	this []int
	next []int
}

func newQuadrantFiller(g *SearchGrid, q Quadrant) *quadrantFiller {
	return &quadrantFiller{grid: g, q: q}
}

// fill propagates every seeded cell into its two outward neighbours, one
// level per step, until a level fills nothing. A cell moves in azimuth only
// while its azDist is below MaxPropAz, likewise in elevation.
func (f *quadrantFiller) fill(ctx context.Context) (levels int, err error) {
	g := f.grid
	cells := g.cells[f.q]
	dEl, dAz := f.q.step()
	maxEl, maxAz := int16(g.MaxPropEl), int16(g.MaxPropAz)

	f.this = f.this[:0]
	for i := range cells {
		if !cells[i].empty() {
			f.this = append(f.this, i)
		}
	}

	for len(f.this) > 0 {
		if err := ctx.Err(); err != nil {
			return levels, err
		}
		f.next = f.next[:0]
		for _, idx := range f.this {
			c := cells[idx]
			iel, iaz := idx/g.NAz, idx%g.NAz

			if c.azDist < maxAz {
				if n, ok := f.claim(iel, iaz+dAz); ok {
					cells[n] = c
					cells[n].level = c.level + 1
					cells[n].azDist = c.azDist + 1
					f.next = append(f.next, n)
				}
			}
			if c.elDist < maxEl {
				if n, ok := f.claim(iel+dEl, iaz); ok {
					cells[n] = c
					cells[n].level = c.level + 1
					cells[n].elDist = c.elDist + 1
					f.next = append(f.next, n)
				}
			}
		}
		f.this, f.next = f.next, f.this
		levels++
	}
	return levels, nil
}

// claim returns the flat index of (iel, iaz) when it lies inside the grid and
// is still empty.
func (f *quadrantFiller) claim(iel, iaz int) (int, bool) {
	g := f.grid
	if !g.inBounds(iel, iaz) {
		return 0, false
	}
	n := g.index(iel, iaz)
	if !g.cells[f.q][n].empty() {
		return 0, false
	}
	return n, true
}

// fillQuadrants runs the four fillers, concurrently when parallel is set.
// It returns only once every quadrant is complete.
func fillQuadrants(ctx context.Context, g *SearchGrid, parallel bool) error {
	fillers := make([]*quadrantFiller, numQuadrants)
	for q := range fillers {
		fillers[q] = newQuadrantFiller(g, Quadrant(q))
	}

	if !parallel {
		for _, f := range fillers {
			if _, err := f.fill(ctx); err != nil {
				return err
			}
		}
		return nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, f := range fillers {
		eg.Go(func() error {
			_, err := f.fill(egCtx)
			return err
		})
	}
	return eg.Wait()
}
