package scenefile

import (
	"errors"
	"sort"

	"github.com/chewxy/math32"

	lmath "github.com/Faultbox/lightbaker/pkg/math"
)

// ErrAtlasFull is returned when the islands do not fit the atlas.
var ErrAtlasFull = errors.New("islands do not fit the atlas")

// Packing limits.
const (
	minIslandTexels = 2
	autoFillRatio   = 0.5
	autoShrink      = 0.85
	autoAttempts    = 64
)

// shelfPacker places rectangles left to right on horizontal shelves, opening
// a new shelf below the last one when a row is full.
type shelfPacker struct {
	size    int
	shelves []shelf
}

type shelf struct {
	y      int
	height int
	x      int
}

func (p *shelfPacker) allocate(w, h int) (x, y int, ok bool) {
	if w > p.size || h > p.size {
		return -1, -1, false
	}
	for i := range p.shelves {
		s := &p.shelves[i]
		if s.x+w > p.size {
			continue
		}
		if h > s.height {
			// Only the last shelf can grow.
			if i != len(p.shelves)-1 || s.y+h > p.size {
				continue
			}
			s.height = h
		}
		x, y = s.x, s.y
		s.x += w
		return x, y, true
	}

	newY := 0
	if n := len(p.shelves); n > 0 {
		newY = p.shelves[n-1].y + p.shelves[n-1].height
	}
	if newY+h > p.size {
		return -1, -1, false
	}
	p.shelves = append(p.shelves, shelf{y: newY, height: h, x: w})
	return 0, newY, true
}

// island is the texel footprint of one face, margin excluded.
type island struct {
	w, h int
}

// islandSizes returns the footprint of every face at density texels per
// world unit.
func islandSizes(faces []face, density float32) []island {
	out := make([]island, len(faces))
	for i := range faces {
		out[i] = island{
			w: max(int(math32.Ceil(faces[i].u.Len()*density)), minIslandTexels),
			h: max(int(math32.Ceil(faces[i].v.Len()*density)), minIslandTexels),
		}
	}
	return out
}

// packIslands places the islands, each surrounded by margin texels, tallest
// first. The returned rectangles include the margin and follow input order.
func packIslands(islands []island, size, margin int) ([]lmath.Rect, bool) {
	order := make([]int, len(islands))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return islands[order[a]].h > islands[order[b]].h
	})

	p := &shelfPacker{size: size}
	rects := make([]lmath.Rect, len(islands))
	for _, i := range order {
		w, h := islands[i].w+2*margin, islands[i].h+2*margin
		x, y, ok := p.allocate(w, h)
		if !ok {
			return nil, false
		}
		rects[i] = lmath.NewRect(x, y, w, h)
	}
	return rects, true
}

// layout packs the faces into the atlas. A positive density is used as is;
// otherwise it starts from an estimate filling part of the atlas and shrinks
// until everything fits. It returns the rectangles and the density used.
func layout(faces []face, size, margin int, density float32) ([]lmath.Rect, float32, error) {
	if density > 0 {
		rects, ok := packIslands(islandSizes(faces, density), size, margin)
		if !ok {
			return nil, 0, ErrAtlasFull
		}
		return rects, density, nil
	}

	var area float32
	for i := range faces {
		area += faces[i].area()
	}
	if area <= 0 {
		return nil, 0, nil
	}
	density = math32.Sqrt(autoFillRatio * float32(size*size) / area)
	for i := 0; i < autoAttempts; i++ {
		if rects, ok := packIslands(islandSizes(faces, density), size, margin); ok {
			return rects, density, nil
		}
		density *= autoShrink
	}
	return nil, 0, ErrAtlasFull
}
