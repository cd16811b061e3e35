package math

// Rect is an integer rectangle in atlas texel space. Min is inclusive and
// Max is exclusive.
type Rect struct {
	MinX, MinY int
	MaxX, MaxY int
}

// NewRect creates a rectangle from an origin and a size.
func NewRect(x, y, width, height int) Rect {
	return Rect{MinX: x, MinY: y, MaxX: x + width, MaxY: y + height}
}

// LengthX returns the width.
func (r Rect) LengthX() int {
	return r.MaxX - r.MinX
}

// LengthY returns the height.
func (r Rect) LengthY() int {
	return r.MaxY - r.MinY
}

// Intersects reports whether r and o share any area.
func (r Rect) Intersects(o Rect) bool {
	return r.MinX < o.MaxX && o.MinX < r.MaxX && r.MinY < o.MaxY && o.MinY < r.MaxY
}

// Contains reports whether the texel (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.MinX && x < r.MaxX && y >= r.MinY && y < r.MaxY
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.MaxX <= r.MinX || r.MaxY <= r.MinY
}
