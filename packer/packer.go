package packer

import (
	"fmt"
	"slices"
	"sort"
)

// AllocID identifies one live allocation inside a Packer.
// The zero AllocID is never returned.
type AllocID uint32

// Rect is an axis-aligned rectangle in texels.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Area returns Width*Height.
func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}
	return r.Width * r.Height
}

// Intersects reports whether r and o share at least one texel.
func (r Rect) Intersects(o Rect) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return r.X < o.X+o.Width && o.X < r.X+r.Width &&
		r.Y < o.Y+o.Height && o.Y < r.Y+r.Height
}

// Contains returns true if the point (x, y) is inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// String returns a string representation of the rectangle.
func (r Rect) String() string {
	return fmt.Sprintf("Rect(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// Allocation is a placed rectangle and the handle used to release it.
type Allocation struct {
	ID   AllocID
	Rect Rect
}

// span is a free horizontal interval [x, x+w) on a shelf.
type span struct {
	x, w int
}

// shelf is a horizontal strip of the layer.
type shelf struct {
	y      int    // Top Y coordinate
	height int    // Height of the strip
	free   []span // Free spans, sorted by x, never adjacent
	live   int    // Number of live allocations on the strip
}

// Packer packs rectangles into a width x height area using shelves.
type Packer struct {
	width   int
	height  int
	padding int // Vertical gap between shelves

	shelves []*shelf // Sorted by y
	allocs  map[AllocID]Rect
	nextID  AllocID

	usedArea int
}

// New creates a packer for a width x height layer. shelfPadding is the
// number of empty texel rows kept between consecutive shelves so that
// filtering never samples a neighbor from the shelf above or below.
func New(width, height, shelfPadding int) *Packer {
	if shelfPadding < 0 {
		shelfPadding = 0
	}
	return &Packer{
		width:   width,
		height:  height,
		padding: shelfPadding,
		shelves: make([]*shelf, 0, 16),
		allocs:  make(map[AllocID]Rect),
	}
}

// Size returns the packer extent.
func (p *Packer) Size() (width, height int) {
	return p.width, p.height
}

// Allocate finds space for a w x h rectangle.
// Returns false when no free rectangle of that size exists, including when
// the request is wider or taller than the layer.
//
// Placement order:
//  1. The existing shelf that wastes the least height (first free span that fits)
//  2. A new shelf below the last one
//  3. Growing the last shelf downward when there is no room for a new one
func (p *Packer) Allocate(w, h int) (Allocation, bool) {
	if w <= 0 || h <= 0 || w > p.width || h > p.height {
		return Allocation{}, false
	}

	best, bestSpan := -1, -1
	bestWaste := 0
	for i, s := range p.shelves {
		if s.height < h {
			continue
		}
		j := s.firstFit(w)
		if j < 0 {
			continue
		}
		waste := s.height - h
		if best < 0 || waste < bestWaste {
			best, bestSpan, bestWaste = i, j, waste
			if waste == 0 {
				break
			}
		}
	}
	if best >= 0 {
		return p.place(p.shelves[best], bestSpan, w, h), true
	}

	if s := p.newShelf(h); s != nil {
		return p.place(s, s.firstFit(w), w, h), true
	}

	if n := len(p.shelves); n > 0 {
		last := p.shelves[n-1]
		if h > last.height && last.y+h <= p.height {
			if j := last.firstFit(w); j >= 0 {
				last.height = h
				return p.place(last, j, w, h), true
			}
		}
	}

	return Allocation{}, false
}

// newShelf appends a shelf of height h below the last one.
// Returns nil if there is not enough vertical space left.
func (p *Packer) newShelf(h int) *shelf {
	y := 0
	if n := len(p.shelves); n > 0 {
		last := p.shelves[n-1]
		y = last.y + last.height + p.padding
	}
	if y+h > p.height {
		return nil
	}
	s := &shelf{
		y:      y,
		height: h,
		free:   []span{{x: 0, w: p.width}},
	}
	p.shelves = append(p.shelves, s)
	return s
}

// place carves a w x h rectangle out of span j of shelf s.
func (p *Packer) place(s *shelf, j, w, h int) Allocation {
	sp := s.free[j]
	if sp.w == w {
		s.free = slices.Delete(s.free, j, j+1)
	} else {
		s.free[j] = span{x: sp.x + w, w: sp.w - w}
	}
	s.live++

	id := p.allocID()
	r := Rect{X: sp.x, Y: s.y, Width: w, Height: h}
	p.allocs[id] = r
	p.usedArea += w * h
	return Allocation{ID: id, Rect: r}
}

// allocID returns the next unused allocation ID, skipping zero.
func (p *Packer) allocID() AllocID {
	for {
		p.nextID++
		if p.nextID == 0 {
			continue
		}
		if _, taken := p.allocs[p.nextID]; !taken {
			return p.nextID
		}
	}
}

// Deallocate releases an allocation and merges its span with free neighbors.
// Releasing an unknown ID is a no-op that reports false.
func (p *Packer) Deallocate(id AllocID) (Rect, bool) {
	r, ok := p.allocs[id]
	if !ok {
		return Rect{}, false
	}
	delete(p.allocs, id)
	p.usedArea -= r.Width * r.Height

	i := p.shelfAt(r.Y)
	s := p.shelves[i]
	s.release(span{x: r.X, w: r.Width})
	s.live--

	if s.live == 0 {
		p.collapse(i)
	}
	return r, true
}

// shelfAt returns the index of the shelf starting at y.
func (p *Packer) shelfAt(y int) int {
	i := sort.Search(len(p.shelves), func(i int) bool { return p.shelves[i].y >= y })
	if i == len(p.shelves) || p.shelves[i].y != y {
		panic(fmt.Sprintf("packer: no shelf at y=%d", y))
	}
	return i
}

// collapse merges the empty shelf i with empty neighbors and drops empty
// shelves at the bottom.
func (p *Packer) collapse(i int) {
	if i+1 < len(p.shelves) && p.shelves[i+1].live == 0 {
		p.mergeShelves(i)
	}
	if i > 0 && p.shelves[i-1].live == 0 {
		p.mergeShelves(i - 1)
	}
	for n := len(p.shelves); n > 0 && p.shelves[n-1].live == 0; n = len(p.shelves) {
		p.shelves = p.shelves[:n-1]
	}
}

// mergeShelves folds shelf i+1 (and the gap above it) into shelf i.
func (p *Packer) mergeShelves(i int) {
	a, b := p.shelves[i], p.shelves[i+1]
	a.height = b.y + b.height - a.y
	a.free = append(a.free[:0], span{x: 0, w: p.width})
	p.shelves = slices.Delete(p.shelves, i+1, i+2)
}

// firstFit returns the index of the first free span at least w wide, or -1.
func (s *shelf) firstFit(w int) int {
	for j, sp := range s.free {
		if sp.w >= w {
			return j
		}
	}
	return -1
}

// release inserts a free span, merging it with adjacent spans.
func (s *shelf) release(sp span) {
	j := sort.Search(len(s.free), func(j int) bool { return s.free[j].x > sp.x })

	mergePrev := j > 0 && s.free[j-1].x+s.free[j-1].w == sp.x
	mergeNext := j < len(s.free) && sp.x+sp.w == s.free[j].x

	switch {
	case mergePrev && mergeNext:
		s.free[j-1].w += sp.w + s.free[j].w
		s.free = slices.Delete(s.free, j, j+1)
	case mergePrev:
		s.free[j-1].w += sp.w
	case mergeNext:
		s.free[j] = span{x: sp.x, w: sp.w + s.free[j].w}
	default:
		s.free = slices.Insert(s.free, j, sp)
	}
}

// Clear resets the packer to a single free rectangle.
func (p *Packer) Clear() {
	p.shelves = p.shelves[:0]
	clear(p.allocs)
	p.usedArea = 0
}

// Clone returns an independent copy of the packer state.
// Allocation IDs issued by the clone may collide with IDs issued later by
// the original.
func (p *Packer) Clone() *Packer {
	c := &Packer{
		width:    p.width,
		height:   p.height,
		padding:  p.padding,
		shelves:  make([]*shelf, len(p.shelves)),
		allocs:   make(map[AllocID]Rect, len(p.allocs)),
		nextID:   p.nextID,
		usedArea: p.usedArea,
	}
	for i, s := range p.shelves {
		c.shelves[i] = &shelf{
			y:      s.y,
			height: s.height,
			free:   slices.Clone(s.free),
			live:   s.live,
		}
	}
	for id, r := range p.allocs {
		c.allocs[id] = r
	}
	return c
}

// Get returns the rectangle of a live allocation.
func (p *Packer) Get(id AllocID) (Rect, bool) {
	r, ok := p.allocs[id]
	return r, ok
}

// IDs returns the live allocation IDs in ascending order.
func (p *Packer) IDs() []AllocID {
	ids := make([]AllocID, 0, len(p.allocs))
	for id := range p.allocs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of live allocations.
func (p *Packer) Len() int {
	return len(p.allocs)
}

// IsEmpty reports whether nothing is allocated.
func (p *Packer) IsEmpty() bool {
	return len(p.allocs) == 0
}

// UsedArea returns the total area of live allocations.
func (p *Packer) UsedArea() int {
	return p.usedArea
}

// TotalArea returns the total area of the layer.
func (p *Packer) TotalArea() int {
	return p.width * p.height
}

// Utilization returns the fraction of area used (0.0 to 1.0).
func (p *Packer) Utilization() float64 {
	total := p.TotalArea()
	if total <= 0 {
		return 0
	}
	return float64(p.usedArea) / float64(total)
}

// ShelfCount returns the number of shelves currently in use.
func (p *Packer) ShelfCount() int {
	return len(p.shelves)
}

// RemainingHeight returns the vertical space left for new shelves.
func (p *Packer) RemainingHeight() int {
	if len(p.shelves) == 0 {
		return p.height
	}
	last := p.shelves[len(p.shelves)-1]
	used := last.y + last.height + p.padding
	if used >= p.height {
		return 0
	}
	return p.height - used
}
