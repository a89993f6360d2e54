package atlas

import (
	"github.com/gogpu/atlas/packer"
)

// layer is one slice of the texture array together with its packer.
//
// The packer's live allocations and the layer's live placement set always
// agree. A draining layer takes no new allocations while Maintain moves its
// placements elsewhere.
type layer struct {
	packer   *packer.Packer
	live     map[PlacementID]packer.AllocID
	draining bool
	deallocs int
}

func newLayer(extent, padding int) *layer {
	return &layer{
		packer: packer.New(extent, extent, padding),
		live:   make(map[PlacementID]packer.AllocID),
	}
}

// allocate reserves a rectangle unless the layer is draining.
func (l *layer) allocate(w, h int) (packer.Allocation, bool) {
	if l.draining {
		return packer.Allocation{}, false
	}
	return l.packer.Allocate(w, h)
}

// bind records id as the owner of alloc.
func (l *layer) bind(id PlacementID, alloc packer.AllocID) {
	l.live[id] = alloc
}

// release frees id's rectangle and counts the deallocation.
func (l *layer) release(id PlacementID) {
	alloc, ok := l.live[id]
	if !ok {
		return
	}
	l.packer.Deallocate(alloc)
	delete(l.live, id)
	l.deallocs++
}

// reset empties the layer after every placement has left it.
func (l *layer) reset() {
	l.packer.Clear()
	clear(l.live)
	l.deallocs = 0
	l.draining = false
}

// LayerInfo is a read-only snapshot of one layer.
type LayerInfo struct {
	Index         int
	Placements    int
	Draining      bool
	Deallocations int
	Utilization   float64
	Shelves       int
}

func (l *layer) info(index int) LayerInfo {
	return LayerInfo{
		Index:         index,
		Placements:    len(l.live),
		Draining:      l.draining,
		Deallocations: l.deallocs,
		Utilization:   l.packer.Utilization(),
		Shelves:       l.packer.ShelfCount(),
	}
}
