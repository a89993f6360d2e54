package atlas

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/gogpu/atlas/arena"
	"github.com/gogpu/atlas/gpucore"
)

// MigrationState is the phase of layer compaction.
type MigrationState uint8

// Migration states.
const (
	// MigrationIdle means no layer is being drained.
	MigrationIdle MigrationState = iota

	// MigrationDraining means one layer takes no new allocations while
	// its placements are moved to other layers.
	MigrationDraining
)

// String returns the string representation of the state.
func (m MigrationState) String() string {
	switch m {
	case MigrationIdle:
		return "Idle"
	case MigrationDraining:
		return "Draining"
	default:
		return fmt.Sprintf("MigrationState(%d)", uint8(m))
	}
}

type migration struct {
	state MigrationState
	layer int
}

// Migration returns the current compaction state and the layer being
// drained (meaningful only while draining).
func (s *Set[K, D]) Migration() (MigrationState, int) {
	return s.migration.state, s.migration.layer
}

// Maintain runs one step of layer compaction. Call it at a frame boundary.
//
// When idle it picks the least utilized layer that has seen at least
// DeallocationsBeforeFragmentationCheck removals and sits below
// FragmentationThreshold, and marks it draining. While draining it moves up
// to MigrationBudget placements (all of them when the budget is zero) into
// other layers with a GPU copy. Placement IDs are preserved; only Rect and
// Layer change. When the layer is empty it is reset and accepts
// allocations again.
//
// If no other layer has room for a placement the migration is abandoned and
// the layer is returned to service as it is. A failed GPU copy also abandons
// the migration and is returned wrapped in ErrMigration.
func (s *Set[K, D]) Maintain() (MigrationState, error) {
	if s.migration.state == MigrationIdle {
		li, ok := s.pickFragmented()
		if !ok {
			return MigrationIdle, nil
		}
		s.layers[li].draining = true
		s.migration = migration{state: MigrationDraining, layer: li}
		Logger().Debug("atlas: draining layer", "layer", li,
			"utilization", s.layers[li].packer.Utilization(), "placements", len(s.layers[li].live))
	}

	src := s.layers[s.migration.layer]
	moving := s.migrationOrder(src)
	if budget := s.cfg.MigrationBudget; budget > 0 && len(moving) > budget {
		moving = moving[:budget]
	}

	for _, id := range moving {
		moved, err := s.move(id)
		if err != nil {
			s.abortMigration("copy failed")
			return MigrationIdle, err
		}
		if !moved {
			s.abortMigration("no destination")
			return MigrationIdle, nil
		}
	}

	if len(src.live) == 0 {
		src.reset()
		s.stats.Migrations++
		Logger().Debug("atlas: layer compacted", "layer", s.migration.layer)
		s.migration = migration{}
	}
	return s.migration.state, nil
}

// pickFragmented returns the least utilized layer due for migration.
func (s *Set[K, D]) pickFragmented() (int, bool) {
	threshold := s.cfg.DeallocationsBeforeFragmentationCheck
	if threshold == 0 || len(s.layers) < 2 {
		return 0, false
	}
	best, bestUtil := -1, 0.0
	for i, l := range s.layers {
		if l.deallocs < threshold {
			continue
		}
		util := l.packer.Utilization()
		if util >= s.cfg.FragmentationThreshold {
			continue
		}
		if best < 0 || util < bestUtil {
			best, bestUtil = i, util
		}
	}
	return best, best >= 0
}

// migrationOrder lists a layer's placements, tallest first so the
// destination shelves pack well, then by ID for determinism.
func (s *Set[K, D]) migrationOrder(l *layer) []PlacementID {
	ids := make([]PlacementID, 0, len(l.live))
	for id := range l.live {
		ids = append(ids, id)
	}
	height := func(id PlacementID) int {
		rec, _ := s.store.Get(arena.Handle(id))
		return rec.placement.Rect.Height
	}
	slices.SortFunc(ids, func(a, b PlacementID) int {
		if c := cmp.Compare(height(b), height(a)); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Index, b.Index); c != 0 {
			return c
		}
		return cmp.Compare(a.Generation, b.Generation)
	})
	return ids
}

// move relocates one placement out of the draining layer.
// It reports false if no other layer has room.
func (s *Set[K, D]) move(id PlacementID) (bool, error) {
	rec, _ := s.store.Get(arena.Handle(id))
	from := rec.placement
	src := s.layers[from.Layer]

	dst, alloc, ok := s.allocate(from.Rect.Width, from.Rect.Height)
	if !ok {
		return false, nil
	}
	to := gpucore.Origin{X: alloc.Rect.X, Y: alloc.Rect.Y, Layer: dst}
	if err := s.device.CopyTexture(s.texture, s.texture, from.Region(), to); err != nil {
		s.layers[dst].packer.Deallocate(alloc.ID)
		return false, fmt.Errorf("%w: %v to layer %d: %w", ErrMigration, id, dst, err)
	}

	src.release(id)
	s.layers[dst].bind(id, alloc.ID)
	rec.placement.Rect = alloc.Rect
	rec.placement.Layer = dst
	s.stats.Moved++
	return true, nil
}

func (s *Set[K, D]) abortMigration(reason string) {
	l := s.layers[s.migration.layer]
	l.draining = false
	l.deallocs = 0
	Logger().Warn("atlas: migration abandoned", "layer", s.migration.layer,
		"reason", reason, "remaining", len(l.live))
	s.migration = migration{}
	s.stats.MigrationsAborted++
}
