package batch

import "fmt"

// State is the phase of a batch buffer within one frame.
type State uint8

// Batch states, in the order a frame passes through them.
const (
	StateCollecting State = iota
	StateSorting
	StateDiffing
	StateReady
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateCollecting:
		return "Collecting"
	case StateSorting:
		return "Sorting"
	case StateDiffing:
		return "Diffing"
	case StateReady:
		return "Ready"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Stats reports the GPU traffic of the last Finalize.
type Stats struct {
	Items         int
	Writes        int
	BytesWritten  uint64
	Skipped       int
	Reallocations int
	Capacity      uint64
}
