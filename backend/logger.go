package backend

import (
	"log/slog"

	"github.com/gogpu/atlas/internal/softgpu"
)

// SetLogger sets the logger used by the software backend to report dropped
// writes. Pass nil to disable logging.
func SetLogger(l *slog.Logger) {
	softgpu.SetLogger(l)
}
