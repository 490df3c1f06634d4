package engine

import (
	"log/slog"

	"github.com/roach88/nmlc/internal/ir"
)

// Linearize appends every block's actions, in block order, to one stream.
// Nothing is reordered, deduplicated or filtered.
func Linearize(blocks []ir.Block) ir.Stream {
	stream := ir.Stream{}
	for _, b := range blocks {
		stream = append(stream, b.Actions()...)
	}
	slog.Debug("stream linearized", "blocks", len(blocks), "actions", len(stream))
	return stream
}
