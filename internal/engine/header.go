package engine

import (
	"log/slog"

	"github.com/roach88/nmlc/internal/ir"
)

// InjectHeader prepends a sprite-count header when the stream holds at least
// one entry-point action. The header's count is the stream length before the
// header is added.
func InjectHeader(stream ir.Stream) (ir.Stream, bool) {
	if !hasEntryPoint(stream) {
		return stream, false
	}

	n := len(stream)
	out := make(ir.Stream, 0, n+1)
	out = append(out, ir.NewHeaderAction(n))
	out = append(out, stream...)

	slog.Debug("sprite count header injected", "count", n)
	return out, true
}

func hasEntryPoint(stream ir.Stream) bool {
	for _, a := range stream {
		if a.Kind() == ir.KindEntryPoint {
			return true
		}
	}
	return false
}
