package compiler

import (
	"fmt"
	"io"
	"strings"

	"cuelang.org/go/cue/format"

	"github.com/roach88/nmlc/internal/ir"
)

// PrintBlocks writes a debug dump of the block list and the actions each
// block produces.
func PrintBlocks(w io.Writer, blocks []ir.Block) error {
	for i, b := range blocks {
		actions := b.Actions()
		if _, err := fmt.Fprintf(w, "%d: %s (%d action(s))\n", i, b.Name(), len(actions)); err != nil {
			return err
		}
		for _, a := range actions {
			if _, err := fmt.Fprintf(w, "    %s [%s]\n", a.Label(), a.Kind()); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteSource writes the blocks back out as a normalized source file that
// Parse accepts again. Nothing is written when any block fails to render.
func WriteSource(w io.Writer, blocks []ir.Block) error {
	var src strings.Builder
	src.WriteString("blocks: [\n")
	for i, b := range blocks {
		text, err := b.Source()
		if err != nil {
			return fmt.Errorf("blocks[%d]: %w", i, err)
		}
		src.WriteString(text)
		src.WriteString(",\n")
	}
	src.WriteString("]\n")

	out, err := format.Source([]byte(src.String()))
	if err != nil {
		return fmt.Errorf("format normalized source: %w", err)
	}
	_, err = w.Write(out)
	return err
}
