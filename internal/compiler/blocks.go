package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/format"

	"github.com/roach88/nmlc/internal/ir"
)

// Block kinds accepted in the blocks list.
const (
	KindGRF    = "grf"
	KindItem   = "item"
	KindSwitch = "switch"
	KindText   = "text"
	KindRaw    = "raw"
)

// blockBase keeps the source value for normalized re-rendering.
type blockBase struct {
	name  string
	value cue.Value
}

func (b *blockBase) Name() string {
	return b.name
}

// Source renders the block as a formatted CUE struct.
func (b *blockBase) Source() (string, error) {
	node := b.value.Syntax(cue.Final(), cue.Concrete(true))
	if f, ok := node.(*ast.File); ok {
		node = &ast.StructLit{Elts: f.Decls}
	}
	out, err := format.Node(node)
	if err != nil {
		return "", fmt.Errorf("format %s: %w", b.name, err)
	}
	return string(out), nil
}

// GRFBlock declares the GRF itself and yields an Action8.
type GRFBlock struct {
	blockBase
	GRFID       [4]byte
	GRFName     string
	Description string
}

func (b *GRFBlock) Actions() []ir.Action {
	return []ir.Action{ir.NewGRFAction(b.GRFID, b.GRFName, b.Description)}
}

// ItemBlock assigns properties to one item and yields an Action0.
type ItemBlock struct {
	blockBase
	Feature    byte
	ID         uint16
	Properties []ir.Property
}

func (b *ItemBlock) Actions() []ir.Action {
	props := append([]ir.Property(nil), b.Properties...)
	return []ir.Action{ir.NewPropertyAction(b.Feature, b.ID, props)}
}

// SwitchBlock is a variational switch and yields a storage-resolving Action2.
type SwitchBlock struct {
	blockBase
	Feature byte
	SetID   byte
	Temps   []string
	Calls   []byte
	Default uint16
}

func (b *SwitchBlock) Actions() []ir.Action {
	temps := append([]string(nil), b.Temps...)
	calls := append([]byte(nil), b.Calls...)
	return []ir.Action{ir.NewVarAction(b.Feature, b.SetID, temps, calls, b.Default)}
}

// TextBlock defines strings and yields an Action4.
type TextBlock struct {
	blockBase
	Feature byte
	Lang    byte
	ID      byte
	Texts   []string
}

func (b *TextBlock) Actions() []ir.Action {
	texts := append([]string(nil), b.Texts...)
	return []ir.Action{ir.NewTextAction(b.Feature, b.Lang, b.ID, texts)}
}

// RawBlock passes literal bytes through.
type RawBlock struct {
	blockBase
	Data []byte
}

func (b *RawBlock) Actions() []ir.Action {
	return []ir.Action{ir.NewRawAction(b.Data)}
}
