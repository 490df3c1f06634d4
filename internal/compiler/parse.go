package compiler

import (
	"encoding/hex"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/nmlc/internal/ir"
)

// DefaultFilename labels positions when no file name is known.
const DefaultFilename = "<stdin>"

// Parser compiles CUE source into blocks.
type Parser struct {
	// Filename is used in error positions.
	Filename string
}

// NewParser returns a parser that reports positions against filename.
func NewParser(filename string) *Parser {
	return &Parser{Filename: filename}
}

// Parse compiles source and decodes its blocks list.
func (p *Parser) Parse(source string) ([]ir.Block, error) {
	filename := p.Filename
	if filename == "" {
		filename = DefaultFilename
	}
	return Parse(filename, source)
}

// Parse compiles source and decodes its blocks list in order.
func Parse(filename, source string) ([]ir.Block, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(source, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	blocksVal := v.LookupPath(cue.ParsePath("blocks"))
	if !blocksVal.Exists() {
		return nil, &ParseError{
			Code:    ErrCodeMissingBlocks,
			Field:   "blocks",
			Message: "blocks list is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := blocksVal.List()
	if err != nil {
		return nil, &ParseError{
			Code:    ErrCodeMissingBlocks,
			Field:   "blocks",
			Message: "blocks must be a list",
			Pos:     blocksVal.Pos(),
		}
	}

	var blocks []ir.Block
	for i := 0; iter.Next(); i++ {
		b, err := parseBlock(i, iter.Value())
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func parseBlock(index int, v cue.Value) (ir.Block, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	f := fields{v: v, prefix: fmt.Sprintf("blocks[%d]", index)}

	kind, err := f.requiredString("kind")
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindGRF:
		return parseGRF(f)
	case KindItem:
		return parseItem(f)
	case KindSwitch:
		return parseSwitch(f)
	case KindText:
		return parseText(f)
	case KindRaw:
		return parseRaw(f)
	default:
		return nil, &ParseError{
			Code:    ErrCodeUnknownKind,
			Field:   f.prefix + ".kind",
			Message: fmt.Sprintf("unknown block kind %q, must be one of: grf, item, switch, text, raw", kind),
			Pos:     v.Pos(),
		}
	}
}

func parseGRF(f fields) (ir.Block, error) {
	raw, err := f.requiredString("grfid")
	if err != nil {
		return nil, err
	}
	grfid, err := decodeGRFID(raw)
	if err != nil {
		return nil, f.invalid("grfid", ErrCodeInvalidField, err.Error())
	}
	name, err := f.requiredString("name")
	if err != nil {
		return nil, err
	}
	desc, err := f.optionalString("description")
	if err != nil {
		return nil, err
	}
	return &GRFBlock{
		blockBase:   f.base(fmt.Sprintf("grf %s", strings.ToUpper(hex.EncodeToString(grfid[:])))),
		GRFID:       grfid,
		GRFName:     name,
		Description: desc,
	}, nil
}

func parseItem(f fields) (ir.Block, error) {
	feature, err := f.feature()
	if err != nil {
		return nil, err
	}
	id, err := f.requiredInt("id", 0, 0xFFFF)
	if err != nil {
		return nil, err
	}

	b := &ItemBlock{
		blockBase: f.base(fmt.Sprintf("item 0x%02X %d", feature, id)),
		Feature:   feature,
		ID:        uint16(id),
	}

	iter, ok, err := f.list("properties")
	if err != nil {
		return nil, err
	}
	for i := 0; ok && iter.Next(); i++ {
		pf := fields{v: iter.Value(), prefix: fmt.Sprintf("%s.properties[%d]", f.prefix, i)}
		pid, err := pf.requiredInt("id", 0, 0xFF)
		if err != nil {
			return nil, err
		}
		size, err := pf.optionalInt("size", 1, 1, 4)
		if err != nil {
			return nil, err
		}
		if size == 3 {
			return nil, pf.invalid("size", ErrCodeOutOfRange, "size must be 1, 2 or 4")
		}
		limit := int64(1)<<(8*size) - 1
		value, err := pf.requiredInt("value", 0, limit)
		if err != nil {
			return nil, err
		}
		b.Properties = append(b.Properties, ir.Property{ID: byte(pid), Size: int(size), Value: uint32(value)})
	}
	return b, nil
}

func parseSwitch(f fields) (ir.Block, error) {
	feature, err := f.feature()
	if err != nil {
		return nil, err
	}
	id, err := f.requiredInt("id", 0, 0xFF)
	if err != nil {
		return nil, err
	}
	temps, err := f.stringList("temps")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(temps))
	for _, t := range temps {
		if seen[t] {
			return nil, f.invalid("temps", ErrCodeDuplicate, fmt.Sprintf("duplicate temporary %q", t))
		}
		seen[t] = true
	}
	calls, err := f.intList("calls", 0, 0xFF)
	if err != nil {
		return nil, err
	}
	def, err := f.optionalInt("default", 0, 0, 0xFFFF)
	if err != nil {
		return nil, err
	}

	callBytes := make([]byte, len(calls))
	for i, c := range calls {
		callBytes[i] = byte(c)
	}
	return &SwitchBlock{
		blockBase: f.base(fmt.Sprintf("switch 0x%02X set 0x%02X", feature, id)),
		Feature:   feature,
		SetID:     byte(id),
		Temps:     temps,
		Calls:     callBytes,
		Default:   uint16(def),
	}, nil
}

func parseText(f fields) (ir.Block, error) {
	feature, err := f.feature()
	if err != nil {
		return nil, err
	}
	lang, err := f.optionalInt("lang", 0x7F, 0, 0xFF)
	if err != nil {
		return nil, err
	}
	id, err := f.requiredInt("id", 0, 0xFF)
	if err != nil {
		return nil, err
	}
	texts, err := f.stringList("texts")
	if err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, f.invalid("texts", ErrCodeInvalidField, "at least one string is required")
	}
	return &TextBlock{
		blockBase: f.base(fmt.Sprintf("text 0x%02X id 0x%02X", feature, id)),
		Feature:   feature,
		Lang:      byte(lang),
		ID:        byte(id),
		Texts:     texts,
	}, nil
}

func parseRaw(f fields) (ir.Block, error) {
	s, err := f.requiredString("data")
	if err != nil {
		return nil, err
	}
	data, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	if err != nil {
		return nil, f.invalid("data", ErrCodeInvalidField, fmt.Sprintf("data must be hex bytes: %v", err))
	}
	if len(data) == 0 {
		return nil, f.invalid("data", ErrCodeInvalidField, "data must not be empty")
	}
	return &RawBlock{
		blockBase: f.base(fmt.Sprintf("raw %d byte(s)", len(data))),
		Data:      data,
	}, nil
}

// decodeGRFID accepts either 8 hex digits or a 4-character string.
func decodeGRFID(s string) ([4]byte, error) {
	var id [4]byte
	if len(s) == 8 {
		if b, err := hex.DecodeString(s); err == nil {
			copy(id[:], b)
			return id, nil
		}
	}
	if len(s) == 4 {
		copy(id[:], s)
		return id, nil
	}
	return id, fmt.Errorf("grfid must be 8 hex digits or 4 bytes, got %q", s)
}
