package ir

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// GRFVersion is the Action8 format version written for grf blocks.
const GRFVersion = 0x08

// GRFAction declares the GRF (Action8). Its presence makes the stream need a
// sprite-count header.
type GRFAction struct {
	base
	Version     byte
	GRFID       [4]byte
	Name        string
	Description string
}

// NewGRFAction creates an Action8 for the given GRF id.
func NewGRFAction(grfid [4]byte, name, description string) *GRFAction {
	return &GRFAction{
		base:        base{label: "Action8 " + strings.ToUpper(hex.EncodeToString(grfid[:]))},
		Version:     GRFVersion,
		GRFID:       grfid,
		Name:        name,
		Description: description,
	}
}

func (a *GRFAction) Kind() Kind { return KindEntryPoint }

func (a *GRFAction) Finalize() error {
	data := []byte{0x08, a.Version}
	data = append(data, a.GRFID[:]...)
	data, err := appendText(data, a.Name)
	if err != nil {
		return fmt.Errorf("%s: name: %w", a.label, err)
	}
	data, err = appendText(data, a.Description)
	if err != nil {
		return fmt.Errorf("%s: description: %w", a.label, err)
	}
	return a.seal(KindEntryPoint, data)
}

// Property is one Action0 property assignment.
type Property struct {
	ID    byte
	Size  int // 1, 2 or 4 bytes
	Value uint32
}

// PropertyAction sets properties on one feature item (Action0).
type PropertyAction struct {
	base
	Feature    byte
	ID         uint16
	Properties []Property
}

// NewPropertyAction creates an Action0 for a single item.
func NewPropertyAction(feature byte, id uint16, props []Property) *PropertyAction {
	return &PropertyAction{
		base:       base{label: fmt.Sprintf("Action0 feature 0x%02X id %d", feature, id)},
		Feature:    feature,
		ID:         id,
		Properties: props,
	}
}

func (a *PropertyAction) Kind() Kind { return KindGeneric }

func (a *PropertyAction) Finalize() error {
	if len(a.Properties) > math.MaxUint8 {
		return fmt.Errorf("%s: too many properties (%d)", a.label, len(a.Properties))
	}
	data := []byte{0x00, a.Feature, byte(len(a.Properties)), 0x01}
	data = appendExtendedByte(data, a.ID)
	for _, p := range a.Properties {
		var err error
		data = append(data, p.ID)
		data, err = appendSized(data, p.Size, p.Value)
		if err != nil {
			return fmt.Errorf("%s: property 0x%02X: %w", a.label, p.ID, err)
		}
	}
	return a.seal(KindGeneric, data)
}

// VarAction is a variational switch (Action2 type 0x89). It holds named
// temporaries that are assigned registers by the backward storage pass.
type VarAction struct {
	base
	Feature byte
	SetID   byte
	Temps   []string
	Calls   []byte
	Default uint16

	slots    []byte
	resolved bool
}

// NewVarAction creates a switch with the given temporaries and callees.
func NewVarAction(feature, setID byte, temps []string, calls []byte, def uint16) *VarAction {
	return &VarAction{
		base:    base{label: fmt.Sprintf("Action2 feature 0x%02X set 0x%02X", feature, setID)},
		Feature: feature,
		SetID:   setID,
		Temps:   temps,
		Calls:   calls,
		Default: def,
	}
}

func (a *VarAction) Kind() Kind { return KindStorageResolving }

// ResolveStorage assigns a register to every temporary, avoiding registers
// that are live in any caller, then registers the live set against callees.
func (a *VarAction) ResolveStorage(ts *TempStorage) error {
	if a.resolved {
		return &StorageError{
			Code:    ErrCodeAlreadyResolved,
			SetIDs:  []byte{a.SetID},
			Message: a.label + " resolved twice",
		}
	}

	reserved := ts.Enter(a.SetID)
	var own SlotSet
	slots := make([]byte, len(a.Temps))
	for i, name := range a.Temps {
		slot, ok := ts.Allocate(reserved.Union(own))
		if !ok {
			return &StorageError{
				Code:   ErrCodeStorageExhausted,
				SetIDs: []byte{a.SetID},
				Message: fmt.Sprintf("%s: no free register for temporary %q (%d in use, capacity %d)",
					a.label, name, reserved.Union(own).Len(), ts.Capacity()),
			}
		}
		own.Add(slot)
		slots[i] = slot
	}

	live := reserved.Union(own)
	for _, callee := range a.Calls {
		ts.Reserve(callee, live)
	}

	a.slots = slots
	a.resolved = true
	return nil
}

// Slots returns the register assigned to each temporary, keyed by name.
func (a *VarAction) Slots() map[string]byte {
	out := make(map[string]byte, len(a.slots))
	for i, slot := range a.slots {
		out[a.Temps[i]] = slot
	}
	return out
}

// Resolved reports whether ResolveStorage has run.
func (a *VarAction) Resolved() bool {
	return a.resolved
}

func (a *VarAction) Finalize() error {
	if !a.resolved {
		return fmt.Errorf("%s: temporary storage not resolved", a.label)
	}
	if len(a.Calls) > math.MaxUint8 {
		return fmt.Errorf("%s: too many calls (%d)", a.label, len(a.Calls))
	}
	data := []byte{0x02, a.Feature, a.SetID, 0x89, byte(len(a.slots))}
	data = append(data, a.slots...)
	data = append(data, byte(len(a.Calls)))
	data = append(data, a.Calls...)
	data = binary.LittleEndian.AppendUint16(data, a.Default)
	return a.seal(KindStorageResolving, data)
}

// TextAction defines a run of strings (Action4).
type TextAction struct {
	base
	Feature byte
	Lang    byte
	ID      byte
	Texts   []string
}

// NewTextAction creates an Action4 starting at the given string id.
func NewTextAction(feature, lang, id byte, texts []string) *TextAction {
	return &TextAction{
		base:    base{label: fmt.Sprintf("Action4 feature 0x%02X lang 0x%02X id 0x%02X", feature, lang, id)},
		Feature: feature,
		Lang:    lang,
		ID:      id,
		Texts:   texts,
	}
}

func (a *TextAction) Kind() Kind { return KindGeneric }

func (a *TextAction) Finalize() error {
	if len(a.Texts) > math.MaxUint8 {
		return fmt.Errorf("%s: too many strings (%d)", a.label, len(a.Texts))
	}
	data := []byte{0x04, a.Feature, a.Lang, byte(len(a.Texts)), a.ID}
	for i, s := range a.Texts {
		var err error
		data, err = appendText(data, s)
		if err != nil {
			return fmt.Errorf("%s: string %d: %w", a.label, i, err)
		}
	}
	return a.seal(KindGeneric, data)
}

// RawAction passes literal bytes through unchanged.
type RawAction struct {
	base
	Data []byte
}

// NewRawAction creates a pseudo-sprite from literal bytes.
func NewRawAction(data []byte) *RawAction {
	return &RawAction{
		base: base{label: fmt.Sprintf("raw %d byte(s)", len(data))},
		Data: data,
	}
}

func (a *RawAction) Kind() Kind { return KindGeneric }

func (a *RawAction) Finalize() error {
	if len(a.Data) == 0 {
		return fmt.Errorf("%s: empty pseudo-sprite", a.label)
	}
	return a.seal(KindGeneric, append([]byte(nil), a.Data...))
}

// HeaderAction is the sprite-count header prepended to streams that declare
// a GRF. Count is the number of actions that follow it.
type HeaderAction struct {
	base
	Count int
}

// NewHeaderAction creates a sprite-count header.
func NewHeaderAction(count int) *HeaderAction {
	return &HeaderAction{
		base:  base{label: "sprite count"},
		Count: count,
	}
}

func (a *HeaderAction) Kind() Kind { return KindHeader }

func (a *HeaderAction) Finalize() error {
	if a.Count < 0 || int64(a.Count) > math.MaxUint32 {
		return fmt.Errorf("%s: count %d out of range", a.label, a.Count)
	}
	return a.seal(KindHeader, binary.LittleEndian.AppendUint32(nil, uint32(a.Count)))
}

// appendText appends an NFC-normalized, NUL-terminated string.
func appendText(data []byte, s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, fmt.Errorf("invalid UTF-8")
	}
	if strings.IndexByte(s, 0) >= 0 {
		return nil, fmt.Errorf("embedded NUL byte")
	}
	data = append(data, norm.NFC.String(s)...)
	return append(data, 0x00), nil
}

// appendExtendedByte writes ids below 0xFF as one byte, others as FF + word.
func appendExtendedByte(data []byte, v uint16) []byte {
	if v < 0xFF {
		return append(data, byte(v))
	}
	data = append(data, 0xFF)
	return binary.LittleEndian.AppendUint16(data, v)
}

func appendSized(data []byte, size int, v uint32) ([]byte, error) {
	switch size {
	case 1:
		if v > math.MaxUint8 {
			return nil, fmt.Errorf("value %d does not fit in a byte", v)
		}
		return append(data, byte(v)), nil
	case 2:
		if v > math.MaxUint16 {
			return nil, fmt.Errorf("value %d does not fit in a word", v)
		}
		return binary.LittleEndian.AppendUint16(data, uint16(v)), nil
	case 4:
		return binary.LittleEndian.AppendUint32(data, v), nil
	default:
		return nil, fmt.Errorf("invalid property size %d", size)
	}
}
