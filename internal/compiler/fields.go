package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
)

// fields reads typed fields out of one block struct.
type fields struct {
	v      cue.Value
	prefix string
}

func (f fields) base(name string) blockBase {
	return blockBase{name: name, value: f.v}
}

func (f fields) invalid(name, code, message string) *ParseError {
	pos := f.v.Pos()
	if fv := f.v.LookupPath(cue.ParsePath(name)); fv.Exists() {
		pos = fv.Pos()
	}
	return &ParseError{
		Code:    code,
		Field:   f.prefix + "." + name,
		Message: message,
		Pos:     pos,
	}
}

func (f fields) lookup(name string) (cue.Value, bool) {
	fv := f.v.LookupPath(cue.ParsePath(name))
	return fv, fv.Exists()
}

func (f fields) requiredString(name string) (string, error) {
	fv, ok := f.lookup(name)
	if !ok {
		return "", f.invalid(name, ErrCodeInvalidField, name+" is required")
	}
	s, err := fv.String()
	if err != nil {
		return "", f.invalid(name, ErrCodeInvalidField, name+" must be a string")
	}
	return s, nil
}

func (f fields) optionalString(name string) (string, error) {
	if _, ok := f.lookup(name); !ok {
		return "", nil
	}
	return f.requiredString(name)
}

func (f fields) requiredInt(name string, lo, hi int64) (int64, error) {
	fv, ok := f.lookup(name)
	if !ok {
		return 0, f.invalid(name, ErrCodeInvalidField, name+" is required")
	}
	return f.checkInt(name, fv, lo, hi)
}

func (f fields) optionalInt(name string, def, lo, hi int64) (int64, error) {
	fv, ok := f.lookup(name)
	if !ok {
		return def, nil
	}
	return f.checkInt(name, fv, lo, hi)
}

func (f fields) checkInt(name string, fv cue.Value, lo, hi int64) (int64, error) {
	n, err := fv.Int64()
	if err != nil {
		return 0, f.invalid(name, ErrCodeInvalidField, name+" must be an integer")
	}
	if n < lo || n > hi {
		return 0, f.invalid(name, ErrCodeOutOfRange, fmt.Sprintf("%s %d out of range [%d, %d]", name, n, lo, hi))
	}
	return n, nil
}

// list returns an iterator over an optional list field.
func (f fields) list(name string) (cue.Iterator, bool, error) {
	fv, ok := f.lookup(name)
	if !ok {
		return cue.Iterator{}, false, nil
	}
	iter, err := fv.List()
	if err != nil {
		return cue.Iterator{}, false, f.invalid(name, ErrCodeInvalidField, name+" must be a list")
	}
	return iter, true, nil
}

func (f fields) stringList(name string) ([]string, error) {
	iter, ok, err := f.list(name)
	if err != nil || !ok {
		return nil, err
	}
	var out []string
	for i := 0; iter.Next(); i++ {
		s, err := iter.Value().String()
		if err != nil {
			return nil, f.invalid(name, ErrCodeInvalidField, fmt.Sprintf("%s[%d] must be a string", name, i))
		}
		out = append(out, s)
	}
	return out, nil
}

func (f fields) intList(name string, lo, hi int64) ([]int64, error) {
	iter, ok, err := f.list(name)
	if err != nil || !ok {
		return nil, err
	}
	var out []int64
	for i := 0; iter.Next(); i++ {
		n, err := iter.Value().Int64()
		if err != nil {
			return nil, f.invalid(name, ErrCodeInvalidField, fmt.Sprintf("%s[%d] must be an integer", name, i))
		}
		if n < lo || n > hi {
			return nil, f.invalid(name, ErrCodeOutOfRange, fmt.Sprintf("%s[%d] %d out of range [%d, %d]", name, i, n, lo, hi))
		}
		out = append(out, n)
	}
	return out, nil
}

// feature accepts a feature name or its numeric byte.
func (f fields) feature() (byte, error) {
	fv, ok := f.lookup("feature")
	if !ok {
		return 0, f.invalid("feature", ErrCodeInvalidField, "feature is required")
	}
	if s, err := fv.String(); err == nil {
		b, err := FeatureByName(s)
		if err != nil {
			return 0, f.invalid("feature", ErrCodeInvalidField, err.Error())
		}
		return b, nil
	}
	n, err := f.checkInt("feature", fv, 0, 0xFF)
	if err != nil {
		return 0, err
	}
	return byte(n), nil
}
