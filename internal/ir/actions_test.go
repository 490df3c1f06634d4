package ir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordWriter collects records for assertions.
type recordWriter struct {
	records []Record
	err     error
}

func (w *recordWriter) WriteRecord(r Record) error {
	if w.err != nil {
		return w.err
	}
	w.records = append(w.records, r)
	return nil
}

func finalizeAndWrite(t *testing.T, a Action) Record {
	t.Helper()
	require.NoError(t, a.Finalize())
	w := &recordWriter{}
	require.NoError(t, a.WriteTo(w))
	require.Len(t, w.records, 1)
	return w.records[0]
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "generic", KindGeneric.String())
	assert.Equal(t, "storage_resolving", KindStorageResolving.String())
	assert.Equal(t, "entry_point", KindEntryPoint.String())
	assert.Equal(t, "header", KindHeader.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
	assert.False(t, Kind(9).Valid())

	for _, k := range Kinds {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := ParseKind("bogus")
	assert.Error(t, err)
}

func TestGRFActionEncoding(t *testing.T) {
	a := NewGRFAction([4]byte{'N', 'M', 'L', 0x01}, "Ex", "d")
	assert.Equal(t, KindEntryPoint, a.Kind())
	assert.Equal(t, "Action8 4E4D4C01", a.Label())

	rec := finalizeAndWrite(t, a)
	assert.Equal(t, KindEntryPoint, rec.Kind)
	assert.Equal(t, []byte{0x08, 0x08, 0x4E, 0x4D, 0x4C, 0x01, 'E', 'x', 0x00, 'd', 0x00}, rec.Data)
}

func TestGRFActionRejectsNUL(t *testing.T) {
	a := NewGRFAction([4]byte{1, 2, 3, 4}, "bad\x00name", "")
	err := a.Finalize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NUL")
}

func TestPropertyActionEncoding(t *testing.T) {
	a := NewPropertyAction(0x00, 1, []Property{
		{ID: 0x12, Size: 1, Value: 3},
		{ID: 0x08, Size: 2, Value: 0x1234},
	})
	rec := finalizeAndWrite(t, a)
	assert.Equal(t, []byte{0x00, 0x00, 0x02, 0x01, 0x01, 0x12, 0x03, 0x08, 0x34, 0x12}, rec.Data)
}

func TestPropertyActionExtendedID(t *testing.T) {
	a := NewPropertyAction(0x01, 300, []Property{{ID: 0x09, Size: 4, Value: 1}})
	rec := finalizeAndWrite(t, a)
	assert.Equal(t, []byte{0x00, 0x01, 0x01, 0x01, 0xFF, 0x2C, 0x01, 0x09, 0x01, 0x00, 0x00, 0x00}, rec.Data)
}

func TestPropertyActionValueOverflow(t *testing.T) {
	a := NewPropertyAction(0x00, 1, []Property{{ID: 0x12, Size: 1, Value: 256}})
	err := a.Finalize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not fit")
}

func TestVarActionRequiresResolution(t *testing.T) {
	a := NewVarAction(0x00, 0x05, []string{"a"}, nil, 0)
	err := a.Finalize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not resolved")
}

func TestVarActionEncoding(t *testing.T) {
	a := NewVarAction(0x00, 0x05, []string{"a", "b"}, []byte{0x03}, 0x0010)
	ts := NewTempStorage(0)
	require.NoError(t, a.ResolveStorage(ts))
	assert.Equal(t, map[string]byte{"a": 0, "b": 1}, a.Slots())

	rec := finalizeAndWrite(t, a)
	assert.Equal(t, KindStorageResolving, rec.Kind)
	assert.Equal(t, []byte{0x02, 0x00, 0x05, 0x89, 0x02, 0x00, 0x01, 0x01, 0x03, 0x10, 0x00}, rec.Data)
}

func TestVarActionResolveTwice(t *testing.T) {
	a := NewVarAction(0x00, 0x05, nil, nil, 0)
	ts := NewTempStorage(0)
	require.NoError(t, a.ResolveStorage(ts))

	err := a.ResolveStorage(ts)
	var se *StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, ErrCodeAlreadyResolved, se.Code)
}

func TestTextActionEncodingNormalizes(t *testing.T) {
	a := NewTextAction(0x00, 0x7F, 0xD0, []string{"Hi", "e\u0301"})
	rec := finalizeAndWrite(t, a)
	assert.Equal(t, []byte{0x04, 0x00, 0x7F, 0x02, 0xD0, 'H', 'i', 0x00, 0xC3, 0xA9, 0x00}, rec.Data)
}

func TestRawAction(t *testing.T) {
	data := []byte{0x0D, 0x7F}
	a := NewRawAction(data)
	rec := finalizeAndWrite(t, a)
	assert.Equal(t, data, rec.Data)

	// The record owns its bytes.
	data[0] = 0xFF
	assert.Equal(t, byte(0x0D), rec.Data[0])

	assert.Error(t, NewRawAction(nil).Finalize())
}

func TestHeaderAction(t *testing.T) {
	a := NewHeaderAction(3)
	assert.Equal(t, KindHeader, a.Kind())
	rec := finalizeAndWrite(t, a)
	assert.Equal(t, []byte{0x03, 0x00, 0x00, 0x00}, rec.Data)

	assert.Error(t, NewHeaderAction(-1).Finalize())
}

func TestFinalizeOnce(t *testing.T) {
	a := NewRawAction([]byte{1})
	require.NoError(t, a.Finalize())
	err := a.Finalize()
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
}

func TestWriteBeforeFinalize(t *testing.T) {
	a := NewRawAction([]byte{1})
	err := a.WriteTo(&recordWriter{})
	assert.ErrorIs(t, err, ErrNotFinalized)
}

func TestWriteToPropagatesWriterError(t *testing.T) {
	a := NewRawAction([]byte{1})
	require.NoError(t, a.Finalize())
	boom := errors.New("boom")
	assert.ErrorIs(t, a.WriteTo(&recordWriter{err: boom}), boom)
}

func TestStreamKinds(t *testing.T) {
	s := Stream{NewHeaderAction(1), NewGRFAction([4]byte{}, "", "")}
	assert.Equal(t, []Kind{KindHeader, KindEntryPoint}, s.Kinds())
}
