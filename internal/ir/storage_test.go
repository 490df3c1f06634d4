package ir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotSet(t *testing.T) {
	var s SlotSet
	s.Add(0)
	s.Add(63)
	s.Add(64)
	s.Add(255)

	assert.True(t, s.Has(63))
	assert.True(t, s.Has(64))
	assert.False(t, s.Has(1))
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, []byte{0, 63, 64, 255}, s.Slots())

	var o SlotSet
	o.Add(1)
	assert.Equal(t, []byte{0, 1, 63, 64, 255}, s.Union(o).Slots())
}

func TestNewTempStorageCapacity(t *testing.T) {
	assert.Equal(t, DefaultTempSlots, NewTempStorage(0).Capacity())
	assert.Equal(t, 4, NewTempStorage(4).Capacity())
	assert.Equal(t, MaxTempSlots, NewTempStorage(1000).Capacity())
}

func TestCallerRegistersSurviveCallee(t *testing.T) {
	// Stream order: callee (set 1) then caller (set 2) calling set 1.
	callee := NewVarAction(0x00, 1, []string{"x"}, nil, 0)
	caller := NewVarAction(0x00, 2, []string{"a", "b"}, []byte{1}, 0)

	ts := NewTempStorage(0)
	require.NoError(t, caller.ResolveStorage(ts))
	require.NoError(t, callee.ResolveStorage(ts))
	require.NoError(t, ts.Check())

	assert.Equal(t, map[string]byte{"a": 0, "b": 1}, caller.Slots())
	assert.Equal(t, map[string]byte{"x": 2}, callee.Slots())
}

func TestTransitiveReservations(t *testing.T) {
	// leaf <- mid <- root; root's registers must survive through mid into leaf.
	leaf := NewVarAction(0x00, 1, []string{"l"}, nil, 0)
	mid := NewVarAction(0x00, 2, []string{"m"}, []byte{1}, 0)
	root := NewVarAction(0x00, 3, []string{"r"}, []byte{2}, 0)

	ts := NewTempStorage(0)
	for _, a := range []*VarAction{root, mid, leaf} {
		require.NoError(t, a.ResolveStorage(ts))
	}
	require.NoError(t, ts.Check())

	assert.Equal(t, byte(0), root.Slots()["r"])
	assert.Equal(t, byte(1), mid.Slots()["m"])
	assert.Equal(t, byte(2), leaf.Slots()["l"])
}

func TestSiblingCalleesReuseRegisters(t *testing.T) {
	a := NewVarAction(0x00, 1, []string{"t"}, nil, 0)
	b := NewVarAction(0x00, 2, []string{"t"}, nil, 0)
	root := NewVarAction(0x00, 3, []string{"r"}, []byte{1, 2}, 0)

	ts := NewTempStorage(0)
	for _, v := range []*VarAction{root, b, a} {
		require.NoError(t, v.ResolveStorage(ts))
	}
	assert.Equal(t, byte(1), a.Slots()["t"])
	assert.Equal(t, byte(1), b.Slots()["t"])
}

func TestRedefinitionConsumesReservation(t *testing.T) {
	// Two definitions of set 1; the caller binds to the nearest earlier one.
	older := NewVarAction(0x00, 1, []string{"t"}, nil, 0)
	newer := NewVarAction(0x00, 1, []string{"t"}, nil, 0)
	caller := NewVarAction(0x00, 2, []string{"a"}, []byte{1}, 0)

	ts := NewTempStorage(0)
	for _, v := range []*VarAction{caller, newer, older} {
		require.NoError(t, v.ResolveStorage(ts))
	}
	require.NoError(t, ts.Check())
	assert.Equal(t, byte(1), newer.Slots()["t"])
	assert.Equal(t, byte(0), older.Slots()["t"])
}

func TestForwardReferenceIsUnresolved(t *testing.T) {
	// Caller precedes its callee: the reservation is never consumed.
	caller := NewVarAction(0x00, 2, []string{"a"}, []byte{1}, 0)
	callee := NewVarAction(0x00, 1, []string{"x"}, nil, 0)

	ts := NewTempStorage(0)
	require.NoError(t, callee.ResolveStorage(ts))
	require.NoError(t, caller.ResolveStorage(ts))

	err := ts.Check()
	var se *StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, ErrCodeUnresolvedReference, se.Code)
	assert.Equal(t, []byte{1}, se.SetIDs)
	assert.Contains(t, err.Error(), "0x01")
}

func TestStorageExhausted(t *testing.T) {
	callee := NewVarAction(0x00, 1, []string{"x"}, nil, 0)
	caller := NewVarAction(0x00, 2, []string{"a", "b"}, []byte{1}, 0)

	ts := NewTempStorage(2)
	require.NoError(t, caller.ResolveStorage(ts))

	err := callee.ResolveStorage(ts)
	var se *StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, ErrCodeStorageExhausted, se.Code)
	assert.False(t, callee.Resolved())
}
