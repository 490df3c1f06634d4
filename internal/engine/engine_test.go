package engine

import (
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nmlc/internal/ir"
	"github.com/roach88/nmlc/internal/testutil"
)

func fakes(tr *testutil.Trace, kind ir.Kind, labels ...string) []ir.Action {
	out := make([]ir.Action, len(labels))
	for i, l := range labels {
		out[i] = testutil.NewFakeAction(kind, l, tr)
	}
	return out
}

func labelsOf(stream ir.Stream) []string {
	out := make([]string, len(stream))
	for i, a := range stream {
		out[i] = a.Label()
	}
	return out
}

func TestLinearizePreservesBlockAndActionOrder(t *testing.T) {
	blocks := []ir.Block{
		testutil.NewFakeBlock("a", fakes(nil, ir.KindGeneric, "a1", "a2")...),
		testutil.NewFakeBlock("empty"),
		testutil.NewFakeBlock("b", fakes(nil, ir.KindGeneric, "b1")...),
	}

	stream := Linearize(blocks)
	assert.Equal(t, []string{"a1", "a2", "b1"}, labelsOf(stream))
}

func TestLinearizeEmpty(t *testing.T) {
	assert.Empty(t, Linearize(nil))
}

func TestInjectHeader(t *testing.T) {
	t.Run("no entry point leaves stream unchanged", func(t *testing.T) {
		stream := ir.Stream(fakes(nil, ir.KindGeneric, "x", "y"))
		out, injected := InjectHeader(stream)
		assert.False(t, injected)
		assert.Equal(t, []string{"x", "y"}, labelsOf(out))
	})

	t.Run("entry point anywhere prepends header with prior length", func(t *testing.T) {
		stream := ir.Stream{
			testutil.NewFakeAction(ir.KindGeneric, "x", nil),
			testutil.NewFakeAction(ir.KindGeneric, "y", nil),
			testutil.NewFakeAction(ir.KindEntryPoint, "z", nil),
		}
		out, injected := InjectHeader(stream)
		require.True(t, injected)
		require.Len(t, out, 4)

		header, ok := out[0].(*ir.HeaderAction)
		require.True(t, ok)
		assert.Equal(t, 3, header.Count)
		assert.Equal(t, ir.KindHeader, header.Kind())
		assert.Equal(t, []string{"sprite count", "x", "y", "z"}, labelsOf(out))
	})

	t.Run("only one header for several entry points", func(t *testing.T) {
		stream := ir.Stream(fakes(nil, ir.KindEntryPoint, "e1", "e2"))
		out, injected := InjectHeader(stream)
		require.True(t, injected)
		assert.Equal(t, []ir.Kind{ir.KindHeader, ir.KindEntryPoint, ir.KindEntryPoint}, out.Kinds())
	})
}

func TestResolveStorageVisitsInReverseOrder(t *testing.T) {
	tr := testutil.NewTrace()
	stream := ir.Stream{
		testutil.NewFakeAction(ir.KindStorageResolving, "s0", tr),
		testutil.NewFakeAction(ir.KindGeneric, "g1", tr),
		testutil.NewFakeAction(ir.KindStorageResolving, "s2", tr),
		testutil.NewFakeAction(ir.KindEntryPoint, "e3", tr),
		testutil.NewFakeAction(ir.KindStorageResolving, "s4", tr),
	}

	require.NoError(t, ResolveStorage(stream, ir.NewTempStorage(0)))
	assert.Equal(t, []string{"resolve s4", "resolve s2", "resolve s0"}, tr.Events())

	for _, a := range stream {
		fa := a.(*testutil.FakeAction)
		if fa.Kind() == ir.KindStorageResolving {
			assert.Equal(t, 1, fa.ResolveCalls, fa.Label())
		} else {
			assert.Zero(t, fa.ResolveCalls, "%s must not be resolved", fa.Label())
		}
	}
}

func TestResolveStorageStopsAtFirstError(t *testing.T) {
	tr := testutil.NewTrace()
	boom := errors.New("boom")
	failing := testutil.NewFakeAction(ir.KindStorageResolving, "s1", tr)
	failing.ResolveErr = boom
	stream := ir.Stream{
		testutil.NewFakeAction(ir.KindStorageResolving, "s0", tr),
		failing,
		testutil.NewFakeAction(ir.KindStorageResolving, "s2", tr),
	}

	err := ResolveStorage(stream, ir.NewTempStorage(0))
	require.Error(t, err)
	assert.True(t, IsResolutionError(err))
	assert.ErrorIs(t, err, boom)

	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 1, pe.Position)
	assert.Equal(t, "s1", pe.Label)
	assert.Equal(t, []string{"resolve s2", "resolve s1"}, tr.Events())
}

func TestResolveStorageUnknownKind(t *testing.T) {
	stream := ir.Stream{testutil.NewFakeAction(ir.Kind(42), "odd", nil)}

	err := ResolveStorage(stream, ir.NewTempStorage(0))
	require.Error(t, err)
	assert.True(t, IsResolutionError(err))

	var se *ir.StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, ir.ErrCodeUnknownKind, se.Code)
}

func TestResolveStorageCallerBeforeCallee(t *testing.T) {
	callee := ir.NewVarAction(0x00, 0x01, []string{"a"}, nil, 0)
	caller := ir.NewVarAction(0x00, 0x00, []string{"x", "y"}, []byte{0x01}, 0)
	stream := ir.Stream{callee, caller}

	require.NoError(t, ResolveStorage(stream, ir.NewTempStorage(0)))
	assert.Equal(t, map[string]byte{"x": 0, "y": 1}, caller.Slots())
	assert.Equal(t, map[string]byte{"a": 2}, callee.Slots(), "callee avoids registers live in its caller")
}

func TestResolveStorageForwardReference(t *testing.T) {
	caller := ir.NewVarAction(0x00, 0x00, []string{"x"}, []byte{0x01}, 0)
	laterDef := ir.NewVarAction(0x00, 0x01, []string{"a"}, nil, 0)

	err := ResolveStorage(ir.Stream{caller, laterDef}, ir.NewTempStorage(0))
	require.Error(t, err)
	assert.True(t, IsResolutionError(err))

	var se *ir.StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, ir.ErrCodeUnresolvedReference, se.Code)
	assert.Equal(t, []byte{0x01}, se.SetIDs)
}

func TestResolveStorageExhausted(t *testing.T) {
	sw := ir.NewVarAction(0x00, 0x00, []string{"a", "b", "c"}, nil, 0)

	err := ResolveStorage(ir.Stream{sw}, ir.NewTempStorage(2))
	require.Error(t, err)

	var se *ir.StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, ir.ErrCodeStorageExhausted, se.Code)
}

func TestFinalizeStopsAtFirstError(t *testing.T) {
	tr := testutil.NewTrace()
	bad := testutil.NewFakeAction(ir.KindGeneric, "b", tr)
	bad.FinalizeErr = errors.New("cannot encode")
	stream := ir.Stream{
		testutil.NewFakeAction(ir.KindGeneric, "a", tr),
		bad,
		testutil.NewFakeAction(ir.KindGeneric, "c", tr),
	}

	err := Finalize(stream)
	require.Error(t, err)
	assert.True(t, IsFinalizeError(err))
	assert.Equal(t, []string{"finalize a", "finalize b"}, tr.Events())
}

func TestEmitFinalizesBeforeAnyWrite(t *testing.T) {
	tr := testutil.NewTrace()
	stream := ir.Stream(fakes(tr, ir.KindGeneric, "a", "b"))
	s1 := testutil.NewRecordingSink("one", tr)
	s2 := testutil.NewRecordingSink("two", tr)

	complete, err := Emit(stream, []ir.Sink{s1, s2})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true}, complete)
	assert.Equal(t, []string{
		"finalize a", "finalize b",
		"one write a", "one write b",
		"two write a", "two write b",
	}, tr.Events())
}

func TestEmitFatalSinkErrorStopsWritePass(t *testing.T) {
	stream := ir.Stream(fakes(nil, ir.KindGeneric, "a", "b"))
	s1 := testutil.NewRecordingSink("one", nil)
	s1.FailAt = 1
	s1.FailErr = fmt.Errorf("no space left: %w", ir.ErrSinkFatal)
	s2 := testutil.NewRecordingSink("two", nil)

	complete, err := Emit(stream, []ir.Sink{s1, s2})
	require.Error(t, err)
	assert.ErrorIs(t, err, ir.ErrSinkFatal)
	assert.Equal(t, []bool{false, false}, complete)
	assert.Empty(t, s2.Records, "fatal error skips the remaining sinks")
}

func TestEmitNonFatalSinkErrorContinues(t *testing.T) {
	stream := ir.Stream(fakes(nil, ir.KindGeneric, "a", "b"))
	s1 := testutil.NewRecordingSink("one", nil)
	s1.FailAt = 0
	s1.FailErr = errors.New("rejected")
	s2 := testutil.NewRecordingSink("two", nil)

	complete, err := Emit(stream, []ir.Sink{s1, s2})
	require.Error(t, err)
	assert.True(t, IsSinkError(err))
	assert.Equal(t, []bool{false, true}, complete)
	assert.Equal(t, []string{"a", "b"}, s2.Labels())

	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "one", pe.Sink)
	assert.Equal(t, 0, pe.Position)
}

func TestErrorMessage(t *testing.T) {
	err := newSinkError("nfo", 2, "raw 1 byte(s)", errors.New("closed"))
	assert.Equal(t, "SINK_FAILED: write failed (sink=nfo) (action 2 raw 1 byte(s)): closed", err.Error())
	assert.Equal(t, "EMPTY_INPUT: empty input", emptyInputError().Error())
}

func TestHeaderRecordEncodesCount(t *testing.T) {
	stream := ir.Stream{testutil.NewFakeAction(ir.KindEntryPoint, "e", nil)}
	out, _ := InjectHeader(stream)
	sink := testutil.NewRecordingSink("s", nil)

	_, err := Emit(out, []ir.Sink{sink})
	require.NoError(t, err)
	require.Len(t, sink.Records, 2)
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(sink.Records[0].Data))
}
