package ir

import (
	"fmt"
	"math/bits"
	"slices"
	"strings"
)

// DefaultTempSlots is the number of temporary registers (0x00..0x7E)
// available to storage-resolving actions.
const DefaultTempSlots = 0x7F

// MaxTempSlots bounds the register file; slot numbers are single bytes.
const MaxTempSlots = 256

// SlotSet is a set of temporary register numbers.
type SlotSet [MaxTempSlots / 64]uint64

// Add inserts slot into the set.
func (s *SlotSet) Add(slot byte) {
	s[slot/64] |= 1 << (slot % 64)
}

// Has reports whether slot is in the set.
func (s SlotSet) Has(slot byte) bool {
	return s[slot/64]&(1<<(slot%64)) != 0
}

// Union returns the union of s and o.
func (s SlotSet) Union(o SlotSet) SlotSet {
	var out SlotSet
	for i := range s {
		out[i] = s[i] | o[i]
	}
	return out
}

// Len returns the number of slots in the set.
func (s SlotSet) Len() int {
	n := 0
	for _, w := range s {
		n += bits.OnesCount64(w)
	}
	return n
}

// Slots returns the members in ascending order.
func (s SlotSet) Slots() []byte {
	var out []byte
	for i := 0; i < MaxTempSlots; i++ {
		if s.Has(byte(i)) {
			out = append(out, byte(i))
		}
	}
	return out
}

// StorageErrorCode categorizes storage resolution failures.
type StorageErrorCode string

const (
	// ErrCodeStorageExhausted means no free register was left for a temporary.
	ErrCodeStorageExhausted StorageErrorCode = "STORAGE_EXHAUSTED"

	// ErrCodeUnresolvedReference means a caller references a set id that has
	// no earlier definition in the stream.
	ErrCodeUnresolvedReference StorageErrorCode = "UNRESOLVED_REFERENCE"

	// ErrCodeUnknownKind means an action reported a kind outside the closed set.
	ErrCodeUnknownKind StorageErrorCode = "UNKNOWN_KIND"

	// ErrCodeAlreadyResolved means an action was resolved twice in one run.
	ErrCodeAlreadyResolved StorageErrorCode = "ALREADY_RESOLVED"
)

// StorageError describes why temporary storage could not be assigned.
type StorageError struct {
	Code    StorageErrorCode
	SetIDs  []byte
	Message string
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// TempStorage assigns temporary registers during the backward pass.
//
// Callers are visited before the sets they call, so by the time a set is
// resolved every register live across a call into it is already known.
type TempStorage struct {
	capacity int
	pending  map[byte]SlotSet
}

// NewTempStorage returns an allocator with the given number of registers.
// A non-positive capacity selects DefaultTempSlots.
func NewTempStorage(capacity int) *TempStorage {
	if capacity <= 0 {
		capacity = DefaultTempSlots
	}
	if capacity > MaxTempSlots {
		capacity = MaxTempSlots
	}
	return &TempStorage{
		capacity: capacity,
		pending:  make(map[byte]SlotSet),
	}
}

// Capacity returns the number of registers available.
func (ts *TempStorage) Capacity() int {
	return ts.capacity
}

// Enter consumes the reservations callers registered against setID and
// returns the registers that must survive a call into it.
func (ts *TempStorage) Enter(setID byte) SlotSet {
	reserved := ts.pending[setID]
	delete(ts.pending, setID)
	return reserved
}

// Allocate returns the lowest register not in busy.
func (ts *TempStorage) Allocate(busy SlotSet) (byte, bool) {
	for i := 0; i < ts.capacity; i++ {
		if !busy.Has(byte(i)) {
			return byte(i), true
		}
	}
	return 0, false
}

// Reserve records that registers in live must survive a call into callee.
// The reservation is consumed by the nearest earlier definition of callee.
func (ts *TempStorage) Reserve(callee byte, live SlotSet) {
	ts.pending[callee] = ts.pending[callee].Union(live)
}

// Pending returns the set ids whose reservations were never consumed.
func (ts *TempStorage) Pending() []byte {
	ids := make([]byte, 0, len(ts.pending))
	for id := range ts.pending {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Check reports references left unresolved once the pass is over.
func (ts *TempStorage) Check() error {
	ids := ts.Pending()
	if len(ids) == 0 {
		return nil
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = fmt.Sprintf("0x%02X", id)
	}
	return &StorageError{
		Code:    ErrCodeUnresolvedReference,
		SetIDs:  ids,
		Message: fmt.Sprintf("switch set(s) %s called before any definition", strings.Join(names, ", ")),
	}
}
