// Package ir provides the action types shared by every stage of nmlc.
//
// This package contains the Action, Block, Record and Sink contracts plus the
// concrete NFO actions. All other internal packages import ir; ir imports
// nothing internal, which keeps it the foundational layer.
//
// Key design constraints:
//   - Kind is a closed set; stages dispatch on it with exhaustive switches
//   - An action is finalized exactly once before it is written anywhere
//   - Records are immutable once Finalize has produced them
//   - Strings are NFC normalized at the serialization boundary
package ir
