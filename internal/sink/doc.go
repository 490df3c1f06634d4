// Package sink provides the output destinations a finalized action stream is
// emitted to.
//
// Every sink implements ir.Sink and ir.Discarder. Nothing reaches the final
// destination until Close; Discard drops everything written so far. File
// sinks write beside the destination and rename into place on Close.
//
// Formats:
//   - nfo: annotated text listing, one line per pseudo-sprite
//   - grf: binary GRF container, version 2
//   - json: canonical JSON listing of records
//
// A Registry maps format names to factories so that outputs can be checked
// before any compilation starts.
package sink
