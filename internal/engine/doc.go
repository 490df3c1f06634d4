// Package engine implements the nmlc post-parse pipeline.
//
// A run takes source text through four strictly ordered stages:
//
//  1. Linearize: flatten each block's actions, in block order, into one stream
//  2. ResolveStorage: one backward pass over the stream assigning temporary
//     registers to storage-resolving actions
//  3. InjectHeader: prepend a sprite-count header when the stream declares a GRF
//  4. Emit: finalize every action once, then write the whole stream to each
//     sink in configuration order
//
// The pipeline is synchronous and single-threaded. A stream belongs to exactly
// one run and is never mutated once emission starts, so every sink observes
// the same sequence.
package engine
