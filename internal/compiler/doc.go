// Package compiler turns CUE source into the block list the pipeline consumes.
//
// A source file is a CUE value with a top-level blocks list. Each element is
// a struct discriminated by its kind field:
//
//	blocks: [
//		{kind: "grf", grfid: "4E4D4C01", name: "Example", description: "demo"},
//		{kind: "item", feature: "trains", id: 1, properties: [{id: 0x12, size: 1, value: 3}]},
//		{kind: "switch", feature: "trains", id: 0, temps: ["speed"], calls: [], default: 0},
//		{kind: "text", feature: "trains", lang: 0x7F, id: 0xD0, texts: ["Hello"]},
//		{kind: "raw", data: "0D 7F"},
//	]
//
// Parsing is fail-fast: the first problem is returned as a *ParseError and no
// partial block list is produced.
package compiler
