package harness

import (
	"bytes"
	"fmt"

	"github.com/roach88/nmlc/internal/compiler"
	"github.com/roach88/nmlc/internal/engine"
	"github.com/roach88/nmlc/internal/ir"
	"github.com/roach88/nmlc/internal/sink"
	"github.com/roach88/nmlc/internal/testutil"
)

// Run executes a test scenario and returns the result.
//
// Each scenario runs against fresh sinks: one in-memory NFO sink followed by
// the configured number of recording sinks.
//
// Execution flow:
// 1. Build the sinks and the pipeline
// 2. Run the pipeline over the scenario source
// 3. Collect the emitted records and the sink trace
// 4. Evaluate the built-in checks and the expectations
func Run(scenario *Scenario) (*Result, error) {
	if scenario == nil {
		return nil, fmt.Errorf("nil scenario")
	}

	trace := testutil.NewTrace()
	var listing bytes.Buffer
	sinks := []ir.Sink{sink.NewNFO("nfo", &listing, sink.NFOOptions{})}

	n := scenario.Sinks
	if n == 0 {
		n = 1
	}
	recorders := make([]*testutil.RecordingSink, n)
	for i := range recorders {
		recorders[i] = testutil.NewRecordingSink(fmt.Sprintf("rec%d", i), trace)
		sinks = append(sinks, recorders[i])
	}

	filename := scenario.SourceFile
	if filename == "" {
		filename = scenario.Name + ".cue"
	}
	p := &engine.Pipeline{
		Parser:    compiler.NewParser(filename),
		Sinks:     sinks,
		TempSlots: scenario.TempSlots,
	}
	out, err := p.Run(scenario.Source)

	result := NewResult()
	result.Status = out.Status
	result.Length = out.Length
	result.Header = out.HeaderInjected
	result.Err = err
	result.NFO = listing.Bytes()
	result.Trace = trace.Events()
	for _, r := range recorders[0].Records {
		result.Kinds = append(result.Kinds, r.Kind.String())
		result.Labels = append(result.Labels, r.Label)
	}

	for _, msg := range EvaluateExpectations(result, scenario.Expect, recorders) {
		result.AddError(msg)
	}
	return result, nil
}
