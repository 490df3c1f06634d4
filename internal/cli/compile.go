package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nmlc/internal/compiler"
	"github.com/roach88/nmlc/internal/engine"
	"github.com/roach88/nmlc/internal/ir"
	"github.com/roach88/nmlc/internal/sink"
	"github.com/roach88/nmlc/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Debug     bool
	GRF       string
	NFO       string
	JSON      string
	DB        string
	NML       string
	Outputs   []string
	TempSlots int
}

// CompileSummary is the success payload of the compile command.
type CompileSummary struct {
	Source         string   `json:"source"`
	Blocks         int      `json:"blocks"`
	Actions        int      `json:"actions"`
	HeaderInjected bool     `json:"header_injected"`
	Outputs        []string `json:"outputs"`
}

func (s CompileSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ Compiled %s: %d block(s), %d action(s)", s.Source, s.Blocks, s.Actions)
	if s.HeaderInjected {
		b.WriteString(", sprite count header")
	}
	for _, o := range s.Outputs {
		fmt.Fprintf(&b, "\n  wrote %s", o)
	}
	return b.String()
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [file]",
		Short: "Compile a source file to grf/nfo output",
		Long: `Compile one block source file and write every requested output.

The source is read from stdin when no file is given and at least one
output is. With a file and no outputs, <file>.grf is written.

Exit codes:
  0 - Success
  1 - Resolution, finalize or output failure
  2 - Usage error (bad arguments, unreadable input, unknown output type)
  3 - No encoder available for a requested output format
  4 - Empty input
  8 - Parse failure

Examples:
  nmlc compile example.cue
  nmlc compile example.cue --nfo example.nfo -o example.grf
  nmlc compile --nfo out.nfo < example.cue
  nmlc compile example.cue --nml normalized.cue --db runs.db`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Debug, "debug", "d", false, "write the parsed blocks to stdout")
	cmd.Flags().StringVar(&opts.GRF, "grf", "", "write the resulting grf to `file`")
	cmd.Flags().StringVar(&opts.NFO, "nfo", "", "write nfo output to `file`")
	cmd.Flags().StringVar(&opts.JSON, "json", "", "write a canonical JSON listing to `file`")
	cmd.Flags().StringVar(&opts.DB, "db", "", "record the run in the SQLite `file`")
	cmd.Flags().StringVar(&opts.NML, "nml", "", "write normalized source to `file`")
	cmd.Flags().StringArrayVarP(&opts.Outputs, "output", "o", nil, "write output (grf/nfo/json/db, by extension) to `file`")
	cmd.Flags().IntVar(&opts.TempSlots, "temp-slots", 0, "number of temporary registers")

	return cmd
}

func (o *CompileOptions) outputGiven() bool {
	return o.GRF != "" || o.NFO != "" || o.JSON != "" || o.DB != "" || o.NML != "" || len(o.Outputs) > 0
}

// outputList builds the sink outputs in flag order, then -o in given order.
func (o *CompileOptions) outputList() ([]sink.Output, error) {
	var outs []sink.Output
	for _, named := range []struct{ format, path string }{
		{sink.FormatGRF, o.GRF},
		{sink.FormatNFO, o.NFO},
		{sink.FormatJSON, o.JSON},
		{sink.FormatDB, o.DB},
	} {
		if named.path != "" {
			outs = append(outs, sink.Output{Format: named.format, Path: named.path})
		}
	}
	for _, path := range o.Outputs {
		out, err := sink.OutputForPath(path)
		if err != nil {
			return nil, err
		}
		outs = append(outs, out)
	}
	outs, err := sink.Dedupe(outs)
	if err != nil {
		return nil, err
	}
	if o.NML != "" {
		for _, out := range outs {
			if filepath.Clean(out.Path) == filepath.Clean(o.NML) {
				return nil, &sink.ConfigError{
					Code:    sink.ErrCodeDuplicateOutput,
					Path:    o.NML,
					Message: fmt.Sprintf("requested as both nml and %s output", out.Format),
				}
			}
		}
	}
	return outs, nil
}

func runCompile(opts *CompileOptions, args []string, cmd *cobra.Command) error {
	formatter := NewOutputFormatter(opts.RootOptions, cmd)
	cfg := opts.loadedConfig()
	if cmd.Flags().Changed("temp-slots") {
		cfg.TempSlots = opts.TempSlots
		if err := cfg.Validate(); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeUsage, "invalid --temp-slots", err)
		}
	}
	if cmd.Flags().Changed("debug") {
		cfg.Debug = opts.Debug
	}

	if len(args) > 1 {
		return formatter.Fail(ExitCommandError, ErrCodeUsage, "only a single source file can be read per run", nil)
	}
	if len(args) == 0 && !opts.outputGiven() {
		_ = cmd.Help()
		return NewExitError(ExitCommandError, "no input file and no output given")
	}

	sourceName := compiler.DefaultFilename
	var input io.Reader = cmd.InOrStdin()
	if len(args) == 1 {
		sourceName = args[0]
		f, err := os.Open(sourceName)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("input file %q cannot be read", sourceName), err)
		}
		defer f.Close()
		input = f
		if !opts.outputGiven() {
			opts.GRF = outputFromInput(sourceName, ".grf")
		}
	}

	// A configured database records every run next to the requested outputs.
	if opts.DB == "" && cfg.Database != "" {
		opts.DB = cfg.Database
	}

	outputs, err := opts.outputList()
	if err != nil {
		return failConfig(formatter, err)
	}

	registry := sink.DefaultRegistry(sink.NFOOptions{OmitLabels: cfg.OmitNFOLabels})
	registry.Register(sink.FormatDB, store.Factory(commandContext(cmd), sourceName))
	for _, format := range cfg.DisabledFormats {
		registry.Unregister(strings.TrimSpace(format))
	}
	if err := registry.Check(outputs); err != nil {
		return failConfig(formatter, err)
	}

	data, err := io.ReadAll(input)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeReadFailed, fmt.Sprintf("reading %s", sourceName), err)
	}

	var nml *sink.StagedFile
	if opts.NML != "" {
		if nml, err = sink.CreateStagedFile(opts.NML); err != nil {
			return formatter.Fail(ExitFailure, ErrCodeWriteFailed, "opening outputs", err)
		}
	}
	sinks, err := registry.Open(outputs)
	if err != nil {
		abortStaged(nml)
		return formatter.Fail(ExitFailure, ErrCodeWriteFailed, "opening outputs", err)
	}

	slog.Info("compiling", "source", sourceName, "outputs", len(outputs))
	pipeline := &engine.Pipeline{
		Parser:     compiler.NewParser(sourceName),
		Sinks:      sinks,
		TempSlots:  cfg.TempSlots,
		AfterParse: afterParse(cfg.Debug, nml, debugWriter(formatter)),
	}
	result, runErr := pipeline.Run(string(data))
	if runErr != nil {
		abortStaged(nml)
		return failRun(formatter, result, runErr)
	}
	// The normalized source lands only once every sink has committed.
	if nml != nil {
		if err := nml.Commit(); err != nil {
			return formatter.Fail(ExitFailure, ErrCodeWriteFailed, fmt.Sprintf("writing %s", opts.NML), err)
		}
	}

	summary := CompileSummary{
		Source:         sourceName,
		Blocks:         result.Blocks,
		Actions:        result.Length,
		HeaderInjected: result.HeaderInjected,
		Outputs:        make([]string, 0, len(outputs)+1),
	}
	for _, o := range outputs {
		summary.Outputs = append(summary.Outputs, o.Path)
	}
	if opts.NML != "" {
		summary.Outputs = append(summary.Outputs, opts.NML)
	}
	slog.Info("compiled", "source", sourceName, "actions", result.Length)
	return formatter.Success(summary)
}

// afterParse returns the hook that writes the debug dump and stages the
// normalized source before the stream is built.
func afterParse(debug bool, nml *sink.StagedFile, debugOut io.Writer) func([]ir.Block) error {
	if !debug && nml == nil {
		return nil
	}
	return func(blocks []ir.Block) error {
		if debug {
			if err := compiler.PrintBlocks(debugOut, blocks); err != nil {
				return err
			}
		}
		if nml != nil {
			if err := compiler.WriteSource(nml, blocks); err != nil {
				return fmt.Errorf("write %s: %w", nml.Path(), err)
			}
		}
		return nil
	}
}

func abortStaged(f *sink.StagedFile) {
	if f == nil {
		return
	}
	if err := f.Abort(); err != nil {
		slog.Warn("discarding staged output", "path", f.Path(), "error", err)
	}
}

// debugWriter keeps the block dump off stdout when stdout carries JSON.
func debugWriter(f *OutputFormatter) io.Writer {
	if f.Format == "json" {
		return f.GetErrWriter()
	}
	return f.Writer
}

func failConfig(f *OutputFormatter, err error) error {
	var ce *sink.ConfigError
	if !errors.As(err, &ce) {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "invalid output", err)
	}
	exitCode := ExitCommandError
	if ce.Code == sink.ErrCodeEncoderUnavailable {
		exitCode = ExitEncoderUnavailable
	}
	_ = f.Error(ce.Code, ce.Error(), nil)
	return WrapExitError(exitCode, ce.Code, err)
}

// failRun maps a pipeline outcome to an exit code.
func failRun(f *OutputFormatter, result *engine.Result, err error) error {
	exitCode := exitCodeForStatus(result.Status)
	message := "compilation failed"
	switch result.Status {
	case engine.StatusEmptyInput:
		message = "empty input file"
	case engine.StatusParseFailure:
		message = "error while parsing input file"
	}

	code := string(engine.ErrCodeSink)
	var pe *engine.Error
	if errors.As(err, &pe) {
		code = string(pe.Code)
	}
	var parseErr *compiler.ParseError
	if errors.As(err, &parseErr) {
		code = parseErr.Code
	}

	slog.Error(message, "status", result.Status.String(), "error", err)
	_ = f.Error(code, fmt.Sprintf("%s: %v", message, err), nil)
	return WrapExitError(exitCode, message, err)
}

func outputFromInput(name, ext string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
