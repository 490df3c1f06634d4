package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nmlc/internal/ir"
	"github.com/roach88/nmlc/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DB     string
	Verify bool

	// Search filters; any of them selects search mode.
	Kind       string
	Label      string
	RecordHash string
}

func (o *HistoryOptions) searching() bool {
	return o.Kind != "" || o.Label != "" || o.RecordHash != ""
}

// RunSummary is one run in history output.
type RunSummary struct {
	ID          string `json:"id"`
	Seq         int64  `json:"seq"`
	Source      string `json:"source"`
	ActionCount int    `json:"action_count"`
	Header      bool   `json:"header"`
	StreamHash  string `json:"stream_hash"`
}

// RecordSummary is one stored record in history output.
type RecordSummary struct {
	Position   int    `json:"position"`
	Kind       string `json:"kind"`
	Label      string `json:"label"`
	Size       int    `json:"size"`
	RecordHash string `json:"record_hash"`
}

// HistoryList is the payload for listing runs.
type HistoryList struct {
	Runs []RunSummary `json:"runs"`
}

func (h HistoryList) String() string {
	if len(h.Runs) == 0 {
		return "No runs recorded"
	}
	var b strings.Builder
	for i, r := range h.Runs {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%4d  %s  %-24s %d action(s)", r.Seq, r.ID, r.Source, r.ActionCount)
	}
	return b.String()
}

// HistoryRun is the payload for showing one run.
type HistoryRun struct {
	Run      RunSummary      `json:"run"`
	Records  []RecordSummary `json:"records"`
	Verified bool            `json:"verified,omitempty"`
}

func (h HistoryRun) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (seq %d) from %s", h.Run.ID, h.Run.Seq, h.Run.Source)
	if h.Verified {
		b.WriteString("\n✓ hashes verified")
	}
	for _, r := range h.Records {
		fmt.Fprintf(&b, "\n%5d  %-18s %4d byte(s)  %s", r.Position, r.Kind, r.Size, r.Label)
	}
	return b.String()
}

// MatchSummary is one record found by a history search.
type MatchSummary struct {
	RunID string `json:"run_id"`
	Seq   int64  `json:"seq"`
	RecordSummary
}

// HistoryMatches is the payload for a history search.
type HistoryMatches struct {
	Matches []MatchSummary `json:"matches"`
}

func (h HistoryMatches) String() string {
	if len(h.Matches) == 0 {
		return "No matching records"
	}
	var b strings.Builder
	for i, m := range h.Matches {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%4d  %s  %5d  %-18s %s", m.Seq, m.RunID, m.Position, m.Kind, m.Label)
	}
	return b.String()
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List or inspect runs recorded in a database",
		Long: `List the runs recorded by db outputs, or show the records of one run.

With --verify, every record hash and the stream hash of the run are
recomputed and compared against the stored values.

--kind, --label and --record-hash search records across every run (or
only the given run) instead.

Examples:
  nmlc history --db runs.db
  nmlc history --db runs.db 0192f0c4-...
  nmlc history --db runs.db 0192f0c4-... --verify
  nmlc history --db runs.db --kind entry_point`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "SQLite database `file` (default from config)")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "recompute and check the run's hashes")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "search records of `kind`")
	cmd.Flags().StringVar(&opts.Label, "label", "", "search records with exactly this `label`")
	cmd.Flags().StringVar(&opts.RecordHash, "record-hash", "", "search records with this `hash`")

	return cmd
}

func runHistory(opts *HistoryOptions, args []string, cmd *cobra.Command) error {
	formatter := NewOutputFormatter(opts.RootOptions, cmd)

	path := opts.DB
	if path == "" {
		path = opts.loadedConfig().Database
	}
	if path == "" {
		return formatter.Fail(ExitCommandError, ErrCodeUsage, "no database given (use --db or the db config key)", nil)
	}
	if _, err := os.Stat(path); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database %q not found", path), err)
	}
	if opts.Verify && len(args) == 0 {
		return formatter.Fail(ExitCommandError, ErrCodeUsage, "--verify requires a run id", nil)
	}
	if opts.Verify && opts.searching() {
		return formatter.Fail(ExitCommandError, ErrCodeUsage, "--verify cannot be combined with search filters", nil)
	}
	filter, err := opts.filter(args)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeUsage, "invalid search filter", err)
	}

	st, err := store.Open(path)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeReadFailed, "opening database", err)
	}
	defer st.Close()

	ctx := commandContext(cmd)
	formatter.VerboseLog("Reading %s", path)

	if filter != nil {
		found, err := st.FindActions(ctx, filter)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeReadFailed, "searching records", err)
		}
		out := HistoryMatches{Matches: make([]MatchSummary, 0, len(found))}
		for _, fa := range found {
			out.Matches = append(out.Matches, MatchSummary{
				RunID:         fa.RunID,
				Seq:           fa.Seq,
				RecordSummary: summarizeAction(fa.RunAction),
			})
		}
		return formatter.Success(out)
	}

	if len(args) == 0 {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeReadFailed, "listing runs", err)
		}
		list := HistoryList{Runs: make([]RunSummary, 0, len(runs))}
		for _, r := range runs {
			list.Runs = append(list.Runs, summarizeRun(r))
		}
		return formatter.Success(list)
	}

	id := args[0]
	run, actions, err := st.ReadRun(ctx, id)
	if errors.Is(err, store.ErrRunNotFound) {
		return formatter.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("run %q not found", id), nil)
	}
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeReadFailed, "reading run", err)
	}

	out := HistoryRun{Run: summarizeRun(run), Records: make([]RecordSummary, 0, len(actions))}
	for _, ra := range actions {
		out.Records = append(out.Records, summarizeAction(ra))
	}
	if opts.Verify {
		if err := st.VerifyRun(ctx, id); err != nil {
			return formatter.Fail(ExitFailure, ErrCodeGeneric, "verification failed", err)
		}
		out.Verified = true
	}
	return formatter.Success(out)
}

// filter builds the search predicate, or nil when no filter flag is set.
func (o *HistoryOptions) filter(args []string) (store.Predicate, error) {
	if !o.searching() {
		return nil, nil
	}
	var preds []store.Predicate
	if len(args) == 1 {
		preds = append(preds, store.Equals{Field: "run_id", Value: args[0]})
	}
	if o.Kind != "" {
		kind, err := ir.ParseKind(o.Kind)
		if err != nil {
			return nil, err
		}
		preds = append(preds, store.Equals{Field: "kind", Value: kind})
	}
	if o.Label != "" {
		preds = append(preds, store.Equals{Field: "label", Value: o.Label})
	}
	if o.RecordHash != "" {
		preds = append(preds, store.Equals{Field: "record_hash", Value: o.RecordHash})
	}
	return store.And{Predicates: preds}, nil
}

func summarizeAction(ra store.RunAction) RecordSummary {
	return RecordSummary{
		Position:   ra.Position,
		Kind:       ra.Record.Kind.String(),
		Label:      ra.Record.Label,
		Size:       ra.Record.Size(),
		RecordHash: ra.RecordHash,
	}
}

func summarizeRun(r store.Run) RunSummary {
	return RunSummary{
		ID:          r.ID,
		Seq:         r.Seq,
		Source:      r.Source,
		ActionCount: r.ActionCount,
		Header:      r.Header,
		StreamHash:  r.StreamHash,
	}
}
