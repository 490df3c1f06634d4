package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/nmlc/internal/ir"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// Run is a committed emission.
type Run struct {
	ID          string
	Seq         int64
	Source      string
	ActionCount int
	Header      bool
	StreamHash  string
}

// RunAction is one stored record of a run.
type RunAction struct {
	Position   int
	Record     ir.Record
	RecordHash string
}

// ListRuns returns every committed run ordered by seq.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, source, action_count, header, stream_hash
		FROM runs
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns a run and its records ordered by position.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, []RunAction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, source, action_count, header, stream_hash
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT position, kind, label, data, record_hash
		FROM run_actions
		WHERE run_id = ?
		ORDER BY position ASC
	`, id)
	if err != nil {
		return Run{}, nil, fmt.Errorf("query run actions: %w", err)
	}
	defer rows.Close()

	actions := []RunAction{}
	for rows.Next() {
		var (
			ra   RunAction
			kind string
		)
		if err := rows.Scan(&ra.Position, &kind, &ra.Record.Label, &ra.Record.Data, &ra.RecordHash); err != nil {
			return Run{}, nil, fmt.Errorf("scan run action: %w", err)
		}
		ra.Record.Kind, err = ir.ParseKind(kind)
		if err != nil {
			return Run{}, nil, fmt.Errorf("run action %d: %w", ra.Position, err)
		}
		actions = append(actions, ra)
	}
	if err := rows.Err(); err != nil {
		return Run{}, nil, fmt.Errorf("iterate run actions: %w", err)
	}
	return run, actions, nil
}

// VerifyRun recomputes every record hash and the stream hash of a run and
// reports the first mismatch.
func (s *Store) VerifyRun(ctx context.Context, id string) error {
	run, actions, err := s.ReadRun(ctx, id)
	if err != nil {
		return err
	}
	if len(actions) != run.ActionCount {
		return fmt.Errorf("run %s: %d records stored, %d expected", id, len(actions), run.ActionCount)
	}
	hashes := make([]string, len(actions))
	for i, ra := range actions {
		h, err := ir.RecordHash(ra.Position, ra.Record)
		if err != nil {
			return err
		}
		if h != ra.RecordHash {
			return fmt.Errorf("run %s: record %d hash mismatch", id, ra.Position)
		}
		hashes[i] = h
	}
	if got := ir.StreamHash(hashes); got != run.StreamHash {
		return fmt.Errorf("run %s: stream hash mismatch", id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	err := row.Scan(&run.ID, &run.Seq, &run.Source, &run.ActionCount, &run.Header, &run.StreamHash)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}
