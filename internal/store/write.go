package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/nmlc/internal/ir"
	"github.com/roach88/nmlc/internal/sink"
)

// RunSink writes one emitted stream as a run. It implements ir.Sink and
// ir.Discarder: Close commits the run, Discard rolls it back.
type RunSink struct {
	ctx    context.Context
	store  *Store
	owned  bool
	tx     *sql.Tx
	id     string
	seq    int64
	hashes []string
	header bool
	done   bool
}

// BeginRun starts a run for source. The transaction stays open until the
// sink is released.
func (s *Store) BeginRun(ctx context.Context, source string) (*RunSink, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("begin run: generate id: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("begin run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, seq, source)
		VALUES (?, ?, ?)
	`, id.String(), seq, source)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("begin run: %w", err)
	}

	return &RunSink{ctx: ctx, store: s, tx: tx, id: id.String(), seq: seq}, nil
}

// Factory returns a sink.Factory that opens the database at the output path
// and records one run for source. The database is closed with the sink.
func Factory(ctx context.Context, source string) sink.Factory {
	return func(path string) (ir.Sink, error) {
		st, err := Open(path)
		if err != nil {
			return nil, err
		}
		rs, err := st.BeginRun(ctx, source)
		if err != nil {
			st.Close()
			return nil, err
		}
		rs.owned = true
		return rs, nil
	}
}

// ID returns the run id.
func (r *RunSink) ID() string {
	return r.id
}

// Seq returns the run's logical sequence number.
func (r *RunSink) Seq() int64 {
	return r.seq
}

func (r *RunSink) Name() string {
	return "db:" + r.id
}

func (r *RunSink) WriteRecord(rec ir.Record) error {
	if r.done {
		return fmt.Errorf("%s: %w", r.Name(), sink.ErrReleased)
	}
	position := len(r.hashes)
	hash, err := ir.RecordHash(position, rec)
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	data := rec.Data
	if data == nil {
		data = []byte{}
	}
	_, err = r.tx.ExecContext(r.ctx, `
		INSERT INTO run_actions (run_id, position, kind, label, data, record_hash)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.id, position, rec.Kind.String(), rec.Label, data, hash)
	if err != nil {
		return fmt.Errorf("write record %d: %w", position, err)
	}

	r.hashes = append(r.hashes, hash)
	if rec.Kind == ir.KindHeader {
		r.header = true
	}
	return nil
}

// Close stores the run totals and commits.
func (r *RunSink) Close() error {
	if r.done {
		return nil
	}
	r.done = true

	_, err := r.tx.ExecContext(r.ctx, `
		UPDATE runs SET action_count = ?, header = ?, stream_hash = ?
		WHERE id = ?
	`, len(r.hashes), r.header, ir.StreamHash(r.hashes), r.id)
	if err != nil {
		r.tx.Rollback()
		return errors.Join(fmt.Errorf("close run: %w", err), r.closeStore())
	}
	if err := r.tx.Commit(); err != nil {
		return errors.Join(fmt.Errorf("commit run: %w", err), r.closeStore())
	}

	slog.Debug("run recorded", "run", r.id, "seq", r.seq, "records", len(r.hashes))
	return r.closeStore()
}

// Discard rolls the run back.
func (r *RunSink) Discard() error {
	if r.done {
		return nil
	}
	r.done = true
	err := r.tx.Rollback()
	return errors.Join(err, r.closeStore())
}

func (r *RunSink) closeStore() error {
	if !r.owned {
		return nil
	}
	return r.store.Close()
}
