package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/nmlc/internal/ir"
)

// Predicate filters stored records in FindActions.
//
// This is a sealed interface; Equals and And are the only implementations.
type Predicate interface {
	predicateNode()
}

// Equals matches records whose Field equals Value.
//
// Field is one of run_id, source, kind, label, record_hash. Value is a
// string, an int, a bool or an ir.Kind.
type Equals struct {
	Field string
	Value any
}

// And matches records satisfying every predicate. An empty And matches all.
type And struct {
	Predicates []Predicate
}

func (Equals) predicateNode() {}
func (And) predicateNode() {}

// queryColumns maps predicate fields to qualified columns. Fields outside
// this map are rejected, so no caller text reaches the SQL.
var queryColumns = map[string]string{
	"run_id":      "a.run_id",
	"source":      "r.source",
	"kind":        "a.kind",
	"label":       "a.label",
	"record_hash": "a.record_hash",
}

// FoundAction is a record matched by FindActions.
type FoundAction struct {
	RunID string
	Seq   int64
	RunAction
}

// compileQuery builds the FindActions statement. Results are always ordered
// by run seq, then position.
func compileQuery(filter Predicate) (string, []any, error) {
	where, params, err := compilePredicate(filter)
	if err != nil {
		return "", nil, err
	}
	sql := "SELECT a.run_id, r.seq, a.position, a.kind, a.label, a.data, a.record_hash" +
		" FROM run_actions a INNER JOIN runs r ON r.id = a.run_id" +
		" WHERE " + where +
		" ORDER BY r.seq ASC, a.position ASC"
	return sql, params, nil
}

// compilePredicate returns a WHERE fragment with ? placeholders; values are
// never interpolated.
func compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case Equals:
		return compileEquals(pred)
	case *Equals:
		return compileEquals(*pred)
	case And:
		return compileAnd(pred)
	case *And:
		return compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileEquals(eq Equals) (string, []any, error) {
	col, ok := queryColumns[eq.Field]
	if !ok {
		return "", nil, fmt.Errorf("unknown field %q", eq.Field)
	}
	param, err := toParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("field %s: %w", eq.Field, err)
	}
	return col + " = ?", []any{param}, nil
}

func compileAnd(and And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}
	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, ps, err := compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return "(" + strings.Join(parts, " AND ") + ")", params, nil
}

func toParam(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case ir.Kind:
		if !val.Valid() {
			return nil, fmt.Errorf("invalid kind %d", int(val))
		}
		return val.String(), nil
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	case bool:
		return val, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// FindActions returns every stored record matching filter across all runs.
// A nil filter matches everything.
func (s *Store) FindActions(ctx context.Context, filter Predicate) ([]FoundAction, error) {
	query, params, err := compileQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("find actions: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("find actions: %w", err)
	}
	defer rows.Close()

	found := []FoundAction{}
	for rows.Next() {
		var (
			fa   FoundAction
			kind string
		)
		if err := rows.Scan(&fa.RunID, &fa.Seq, &fa.Position, &kind, &fa.Record.Label, &fa.Record.Data, &fa.RecordHash); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		if fa.Record.Kind, err = ir.ParseKind(kind); err != nil {
			return nil, fmt.Errorf("run %s action %d: %w", fa.RunID, fa.Position, err)
		}
		found = append(found, fa)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}
	return found, nil
}
