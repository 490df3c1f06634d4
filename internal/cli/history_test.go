package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nmlc/internal/store"
)

func recordRun(t *testing.T) (db, runID string) {
	t.Helper()
	dir := t.TempDir()
	src := writeSource(t, dir, "demo.cue", grfSource)
	db = filepath.Join(dir, "runs.db")

	_, err := runCompileCmd(t, nil, "", src, "--db", db)
	require.NoError(t, err)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	runs, err := st.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	return db, runs[0].ID
}

func runHistoryCmd(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewHistoryCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestHistoryList(t *testing.T) {
	db, id := recordRun(t)

	out, err := runHistoryCmd(t, "text", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "3 action(s)")
}

func TestHistoryListJSON(t *testing.T) {
	db, id := recordRun(t)

	out, err := runHistoryCmd(t, "json", "--db", db)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   HistoryList `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Runs, 1)
	assert.Equal(t, id, resp.Data.Runs[0].ID)
	assert.Equal(t, int64(1), resp.Data.Runs[0].Seq)
	assert.NotEmpty(t, resp.Data.Runs[0].StreamHash)
}

func TestHistoryShowAndVerify(t *testing.T) {
	db, id := recordRun(t)

	out, err := runHistoryCmd(t, "json", "--db", db, id, "--verify")
	require.NoError(t, err)

	var resp struct {
		Data HistoryRun `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Data.Verified)
	require.Len(t, resp.Data.Records, 3)
	assert.Equal(t, "header", resp.Data.Records[0].Kind)
	assert.Equal(t, "entry_point", resp.Data.Records[1].Kind)
	assert.Equal(t, 2, resp.Data.Records[2].Size)
}

func TestHistoryVerifyDetectsTampering(t *testing.T) {
	db, id := recordRun(t)

	st, err := store.Open(db)
	require.NoError(t, err)
	_, err = st.DB().Exec(`UPDATE run_actions SET data = x'0D7E' WHERE run_id = ? AND position = 2`, id)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, err = runHistoryCmd(t, "text", "--db", db, id, "--verify")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestHistoryErrors(t *testing.T) {
	db, _ := recordRun(t)

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"no database", nil, ExitCommandError},
		{"missing database", []string{"--db", filepath.Join(t.TempDir(), "none.db")}, ExitCommandError},
		{"verify without id", []string{"--db", db, "--verify"}, ExitCommandError},
		{"unknown run", []string{"--db", db, "not-a-run"}, ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runHistoryCmd(t, "text", tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, GetExitCode(err))
		})
	}
}

func TestHistoryEmptyDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := runHistoryCmd(t, "text", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded")
}

func TestHistorySearch(t *testing.T) {
	db, id := recordRun(t)

	out, err := runHistoryCmd(t, "json", "--db", db, "--kind", "entry_point")
	require.NoError(t, err)

	var resp struct {
		Data HistoryMatches `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Matches, 1)
	assert.Equal(t, id, resp.Data.Matches[0].RunID)
	assert.Equal(t, 1, resp.Data.Matches[0].Position)
	assert.Equal(t, "Action8 4E4D4C01", resp.Data.Matches[0].Label)

	out, err = runHistoryCmd(t, "text", "--db", db, id, "--label", "no such label")
	require.NoError(t, err)
	assert.Contains(t, out, "No matching records")
}

func TestHistorySearchErrors(t *testing.T) {
	db, id := recordRun(t)

	_, err := runHistoryCmd(t, "text", "--db", db, "--kind", "sprite")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = runHistoryCmd(t, "text", "--db", db, id, "--verify", "--kind", "header")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
