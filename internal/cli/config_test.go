package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nmlc/internal/ir"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nmlc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ir.DefaultTempSlots, cfg.TempSlots)
	assert.False(t, cfg.Debug)
	assert.Empty(t, cfg.DisabledFormats)
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeConfig(t, `temp_slots: 8
debug: true
omit_nfo_labels: true
db: runs.db
disabled_formats: [grf, json]
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.TempSlots)
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.OmitNFOLabels)
	assert.Equal(t, "runs.db", cfg.Database)
	assert.Equal(t, []string{"grf", "json"}, cfg.DisabledFormats)
}

func TestLoadConfigEmptyFile(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, ir.DefaultTempSlots, cfg.TempSlots)
}

func TestLoadConfigUnknownField(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "temp_slot: 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "temp_slot")
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "temp_slots: 8\ndb: file.db\n")
	t.Setenv("NMLC_TEMP_SLOTS", "5")
	t.Setenv("NMLC_DISABLED_FORMATS", "grf,db")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.TempSlots)
	assert.Equal(t, "file.db", cfg.Database)
	assert.Equal(t, []string{"grf", "db"}, cfg.DisabledFormats)
}

func TestLoadConfigBadEnv(t *testing.T) {
	t.Setenv("NMLC_TEMP_SLOTS", "many")
	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, (&Config{TempSlots: 1}).Validate())
	assert.NoError(t, (&Config{TempSlots: ir.MaxTempSlots}).Validate())
	assert.Error(t, (&Config{TempSlots: 0}).Validate())
	assert.Error(t, (&Config{TempSlots: ir.MaxTempSlots + 1}).Validate())
}

func TestConfigFlagOverridesConfig(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "sw.cue", `blocks: [
	{kind: "switch", feature: "trains", id: 0, temps: ["a", "b"]},
]`)
	opts := &RootOptions{Format: "text", Config: &Config{TempSlots: 1}}

	_, err := runCompileCmd(t, opts, "", src, "--nfo", filepath.Join(dir, "sw.nfo"))
	require.Error(t, err, "one slot from config is not enough")

	opts = &RootOptions{Format: "text", Config: &Config{TempSlots: 1}}
	_, err = runCompileCmd(t, opts, "", src, "--nfo", filepath.Join(dir, "sw.nfo"), "--temp-slots", "2")
	require.NoError(t, err)
}
