package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gard/internal/sched"
	"gard/internal/trace"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, FileName), "")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	path, ok, err := Find(nested)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, FileName), path)
}

func TestDiscoverWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Discover(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Path)
	assert.Equal(t, 16, cfg.Ledger.BlockSize)
	assert.Equal(t, "memory", cfg.Ledger.Store)
	assert.Equal(t, "main", cfg.Ledger.DefaultSender)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	writeFile(t, path, `
[run]
main = "app.gard"

[scheduler]
clock = "virtual"
default_deadline = "250ms"

[ledger]
block_size = 4
store = "leveldb"
path = "chain"

[ledger.genesis]
alice = "1000"
bob = "340282366920938463463374607431768211456"

[trace]
level = "phase"
format = "ndjson"
output = "trace.ndjson"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "app.gard", cfg.Run.Main)
	assert.Equal(t, 4, cfg.Ledger.BlockSize)
	assert.Equal(t, "main", cfg.Ledger.DefaultSender, "default survives partial section")
	assert.Equal(t, filepath.Join(dir, "chain"), cfg.StorePath())

	so, err := cfg.SchedOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, sched.ClockVirtual, so.Clock)
	assert.Equal(t, 250*time.Millisecond, so.DefaultDeadline)

	g, err := cfg.GenesisBalances()
	require.NoError(t, err)
	assert.Equal(t, "1000", g["alice"].String())
	assert.Equal(t, "340282366920938463463374607431768211456", g["bob"].String())

	tc, err := cfg.TraceOptions()
	require.NoError(t, err)
	assert.Equal(t, trace.LevelPhase, tc.Level)
	assert.Equal(t, trace.FormatNDJSON, tc.Format)
	assert.Equal(t, filepath.Join(dir, "trace.ndjson"), tc.OutputPath)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"clock":    "[scheduler]\nclock = \"lunar\"\n",
		"deadline": "[scheduler]\ndefault_deadline = \"soon\"\n",
		"store":    "[ledger]\nstore = \"s3\"\n",
		"block":    "[ledger]\nblock_size = 0\n",
		"genesis":  "[ledger.genesis]\nalice = \"-5\"\n",
		"level":    "[trace]\nlevel = \"loud\"\n",
		"unknown":  "[ledger]\ncolour = \"red\"\n",
		"syntax":   "[ledger\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			writeFile(t, path, body)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), path)
		})
	}
}

func TestOpenStoreMemory(t *testing.T) {
	st, err := Default().OpenStore()
	require.NoError(t, err)
	blocks, err := st.Blocks()
	require.NoError(t, err)
	assert.Empty(t, blocks)
	require.NoError(t, st.Close())
}

func TestOpenStoreLevelDB(t *testing.T) {
	cfg := Default()
	cfg.Ledger.Store = "leveldb"
	cfg.Ledger.Path = filepath.Join(t.TempDir(), "chain")
	st, err := cfg.OpenStore()
	require.NoError(t, err)
	require.NoError(t, st.Close())
}
