package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const filingCSV = `Firm,Annual fee threshold 1,Annual fee Threshold 2
Acme Advisors,$0+ (1.00%),"$1,000,000+ (0.75%)"
Beta Wealth,$0+ (0.32% - 2.50%),
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("NATS_URL", "")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestEffectiveFeeCmd(t *testing.T) {
	out, err := run(t, "effective-fee", "--product", "($0+) (1.00%); ($1,000,000+) (0.75%)", "--value", "10000000")
	require.NoError(t, err)
	assert.Contains(t, out, `"annual_fee": "77500"`)

	_, err = run(t, "effective-fee", "--product", "($0+) (1.00%)", "--value", "lots")
	assert.ErrorContains(t, err, "invalid --value")

	_, err = run(t, "effective-fee", "--value", "100")
	assert.Error(t, err)
}

func TestProcessAndConsolidateCmd(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(in, "a.csv"), []byte(filingCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "b.csv"), []byte(filingCSV), 0o644))

	stdout, err := run(t, "process", "--no-ledger", "--consolidate", "-i", in, "-o", out, "-w", "2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "processed 2, skipped 0, failed 0")
	assert.Contains(t, stdout, "consolidated 4 rows")

	assert.FileExists(t, filepath.Join(out, "processed_a.csv"))
	assert.FileExists(t, filepath.Join(out, "consolidated_output.csv"))

	stdout, err = run(t, "consolidate", "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "consolidated 4 rows")
}

func TestProcessCmd_ReportsFailures(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(in, "broken.csv"), []byte("Firm\nAcme\n"), 0o644))

	stdout, err := run(t, "process", "--no-ledger", "-i", in, "-o", out)
	assert.ErrorContains(t, err, "1 file(s) failed")
	assert.Contains(t, stdout, "failed: broken.csv")
}

func TestConsolidateCmd_NothingToDo(t *testing.T) {
	_, err := run(t, "consolidate", "-o", t.TempDir())
	assert.ErrorContains(t, err, "no processed files")
}
