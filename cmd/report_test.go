package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portlogistics/portplan/core/model"
)

const testSeed = `docks:
  - code: D1
    allowed_vessel_type_ids: [container]
  - code: D2
    allowed_vessel_type_ids: [container]
vessels:
  - imo: "9000001"
    name: Atlantic
    vessel_type_id: container
vvns:
  - id: vvn-1
    day: "2025-01-10"
    vessel_imo: "9000001"
    eta: 0
    etd: 8
    loading_duration: 2
    unloading_duration: 1
`

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	seed := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(testSeed), 0o644))
	cfg := "directory:\n  path: " + seed + "\naudit:\n  backend: memory\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	reportOut, reportFormat, compareAlgorithm, planFile = "", "json", "", ""
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", "--config", writeConfig(t))
	require.NoError(t, err)
	assert.Contains(t, out, "config ok")
}

func TestExportCommand(t *testing.T) {
	out, err := execute(t, "export", "--config", writeConfig(t), "--day", "2025-01-10")
	require.NoError(t, err)
	var got struct {
		Day        string           `json:"day"`
		Operations []map[string]any `json:"operations"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "2025-01-10", got.Day)
	assert.Len(t, got.Operations, 1)
}

func TestCompareCommand_CSVToFile(t *testing.T) {
	cfg := writeConfig(t)
	dest := filepath.Join(t.TempDir(), "cmp.csv")
	_, err := execute(t, "compare", "--config", cfg, "--day", "2025-01-10", "--format", "csv", "--out", dest)
	require.NoError(t, err)
	b, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(b), "greedy")
}

func TestRebalanceCommand_NoPlan(t *testing.T) {
	_, err := execute(t, "rebalance", "--config", writeConfig(t), "--day", "2025-01-10")
	require.ErrorIs(t, err, model.ErrPlanNotFound)
}

func TestExportCommand_UnsupportedFormat(t *testing.T) {
	_, err := execute(t, "export", "--config", writeConfig(t), "--day", "2025-01-10", "--format", "html")
	require.ErrorContains(t, err, "unsupported format")
}

func TestValidateCommand_PlanFile(t *testing.T) {
	cfg := writeConfig(t)
	plan := `{"operations":[
	  {"vvnId":"a","vessel":"A","dock":"D1","crane":"C1","startTime":0,"endTime":4,"craneCountUsed":1,"totalCranesOnDock":1},
	  {"vvnId":"b","vessel":"B","dock":"D1","crane":"C1","startTime":2,"endTime":6,"craneCountUsed":1,"totalCranesOnDock":1}
	]}`
	path := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, os.WriteFile(path, []byte(plan), 0o644))

	out, err := execute(t, "validate", "--config", cfg, "-f", path)
	require.ErrorContains(t, err, model.CodeCraneCapacityExceeded)
	assert.Contains(t, out, model.CodeCraneOverlap)
}
