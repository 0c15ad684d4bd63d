package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/mealbook/internal/diary"
	"github.com/mesh-intelligence/mealbook/internal/export"
	"github.com/mesh-intelligence/mealbook/internal/snapshot"
	"github.com/mesh-intelligence/mealbook/pkg/types"
)

// testEnv points every directory of an invocation into a temp dir.
type testEnv struct {
	root      string
	configDir string
	dataDir   string
	exportDir string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	root := t.TempDir()
	return testEnv{
		root:      root,
		configDir: filepath.Join(root, "config"),
		dataDir:   filepath.Join(root, "data"),
		exportDir: filepath.Join(root, "trackers"),
	}
}

// run executes one mealbook invocation in-process and returns stdout.
func (e testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{
		"--config-dir", e.configDir,
		"--data-dir", e.dataDir,
		"--export-dir", e.exportDir,
		"--log-level", "error",
	}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "mealbook %v", args)
	return out
}

func (e testEnv) listJSON(t *testing.T, args ...string) types.MealsByDate {
	t.Helper()
	out := e.mustRun(t, append([]string{"list", "--json"}, args...)...)
	var c types.MealsByDate
	require.NoError(t, json.Unmarshal([]byte(out), &c))
	return c
}

func (e testEnv) addMeal(t *testing.T, date, clock, desc string, calories string) {
	t.Helper()
	e.mustRun(t, "add", "--date", date, "--time", clock, "--desc", desc, "--calories", calories)
}

func TestInit(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "init")
	assert.Contains(t, out, "mealbook initialized")

	assert.FileExists(t, filepath.Join(env.configDir, "config.yaml"))
	assert.FileExists(t, filepath.Join(env.dataDir, "meals.jsonl"))
	assert.DirExists(t, env.exportDir)
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun(t, "version")
	assert.Contains(t, out, "mealbook v")
	assert.Contains(t, out, modulePath)
}

func TestAddAndList(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "add", "--date", "2025-12-03", "--time", "08:15", "--desc", "Oatmeal",
		"--calories", "350", "--ingredient", "Oats:0.5:cup", "--source", "ingredients")

	c := env.listJSON(t, "2025-12-03")
	require.Len(t, c["2025-12-03"], 1)
	m := c["2025-12-03"][0]
	assert.Equal(t, "Oatmeal", m.Description)
	assert.Equal(t, 350.0, m.Nutrition.Calories)
	assert.Equal(t, []types.Ingredient{{Name: "Oats", Quantity: 0.5, Measurement: "cup"}}, m.Ingredients)
	assert.Equal(t, 8, m.Timestamp.Hour())
	assert.Equal(t, 15, m.Timestamp.Minute())
	assert.Positive(t, int64(m.ID))

	out := env.mustRun(t, "list", "2025-12-03")
	assert.Contains(t, out, "Oatmeal")
	assert.Contains(t, out, "08:15")
}

func TestAddRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "add", "--date", "2025-12-03")
	require.ErrorIs(t, err, types.ErrInvalidData)
	assert.Equal(t, exitUserError, exitCode(err))

	_, err = env.run(t, "add", "--date", "12/03/2025", "--desc", "x")
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(err))

	_, err = env.run(t, "add", "--desc", "x", "--ingredient", "Oats:lots:cup")
	require.ErrorIs(t, err, types.ErrInvalidData)
}

func TestMigrateStore(t *testing.T) {
	env := newTestEnv(t)
	env.addMeal(t, "2024-12-04", "08:00", "Breakfast", "300")
	env.addMeal(t, "2024-12-04", "12:30", "Lunch", "600")
	before := env.listJSON(t, "2024-12-04")["2024-12-04"]
	require.Len(t, before, 2)

	out := env.mustRun(t, "migrate", "2024-12-04", "2025-12-03")
	assert.Contains(t, out, "migrated 2 meals from 2024-12-04 to 2025-12-03")

	c := env.listJSON(t, "--start", "2024-12-01", "--end", "2025-12-31")
	assert.Empty(t, c["2024-12-04"])
	moved := c["2025-12-03"]
	require.Len(t, moved, 2)
	for i, m := range moved {
		assert.Equal(t, "2025-12-03", m.Date)
		assert.Equal(t, before[i].Description, m.Description)
		assert.Equal(t, before[i].Timestamp.Format("15:04"), m.Timestamp.Format("15:04"))
		assert.NotEqual(t, before[0].ID, m.ID)
		assert.NotEqual(t, before[1].ID, m.ID)
	}
}

func TestMigrateStoreWithExport(t *testing.T) {
	env := newTestEnv(t)
	env.addMeal(t, "2024-12-04", "08:00", "Breakfast", "300")

	out := env.mustRun(t, "--json", "migrate", "2024-12-04", "2025-12-03", "--export")
	var res struct {
		diary.MigrateResult
		Export *export.Result `json:"export"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.Migrated)
	assert.True(t, res.Atomic)
	assert.NotEmpty(t, res.OperationID)
	require.NotNil(t, res.Export)
	assert.True(t, res.Export.Success)
	assert.FileExists(t, filepath.Join(env.exportDir, "2025-12.xlsx"))
}

func TestMigrateEmptySourceIsNoop(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun(t, "migrate", "2024-12-04", "2025-12-03")
	assert.Contains(t, out, "migrated 0 meals")
}

func TestMigrateBadDate(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "migrate", "2024-13-04", "2025-12-03")
	require.ErrorIs(t, err, types.ErrInvalidDate)
	assert.Equal(t, exitUserError, exitCode(err))

	_, err = env.run(t, "migrate", "2025-12-03")
	require.Error(t, err)
}

func writeCollection(t *testing.T, path string, c types.MealsByDate) {
	t.Helper()
	require.NoError(t, snapshot.Save(path, c))
}

func fileRecord(id types.MealID, date, clock, desc string) types.MealRecord {
	ts, _ := time.Parse("2006-01-02 15:04", date+" "+clock)
	return types.MealRecord{
		ID: id, Date: date, Timestamp: ts, Description: desc,
		Nutrition: types.Nutrition{Calories: 100}, Source: types.SourceManual,
		Ingredients: []types.Ingredient{},
	}
}

func TestMigrateFromFile(t *testing.T) {
	env := newTestEnv(t)
	in := filepath.Join(env.root, "meals.json")
	out := filepath.Join(env.root, "migrated.json")
	writeCollection(t, in, types.MealsByDate{
		"2024-12-04": {fileRecord(1, "2024-12-04", "08:00", "Breakfast"), fileRecord(2, "2024-12-04", "19:00", "Dinner")},
		"2025-12-03": {fileRecord(3, "2025-12-03", "07:00", "Coffee")},
	})

	stdout := env.mustRun(t, "migrate", "2024-12-04", "2025-12-03",
		"--from-file", in, "--snapshot", out, "--export")
	assert.Contains(t, stdout, "migrate: 2 meals")

	c, err := snapshot.Load(out)
	require.NoError(t, err)
	assert.Empty(t, c["2024-12-04"])
	require.Len(t, c["2025-12-03"], 3)
	assert.Equal(t, "Coffee", c["2025-12-03"][0].Description)
	assert.Equal(t, "Breakfast", c["2025-12-03"][1].Description)
	assert.FileExists(t, filepath.Join(env.exportDir, "2025-12.xlsx"))

	orig, err := snapshot.Load(in)
	require.NoError(t, err)
	assert.Len(t, orig["2024-12-04"], 2, "input file is left untouched")
}

func TestCopyAndClearStore(t *testing.T) {
	env := newTestEnv(t)
	env.addMeal(t, "2025-12-01", "08:00", "Eggs", "200")

	out := env.mustRun(t, "copy", "2025-12-01", "2025-12-02")
	assert.Contains(t, out, "copied 1 meals")

	c := env.listJSON(t, "--start", "2025-12-01", "--end", "2025-12-02")
	require.Len(t, c["2025-12-01"], 1)
	require.Len(t, c["2025-12-02"], 1)
	assert.NotEqual(t, c["2025-12-01"][0].ID, c["2025-12-02"][0].ID)

	out = env.mustRun(t, "clear", "2025-12-02")
	assert.Contains(t, out, "cleared 1 meals from 2025-12-02")
	c = env.listJSON(t, "--start", "2025-12-01", "--end", "2025-12-02")
	assert.Len(t, c["2025-12-01"], 1)
	assert.Empty(t, c["2025-12-02"])
}

func TestClearFromFile(t *testing.T) {
	env := newTestEnv(t)
	in := filepath.Join(env.root, "meals.json")
	out := filepath.Join(env.root, "cleared.json")
	writeCollection(t, in, types.MealsByDate{
		"2025-12-01": {fileRecord(1, "2025-12-01", "08:00", "Eggs")},
		"2025-12-02": {fileRecord(2, "2025-12-02", "08:00", "Toast")},
	})

	env.mustRun(t, "clear", "2025-12-02", "--from-file", in, "--snapshot", out)

	c, err := snapshot.Load(out)
	require.NoError(t, err)
	assert.Len(t, c["2025-12-01"], 1)
	assert.Empty(t, c["2025-12-02"])
}

func TestApply(t *testing.T) {
	env := newTestEnv(t)
	env.addMeal(t, "2025-12-01", "08:00", "Eggs", "200")

	steps := filepath.Join(env.root, "steps.yaml")
	require.NoError(t, os.WriteFile(steps, []byte(`steps:
  - {op: copy, source: 2025-12-01, target: 2025-12-02}
  - {op: copy, source: 2025-12-02, target: 2025-12-03}
  - {op: clear, date: 2025-12-03}
`), 0o644))

	out := env.mustRun(t, "--json", "apply", steps)
	var res diary.ApplyResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Len(t, res.Steps, 3)
	assert.Equal(t, map[string]int{"2025-12-01": 1, "2025-12-02": 1, "2025-12-03": 0}, res.Final)
}

func TestApplyStopsAtFirstFailure(t *testing.T) {
	env := newTestEnv(t)
	steps := filepath.Join(env.root, "steps.json")
	require.NoError(t, os.WriteFile(steps, []byte(`[
  {"op": "clear", "date": "2025-12-01"},
  {"op": "explode", "date": "2025-12-01"},
  {"op": "clear", "date": "2025-12-02"}
]`), 0o644))

	out, err := env.run(t, "apply", steps)
	require.ErrorIs(t, err, types.ErrInvalidData)
	assert.Contains(t, out, "ran 2 of 3 steps")
}

func TestReadStepsRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steps.yaml")
	require.NoError(t, os.WriteFile(path, []byte("steps: []\n"), 0o644))
	_, err := readSteps(path)
	assert.ErrorIs(t, err, types.ErrInvalidData)
}

func TestExport(t *testing.T) {
	env := newTestEnv(t)
	env.addMeal(t, "2025-12-01", "08:00", "Eggs", "200")
	env.addMeal(t, "2025-12-02", "08:00", "Toast", "150")

	out := env.mustRun(t, "--json", "export", "--start", "2025-12-01", "--end", "2025-12-31")
	var res export.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Success)
	assert.Equal(t, "2025-12.xlsx", res.Filename)
	assert.Equal(t, 2, res.TotalSheets)
	assert.Equal(t, 2, res.TotalMeals)

	out = env.mustRun(t, "export", "--start", "2025-12-01", "--end", "2025-12-31")
	assert.Contains(t, out, "skipped 2 dates already in the workbook")
}

func TestExportNothing(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "export", "--start", "2025-12-01", "--end", "2025-12-31")
	require.ErrorIs(t, err, types.ErrNothingToExport)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestExportWorkbookMustStayInExportDir(t *testing.T) {
	env := newTestEnv(t)
	env.addMeal(t, "2025-12-01", "08:00", "Eggs", "200")

	outside := filepath.Join(env.root, "outside.xlsx")
	_, err := env.run(t, "export", "--workbook", outside)
	require.ErrorIs(t, err, types.ErrInvalidData)
	assert.Equal(t, exitUserError, exitCode(err))
	assert.NoFileExists(t, outside)

	env.mustRun(t, "export", "--workbook", "mine.xlsx")
	assert.FileExists(t, filepath.Join(env.exportDir, "mine.xlsx"))
}

func TestExportFromFile(t *testing.T) {
	env := newTestEnv(t)
	in := filepath.Join(env.root, "meals.json")
	writeCollection(t, in, types.MealsByDate{
		"2025-11-30": {fileRecord(1, "2025-11-30", "08:00", "Eggs")},
	})

	env.mustRun(t, "export", "--from-file", in, "--filename", "november")
	assert.FileExists(t, filepath.Join(env.exportDir, "november.xlsx"))
}

func TestSnapshotAndImport(t *testing.T) {
	src := newTestEnv(t)
	src.addMeal(t, "2025-12-01", "08:00", "Eggs", "200")
	src.addMeal(t, "2025-12-02", "12:00", "Soup", "400")

	file := filepath.Join(src.root, "snap.json")
	out := src.mustRun(t, "snapshot", "-o", file)
	assert.Contains(t, out, "wrote 2 meals")

	dst := newTestEnv(t)
	out = dst.mustRun(t, "import", file)
	assert.Contains(t, out, "imported 2 meals")
	c := dst.listJSON(t, "--start", "2025-12-01", "--end", "2025-12-02")
	assert.Equal(t, 2, c.Count())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitSuccess},
		{"invalid date", types.ErrInvalidDate, exitUserError},
		{"plain", errors.New("boom"), exitUserError},
		{"store", &types.StoreError{Op: "add", ID: 1, Err: errors.New("disk")}, exitSysError},
		{"filesystem", &export.FilesystemError{Op: "write", Path: "x", Err: errors.New("ro")}, exitSysError},
		{"system", sysErr(errors.New("attach")), exitSysError},
		{"duplicate id", &types.StoreError{Op: "add", ID: 5, Err: types.ErrDuplicateID}, exitUserError},
		{"wrapped duplicate id", fmt.Errorf("copy: %w", &types.StoreError{Op: "add", ID: 5, Err: types.ErrDuplicateID}), exitUserError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestParseIngredient(t *testing.T) {
	ing, err := parseIngredient("Rice:1.5:cup")
	require.NoError(t, err)
	assert.Equal(t, types.Ingredient{Name: "Rice", Quantity: 1.5, Measurement: "cup"}, ing)

	ing, err = parseIngredient("Salt:1:pinch:of")
	require.NoError(t, err)
	assert.Equal(t, "pinch:of", ing.Measurement)

	for _, bad := range []string{"Rice", ":1:cup", "Rice:-1:cup", "Rice:x:cup"} {
		_, err := parseIngredient(bad)
		assert.ErrorIs(t, err, types.ErrInvalidData, bad)
	}
}
