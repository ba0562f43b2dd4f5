package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/san-kum/grfbalance/internal/sim"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return st
}

func testResult() *sim.Result {
	return &sim.Result{
		States: []sim.State{
			{1.0, 0.0},
			{0.9, -0.1},
		},
		Controls: []sim.Control{
			{0.5},
		},
		Times: []float64{0.0, 0.01},
		Metrics: map[string]float64{
			"control_effort": 1.5,
		},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := newTestStore(t)

	runID, err := st.Save(RunMetadata{Preset: "test", Seed: 42, Dt: 0.01, Duration: 1}, testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Preset != "test" {
		t.Errorf("expected preset 'test', got '%s'", meta.Preset)
	}
	if meta.Seed != 42 {
		t.Errorf("expected seed 42, got %d", meta.Seed)
	}
	if meta.Metrics["control_effort"] != 1.5 {
		t.Errorf("expected effort 1.5, got %f", meta.Metrics["control_effort"])
	}
	if len(meta.Columns) != 4 || meta.Columns[3] != "u0" {
		t.Errorf("expected generic columns, got %v", meta.Columns)
	}

	states, times, err := st.LoadStates(runID)
	if err != nil {
		t.Fatalf("load states failed: %v", err)
	}
	if len(states) != 2 || len(times) != 2 {
		t.Fatalf("expected 2 rows, got %d states and %d times", len(states), len(times))
	}
	if states[0][2] != 0.5 || states[1][2] != 0 {
		t.Errorf("unexpected control column: %v", states)
	}
}

func TestStoreNamedColumns(t *testing.T) {
	st := newTestStore(t)
	cols := Columns([]string{"FL"})
	if len(cols) != 17 {
		t.Fatalf("expected 17 columns, got %d", len(cols))
	}

	x := make(sim.State, 13)
	x[2] = 0.3
	result := &sim.Result{
		States:   []sim.State{x, x},
		Controls: []sim.Control{{0, 0, -20}},
		Times:    []float64{0, 0.002},
	}
	runID, err := st.Save(RunMetadata{Preset: "mini", Columns: cols}, result)
	if err != nil {
		t.Fatal(err)
	}

	times, z, err := st.LoadSeries(runID, "z")
	if err != nil {
		t.Fatal(err)
	}
	if len(times) != 2 || z[0] != 0.3 {
		t.Errorf("unexpected z series %v at %v", z, times)
	}
	_, fz, err := st.LoadSeries(runID, "FL_fz")
	if err != nil {
		t.Fatal(err)
	}
	if fz[0] != -20 || fz[1] != 0 {
		t.Errorf("unexpected force series %v", fz)
	}

	if _, _, err := st.LoadSeries(runID, "nope"); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("expected ErrUnknownColumn, got %v", err)
	}
}

func TestStoreList(t *testing.T) {
	st := newTestStore(t)

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	first, err := st.Save(RunMetadata{Preset: "a"}, testResult())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.Save(RunMetadata{Preset: "b"}, testResult()); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != first {
		t.Errorf("expected oldest run first, got %s", runs[0].ID)
	}
}

func TestStoreMissingRun(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.Load("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := st.LoadSeries("missing", "z"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreFileStructure(t *testing.T) {
	st := newTestStore(t)

	runID, err := st.Save(RunMetadata{Preset: "test"}, testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(st.baseDir, runID)
	if _, err := os.Stat(filepath.Join(runDir, "metadata.json")); os.IsNotExist(err) {
		t.Error("metadata.json not created")
	}
	if _, err := os.Stat(filepath.Join(runDir, "states.csv")); os.IsNotExist(err) {
		t.Error("states.csv not created")
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSON(&buf, RunMetadata{Preset: "test"}, testResult()); err != nil {
		t.Fatal(err)
	}
	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatal(err)
	}
	if data.Steps != 2 || data.Meta.Preset != "test" || len(data.Controls) != 1 {
		t.Errorf("unexpected export %+v", data)
	}
}
