package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/san-kum/grfbalance/internal/sim"
)

var (
	ErrNotFound      = errors.New("storage: run not found")
	ErrUnknownColumn = errors.New("storage: unknown column")
)

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Preset     string             `json:"preset"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Integrator string             `json:"integrator"`
	Controller string             `json:"controller"`
	Legs       []string           `json:"legs"`
	Columns    []string           `json:"columns"`
	Metrics    map[string]float64 `json:"metrics"`
	Solver     map[string]float64 `json:"solver,omitempty"`
}

// Columns names the states.csv columns for a body state and a stacked per-leg
// force command.
func Columns(legs []string) []string {
	cols := []string{"time", "x", "y", "z", "vx", "vy", "vz", "qw", "qx", "qy", "qz", "wx", "wy", "wz"}
	for _, leg := range legs {
		cols = append(cols, leg+"_fx", leg+"_fy", leg+"_fz")
	}
	return cols
}

// Save writes meta and the trajectory under a fresh run directory and
// returns the run id. meta.ID, Timestamp and Columns are filled in.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	now := s.now()
	meta.ID = fmt.Sprintf("%s_%s", meta.Preset, now.Format("20060102-150405.000"))
	meta.Timestamp = now
	if meta.Metrics == nil {
		meta.Metrics = result.Metrics
	}
	if len(result.States) > 0 && len(meta.Columns) != 1+len(result.States[0])+controlWidth(result) {
		meta.Columns = genericColumns(len(result.States[0]), controlWidth(result))
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", errors.Wrap(err, "storage: create run dir")
	}
	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeStates(filepath.Join(runDir, "states.csv"), meta.Columns, result); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func controlWidth(result *sim.Result) int {
	for _, u := range result.Controls {
		if len(u) > 0 {
			return len(u)
		}
	}
	return 0
}

func genericColumns(nx, nu int) []string {
	cols := []string{"time"}
	for i := 0; i < nx; i++ {
		cols = append(cols, fmt.Sprintf("x%d", i))
	}
	for i := 0; i < nu; i++ {
		cols = append(cols, fmt.Sprintf("u%d", i))
	}
	return cols
}

func writeJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "storage: create %s", filepath.Base(path))
	}
	defer f.Close()
	return encodeJSON(f, v)
}

func encodeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "storage: encode json")
}

func writeStates(path string, header []string, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "storage: create states.csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if len(result.States) == 0 {
		w.Flush()
		return w.Error()
	}
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, "storage: write header")
	}

	nu := controlWidth(result)
	for i := range result.States {
		row := []string{strconv.FormatFloat(result.Times[i], 'f', 6, 64)}
		for _, val := range result.States[i] {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}
		// The final state has no command of its own.
		if i < len(result.Controls) && len(result.Controls[i]) == nu {
			for _, val := range result.Controls[i] {
				row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
			}
		} else {
			for j := 0; j < nu; j++ {
				row = append(row, "0")
			}
		}
		if err := w.Write(row); err != nil {
			return errors.Wrap(err, "storage: write row")
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "storage: flush states.csv")
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, errors.Wrap(err, "storage: list runs")
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ErrNotFound, runID)
		}
		return nil, errors.Wrap(err, "storage: read metadata")
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrapf(err, "storage: decode metadata of %s", runID)
	}
	return &meta, nil
}

// LoadStates returns each row's values after the time column, and the times.
func (s *Store) LoadStates(runID string) ([][]float64, []float64, error) {
	_, records, err := s.records(runID)
	if err != nil {
		return nil, nil, err
	}

	times := make([]float64, 0, len(records))
	rows := make([][]float64, 0, len(records))
	for _, record := range records {
		if len(record) == 0 {
			continue
		}
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}
		row := make([]float64, 0, len(record)-1)
		for _, field := range record[1:] {
			val, err := strconv.ParseFloat(field, 64)
			if err != nil {
				val = 0
			}
			row = append(row, val)
		}
		times = append(times, t)
		rows = append(rows, row)
	}
	return rows, times, nil
}

// LoadSeries returns one named column against time.
func (s *Store) LoadSeries(runID, column string) ([]float64, []float64, error) {
	header, records, err := s.records(runID)
	if err != nil {
		return nil, nil, err
	}
	idx := -1
	for i, h := range header {
		if h == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, nil, errors.Wrapf(ErrUnknownColumn, "%q in %s", column, runID)
	}

	times := make([]float64, 0, len(records))
	values := make([]float64, 0, len(records))
	for _, record := range records {
		if idx >= len(record) {
			continue
		}
		t, err1 := strconv.ParseFloat(record[0], 64)
		v, err2 := strconv.ParseFloat(record[idx], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		times = append(times, t)
		values = append(values, v)
	}
	return times, values, nil
}

func (s *Store) records(runID string) ([]string, [][]string, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "states.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.Wrap(ErrNotFound, runID)
		}
		return nil, nil, errors.Wrap(err, "storage: open states.csv")
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, errors.Wrap(err, "storage: read states.csv")
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	return records[0], records[1:], nil
}
