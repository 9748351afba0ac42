package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/adsorb/internal/dynamo"
	"github.com/san-kum/adsorb/internal/sim"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
)

// Store keeps one directory per uptake run below baseDir.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata describes the binding point a run was computed at.
type RunMetadata struct {
	ID         string             `json:"id"`
	Model      string             `json:"model"`
	Timestamp  time.Time          `json:"timestamp"`
	NComp      int                `json:"ncomp"`
	NBound     []int              `json:"nbound"`
	Point      dynamo.Point       `json:"point"`
	Liquid     []float64          `json:"liquid"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Tolerance  float64            `json:"tolerance"`
	UseAD      bool               `json:"use_ad"`
	Iterations int                `json:"iterations"`
	Metrics    map[string]float64 `json:"metrics"`
	Parameters map[string]any     `json:"parameters,omitempty"`
}

// Columns names the bound states of a layout: q<comp> for a single bound
// state, q<comp>_<k> when a component binds in several states.
func Columns(nBound []int) []string {
	var cols []string
	for c, n := range nBound {
		for k := 0; k < n; k++ {
			if n == 1 {
				cols = append(cols, fmt.Sprintf("q%d", c))
			} else {
				cols = append(cols, fmt.Sprintf("q%d_%d", c, k))
			}
		}
	}
	return cols
}

// Save writes metadata.json and states.csv into a new run directory. ID,
// Timestamp, Iterations and Metrics of meta are filled in from the run.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	if len(result.Times) != len(result.States) {
		return "", fmt.Errorf("%w: %d times for %d states", dynamo.ErrDimensionMismatch, len(result.Times), len(result.States))
	}

	now := time.Now()
	runID := fmt.Sprintf("%s_%d", strings.ToLower(meta.Model), now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = now
	meta.Iterations = result.Iterations
	meta.Metrics = result.Metrics

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeStates(filepath.Join(runDir, statesFile), Columns(meta.NBound), result); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeStates(path string, cols []string, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if len(result.States) > 0 {
		if len(cols) != len(result.States[0]) {
			cols = Columns([]int{len(result.States[0])})
		}
		if err := w.Write(append([]string{"time"}, cols...)); err != nil {
			return err
		}
	}

	row := make([]string, 0, len(cols)+1)
	for i, q := range result.States {
		row = append(row[:0], strconv.FormatFloat(result.Times[i], 'g', -1, 64))
		for _, v := range q {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the metadata of every readable run. Directories without
// valid metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if errors.Is(err, fs.ErrNotExist) {
		return []RunMetadata{}, nil
	}
	if err != nil {
		return nil, err
	}

	runs := make([]RunMetadata, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if meta, err := s.Load(entry.Name()); err == nil {
			runs = append(runs, *meta)
		}
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadStates reads the bound phase trajectory of a run. Every row must
// match the header width.
func (s *Store) LoadStates(runID string) ([]dynamo.State, []float64, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("run %s: %w", runID, err)
	}
	if len(records) < 2 {
		return []dynamo.State{}, []float64{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	states := make([]dynamo.State, 0, len(records)-1)
	for i, record := range records[1:] {
		vals := make([]float64, len(record))
		for j, field := range record {
			if vals[j], err = strconv.ParseFloat(field, 64); err != nil {
				return nil, nil, fmt.Errorf("%s line %d: %w", statesFile, i+2, err)
			}
		}
		times = append(times, vals[0])
		states = append(states, dynamo.State(vals[1:]))
	}
	return states, times, nil
}
