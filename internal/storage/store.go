// Package storage persists prediction runs and reads state tables.
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

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/san-kum/psmcsim/internal/dynamo"
	"github.com/san-kum/psmcsim/internal/metrics"
	"github.com/san-kum/psmcsim/internal/physics"
	"github.com/san-kum/psmcsim/internal/states"
)

const (
	metadataFile     = "metadata.json"
	temperaturesFile = "temperatures.csv"
	statesFile       = "states.csv"
)

type Store struct {
	baseDir string
	log     logrus.FieldLogger
}

func New(baseDir string, log logrus.FieldLogger) *Store {
	if log == nil {
		quiet := logrus.New()
		quiet.SetOutput(io.Discard)
		log = quiet
	}
	return &Store{baseDir: baseDir, log: log}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string              `json:"id"`
	Timestamp  time.Time           `json:"timestamp"`
	Preset     string              `json:"preset,omitempty"`
	Params     physics.Params      `json:"params"`
	Solver     string              `json:"solver"`
	Dt         float64             `json:"dt"`
	PIN0       float64             `json:"pin0"`
	DEA0       float64             `json:"dea0"`
	TStart     float64             `json:"tstart"`
	TStop      float64             `json:"tstop"`
	Segments   int                 `json:"segments"`
	Samples    int                 `json:"samples"`
	Metrics    map[string]float64  `json:"metrics"`
	Violations []metrics.Violation `json:"violations,omitempty"`
}

// Save writes a run under a fresh id and returns it. Fields of meta derived
// from result and ss are filled in.
func (s *Store) Save(meta RunMetadata, result *dynamo.Result, ss []states.State) (string, error) {
	meta.ID = uuid.NewString()
	meta.Timestamp = time.Now().UTC()
	meta.TStart, meta.TStop = states.Span(ss)
	meta.Segments = result.Segments
	meta.Samples = result.Trajectory.Len()
	meta.Metrics = result.Metrics

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeFile(filepath.Join(runDir, metadataFile), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	}); err != nil {
		return "", err
	}

	if err := writeFile(filepath.Join(runDir, temperaturesFile), func(w io.Writer) error {
		return WriteTemperaturesCSV(w, result.Trajectory)
	}); err != nil {
		return "", err
	}

	if err := writeFile(filepath.Join(runDir, statesFile), func(w io.Writer) error {
		return WriteStatesCSV(w, ss)
	}); err != nil {
		return "", err
	}

	s.log.WithFields(logrus.Fields{
		"run":     meta.ID,
		"samples": meta.Samples,
		"dir":     runDir,
	}).Info("run saved")
	return meta.ID, nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// List returns saved runs, oldest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			s.log.WithError(err).WithField("dir", entry.Name()).Debug("skipping run directory")
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
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

// LoadTemperatures reads a run's trajectory back in internal units.
func (s *Store) LoadTemperatures(runID string) (*dynamo.Trajectory, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, temperaturesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ReadTemperaturesCSV(file)
}

// LoadRunStates reads the states a run was made from.
func (s *Store) LoadRunStates(runID string) ([]states.State, error) {
	return LoadStates(filepath.Join(s.baseDir, runID, statesFile))
}

// WriteTemperaturesCSV writes time and both nodes in degC.
func WriteTemperaturesCSV(w io.Writer, tr *dynamo.Trajectory) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", metrics.MSIDPIN, metrics.MSIDDEA}); err != nil {
		return err
	}

	for i := range tr.Times {
		t, x := tr.At(i)
		c := x.Celsius()
		row := []string{
			strconv.FormatFloat(t, 'f', 3, 64),
			strconv.FormatFloat(c[dynamo.NodePIN], 'g', -1, 64),
			strconv.FormatFloat(c[dynamo.NodeDEA], 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func ReadTemperaturesCSV(r io.Reader) (*dynamo.Trajectory, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return dynamo.NewTrajectory(0), nil
	}

	tr := dynamo.NewTrajectory(len(records) - 1)
	for i, record := range records[1:] {
		if len(record) < 3 {
			return nil, fmt.Errorf("temperatures row %d: expected 3 columns, got %d", i+1, len(record))
		}
		vals := make([]float64, 3)
		for j := range vals {
			if vals[j], err = strconv.ParseFloat(record[j], 64); err != nil {
				return nil, fmt.Errorf("temperatures row %d: %w", i+1, err)
			}
		}
		tr.Append(vals[0], dynamo.Vector{dynamo.ToInternal(vals[1]), dynamo.ToInternal(vals[2])})
	}
	return tr, nil
}
