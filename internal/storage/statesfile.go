package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/psmcsim/internal/dynamo"
	"github.com/san-kum/psmcsim/internal/power"
	"github.com/san-kum/psmcsim/internal/states"
)

var stateColumns = []string{"tstart", "tstop", "power", "pitch", "simpos", "fep_count", "vid_board", "clocking", "obsid"}

// LoadStates reads a YAML or CSV state table, chosen by extension. States
// without a power value get it from their commanded ACIS configuration via
// power.Default; a state with neither is rejected.
func LoadStates(path string) ([]states.State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var (
		ss     []states.State
		fields []StateFields
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		ss, fields, err = ReadStatesYAML(f)
	case ".csv", ".dat", ".txt":
		ss, fields, err = ReadStatesCSV(f)
	default:
		return nil, fmt.Errorf("unsupported state file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	keep := make([]bool, len(ss))
	for i, sf := range fields {
		if !sf.Power && !sf.Mode {
			return nil, fmt.Errorf("%s: state %d: %w: no power and no fep_count/vid_board/clocking",
				path, i, dynamo.ErrUnknownOperatingMode)
		}
		keep[i] = sf.Power
	}
	if ss, err = power.Default.Resolve(ss, keep); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ss, nil
}

// StateFields records which optional values a state table supplied for one
// state. Mode is set only when fep_count, vid_board and clocking are all
// present.
type StateFields struct {
	Power bool
	Mode  bool
}

type yamlState struct {
	Start    float64  `yaml:"tstart"`
	Stop     float64  `yaml:"tstop"`
	Power    *float64 `yaml:"power"`
	Pitch    float64  `yaml:"pitch"`
	SimPos   float64  `yaml:"simpos"`
	FEPCount *int     `yaml:"fep_count"`
	VidBoard *int     `yaml:"vid_board"`
	Clocking *int     `yaml:"clocking"`
	ObsID    int      `yaml:"obsid"`
}

func intOr0(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// ReadStatesYAML accepts either a bare list of states or a mapping with a
// "states" key.
func ReadStatesYAML(r io.Reader) ([]states.State, []StateFields, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}

	var list []yamlState
	if err := yaml.Unmarshal(data, &list); err != nil {
		var doc struct {
			States []yamlState `yaml:"states"`
		}
		if err2 := yaml.Unmarshal(data, &doc); err2 != nil {
			return nil, nil, err
		}
		list = doc.States
	}

	ss := make([]states.State, len(list))
	fields := make([]StateFields, len(list))
	for i, ys := range list {
		ss[i] = states.State{
			Start:    ys.Start,
			Stop:     ys.Stop,
			Pitch:    ys.Pitch,
			SimPos:   ys.SimPos,
			FEPCount: intOr0(ys.FEPCount),
			VidBoard: intOr0(ys.VidBoard),
			Clocking: intOr0(ys.Clocking),
			ObsID:    ys.ObsID,
		}
		fields[i].Mode = ys.FEPCount != nil && ys.VidBoard != nil && ys.Clocking != nil
		if ys.Power != nil {
			ss[i].Power = *ys.Power
			fields[i].Power = true
		}
	}
	return ss, fields, nil
}

// ReadStatesCSV reads a headed table. Columns are matched by name; tstart,
// tstop, pitch and simpos are required. Empty cells in the other columns
// count as absent.
func ReadStatesCSV(r io.Reader) ([]states.State, []StateFields, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty state table")
	}

	cols := make(map[string]int)
	for i, name := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, req := range []string{"tstart", "tstop", "pitch", "simpos"} {
		if _, ok := cols[req]; !ok {
			return nil, nil, fmt.Errorf("state table missing column %q", req)
		}
	}

	ss := make([]states.State, 0, len(records)-1)
	fields := make([]StateFields, 0, len(records)-1)
	for i, record := range records[1:] {
		var present [9]bool
		var vals [9]float64
		for k, name := range stateColumns {
			j, ok := cols[name]
			if !ok || j >= len(record) {
				continue
			}
			cell := strings.TrimSpace(record[j])
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("row %d column %s: %w", i+1, name, err)
			}
			vals[k], present[k] = v, true
		}
		for _, k := range []int{0, 1, 3, 4} {
			if !present[k] {
				return nil, nil, fmt.Errorf("row %d: empty %s", i+1, stateColumns[k])
			}
		}

		ss = append(ss, states.State{
			Start:    vals[0],
			Stop:     vals[1],
			Power:    vals[2],
			Pitch:    vals[3],
			SimPos:   vals[4],
			FEPCount: int(vals[5]),
			VidBoard: int(vals[6]),
			Clocking: int(vals[7]),
			ObsID:    int(vals[8]),
		})
		fields = append(fields, StateFields{
			Power: present[2],
			Mode:  present[5] && present[6] && present[7],
		})
	}
	return ss, fields, nil
}

func WriteStatesCSV(w io.Writer, ss []states.State) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(stateColumns); err != nil {
		return err
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, s := range ss {
		row := []string{
			f(s.Start), f(s.Stop), f(s.Power), f(s.Pitch), f(s.SimPos),
			strconv.Itoa(s.FEPCount), strconv.Itoa(s.VidBoard), strconv.Itoa(s.Clocking), strconv.Itoa(s.ObsID),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
