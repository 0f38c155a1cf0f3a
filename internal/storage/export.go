package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/psmcsim/internal/dynamo"
	"github.com/san-kum/psmcsim/internal/metrics"
)

// ExportData is the JSON form of a run with its temperatures in degC.
type ExportData struct {
	Run   RunMetadata `json:"run"`
	Times []float64   `json:"times"`
	PIN   []float64   `json:"1pin1at"`
	DEA   []float64   `json:"1pdeaat"`
}

func ExportJSON(w io.Writer, meta RunMetadata, tr *dynamo.Trajectory) error {
	data := ExportData{
		Run:   meta,
		Times: tr.Times,
		PIN:   tr.Channel(dynamo.NodePIN, true),
		DEA:   tr.Channel(dynamo.NodeDEA, true),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportViolations writes planning-limit violations as JSON lines.
func ExportViolations(w io.Writer, viols []metrics.Violation) error {
	enc := json.NewEncoder(w)
	for _, v := range viols {
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return nil
}
