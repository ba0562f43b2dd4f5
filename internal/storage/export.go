package storage

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/san-kum/grfbalance/internal/sim"
)

type ExportData struct {
	Meta     RunMetadata        `json:"meta"`
	Steps    int                `json:"steps"`
	Times    []float64          `json:"times"`
	States   [][]float64        `json:"states"`
	Controls [][]float64        `json:"controls"`
	Metrics  map[string]float64 `json:"metrics"`
}

func exportData(meta RunMetadata, result *sim.Result) ExportData {
	data := ExportData{
		Meta:     meta,
		Steps:    len(result.Times),
		Times:    result.Times,
		States:   make([][]float64, len(result.States)),
		Controls: make([][]float64, len(result.Controls)),
		Metrics:  result.Metrics,
	}
	for i, s := range result.States {
		data.States[i] = s
	}
	for i, c := range result.Controls {
		data.Controls[i] = c
	}
	return data
}

// ExportJSON writes the whole run as one JSON document.
func ExportJSON(w io.Writer, meta RunMetadata, result *sim.Result) error {
	return encodeJSON(w, exportData(meta, result))
}

func ExportJSONFile(path string, meta RunMetadata, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "storage: create export")
	}
	defer f.Close()
	return ExportJSON(f, meta, result)
}
