package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/trackprop/internal/actors"
)

type ExportData struct {
	Run   RunMetadata         `json:"run"`
	Count int                 `json:"count"`
	Steps []actors.StepRecord `json:"steps"`
}

// ExportJSON writes a run and its steps as one JSON document.
func ExportJSON(w io.Writer, meta RunMetadata, steps []actors.StepRecord) error {
	data := ExportData{
		Run:   meta,
		Count: len(steps),
		Steps: steps,
	}
	if data.Steps == nil {
		data.Steps = []actors.StepRecord{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func ExportJSONFile(path string, meta RunMetadata, steps []actors.StepRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return ExportJSON(file, meta, steps)
}

// Export loads a stored run and writes it to w.
func (s *Store) Export(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	steps, err := s.LoadSteps(runID)
	if err != nil {
		return err
	}
	return ExportJSON(w, *meta, steps)
}
