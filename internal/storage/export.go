package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/adsorb/internal/dynamo"
)

type ExportData struct {
	RunMetadata
	Steps  int            `json:"steps"`
	Times  []float64      `json:"times"`
	States []dynamo.State `json:"states"`
}

// Export writes a run with its trajectory as indented JSON.
func (s *Store) Export(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	states, times, err := s.LoadStates(runID)
	if err != nil {
		return err
	}

	data := ExportData{
		RunMetadata: *meta,
		Steps:       len(times),
		Times:       times,
		States:      states,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
