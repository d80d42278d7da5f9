package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/tankdrive/internal/motion"
)

type ExportData struct {
	Run   RunMetadata     `json:"run"`
	Trace []motion.Sample `json:"trace"`
}

// ExportJSON writes a stored run and its trace as one JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	trace, err := s.LoadTrace(runID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ExportData{Run: *meta, Trace: trace})
}
