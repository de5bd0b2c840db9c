package output

import (
	"encoding/json"
	"io"
	"os"

	"github.com/law-makers/tracktime/pkg/models"
)

// WriteJSON writes v as indented JSON
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// SaveJSON writes the batch summary, results included, to filepath
func SaveJSON(summary models.BatchRunSummary, filepath string) error {
	content, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, content, 0644)
}
