package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/sqlgate/internal/review"
)

// JSONWriter outputs the full report as JSON with the overall status added.
type JSONWriter struct{}

type jsonReport struct {
	Status string `json:"status"`
	*review.Report
}

func (j *JSONWriter) Write(w io.Writer, report *review.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	// statement text keeps <, > and & readable
	enc.SetEscapeHTML(false)
	if err := enc.Encode(jsonReport{Status: report.Status(), Report: report}); err != nil {
		return fmt.Errorf("writing JSON report: %w", err)
	}
	return nil
}
