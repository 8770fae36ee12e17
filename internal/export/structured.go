package export

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/piwi3910/cutplan/internal/model"
)

// ExportJSON writes a CuttingPlan as a self-contained JSON snapshot, the
// same pattern the teacher used for full-application backups: one
// marshal, one file write, nothing re-derived on load.
func ExportJSON(path string, plan model.CuttingPlan) error {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cutting plan: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	return nil
}
