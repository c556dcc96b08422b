// Package progress computes checklist completion percentages.
//
// Tasks flagged "not applicable" are excluded from the math. The value is
// recomputed from current data on every read; nothing is persisted.
package progress

import (
	"math"

	"github.com/atelieropen/obratrack/internal/domain/models"
)

// Percent returns the integer completion percentage (0-100) for a task list.
// NA tasks are skipped entirely; when no effective tasks remain the result
// is 0, not an error.
func Percent(tasks []models.Task) int {
	effective, completed := 0, 0
	for _, t := range tasks {
		if t.NA {
			continue
		}
		effective++
		if t.Completed {
			completed++
		}
	}
	if effective == 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(effective)))
}
