package adherence

import (
	"time"

	"github.com/gmsas95/medicinett/internal/store"
)

// DoseView is one medicine joined with its dose state for a given day.
// A medicine with no log row for the day appears as PENDING with no taken
// time; the view is total over the registry.
type DoseView struct {
	MedicineNo    int              `json:"medicineNo"`
	Name          string           `json:"name"`
	ScheduledTime string           `json:"scheduledTime"`
	Dosage        string           `json:"dosage,omitempty"`
	Frequency     store.Frequency  `json:"frequency"`
	TimeSlot      store.TimeSlot   `json:"timeSlot"`
	Status        store.DoseStatus `json:"status"`
	TakenTime     *time.Time       `json:"takenTime"`
}

// SweepResult summarizes one missed-sweep run
type SweepResult struct {
	Date      string `json:"date"`
	Created   int    `json:"created"`   // MISSED rows materialized for absent logs
	Flipped   int    `json:"flipped"`   // PENDING rows flipped to MISSED
	Untouched int    `json:"untouched"` // rows already TAKEN or MISSED
	Errors    int    `json:"errors"`    // medicines skipped on store errors
}
