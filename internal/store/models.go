package store

import (
	"time"
)

// DoseStatus is the state of a dose for one calendar day
type DoseStatus string

const (
	StatusPending DoseStatus = "PENDING"
	StatusTaken   DoseStatus = "TAKEN"
	StatusMissed  DoseStatus = "MISSED"
)

// TimeSlot buckets a medicine's schedule into a coarse time of day
type TimeSlot string

const (
	SlotMorning TimeSlot = "Morning"
	SlotNoon    TimeSlot = "Noon"
	SlotEvening TimeSlot = "Evening"
	SlotNight   TimeSlot = "Night"
)

// SlotOrder defines report ordering across slots. Unknown slots sort last.
var SlotOrder = map[TimeSlot]int{
	SlotMorning: 1,
	SlotNoon:    2,
	SlotEvening: 3,
	SlotNight:   4,
}

// Frequency is how often a medicine is scheduled
type Frequency string

const (
	FrequencyDaily  Frequency = "Daily"
	FrequencyWeekly Frequency = "Weekly"
)

// Medicine is a medicine definition in the registry
type Medicine struct {
	ID uint `json:"-" gorm:"primaryKey"`

	// MedicineNo is the stable user-facing identity, assigned monotonically
	MedicineNo    int       `json:"medicineNo" gorm:"uniqueIndex"`
	Name          string    `json:"name"`
	ScheduledTime string    `json:"scheduledTime"` // "HH:mm", 24h
	Dosage        string    `json:"dosage,omitempty"`
	Frequency     Frequency `json:"frequency"`
	TimeSlot      TimeSlot  `json:"timeSlot"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DailyLog is one dose record per (date, medicine) pair. Absence of a row
// for a day means the dose is implicitly PENDING.
type DailyLog struct {
	ID uint `json:"-" gorm:"primaryKey"`

	Date       string `json:"date" gorm:"uniqueIndex:idx_day_medicine"` // "YYYY-MM-DD"
	MedicineNo int    `json:"medicineNo" gorm:"uniqueIndex:idx_day_medicine"`

	// Snapshots of the definition at log-creation time; reports prefer the
	// current definition over these.
	Name          string `json:"name"`
	ScheduledTime string `json:"scheduledTime"`

	TakenTime *time.Time `json:"takenTime,omitempty"`
	Status    DoseStatus `json:"status"`

	CreatedAt time.Time `json:"created_at"`
}

// MedicineUpdate carries the fields of a partial update; nil means unchanged
type MedicineUpdate struct {
	Name          *string    `json:"name,omitempty"`
	ScheduledTime *string    `json:"scheduledTime,omitempty"`
	Dosage        *string    `json:"dosage,omitempty"`
	Frequency     *Frequency `json:"frequency,omitempty"`
	TimeSlot      *TimeSlot  `json:"timeSlot,omitempty"`
}

// ValidSlot reports whether s is one of the four known slots
func ValidSlot(s TimeSlot) bool {
	_, ok := SlotOrder[s]
	return ok
}

// ValidFrequency reports whether f is a supported frequency
func ValidFrequency(f Frequency) bool {
	return f == FrequencyDaily || f == FrequencyWeekly
}

// ValidClockTime reports whether s parses as 24h "HH:mm"
func ValidClockTime(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}

// DateKey formats t as the calendar-day key used by DailyLog
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
