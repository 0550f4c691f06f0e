// Package report joins the medicine registry with a day's logs and computes
// the ordered adherence report: schedule deviation and slot gaps.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/gmsas95/medicinett/internal/errors"
	"github.com/gmsas95/medicinett/internal/metrics"
	"github.com/gmsas95/medicinett/internal/store"
)

const (
	notAvailable = "N/A"
	noValue      = "-"
)

// Builder computes daily reports from the registry and log store
type Builder struct {
	store  *store.Store
	logger *zap.Logger
	now    func() time.Time
}

// New creates a report builder using the wall clock
func New(st *store.Store, logger *zap.Logger) *Builder {
	return &Builder{
		store:  st,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the builder's notion of "now"
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build computes the report for the given day (default today). It fails with
// NoData when the registry is empty; everything else degrades per field.
func (b *Builder) Build(date string) (*Report, error) {
	started := time.Now()

	if date == "" {
		date = store.DateKey(b.now())
	}

	meds, err := b.store.ListMedicines()
	if err != nil {
		return nil, err
	}
	if len(meds) == 0 {
		return nil, apperrors.ErrNoReportData
	}

	logs, err := b.store.GetLogsForDate(date)
	if err != nil {
		return nil, err
	}
	byNo := make(map[int]*store.DailyLog, len(logs))
	for i := range logs {
		byNo[logs[i].MedicineNo] = &logs[i]
	}

	// Slot-then-time total order; the current definition wins over any
	// snapshot stored in the log.
	sorted := make([]store.Medicine, len(meds))
	copy(sorted, meds)
	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := slotRank(sorted[i].TimeSlot), slotRank(sorted[j].TimeSlot)
		if si != sj {
			return si < sj
		}
		return strings.Compare(sorted[i].ScheduledTime, sorted[j].ScheduledTime) < 0
	})

	rows := make([]Row, 0, len(sorted))
	for idx, med := range sorted {
		status := store.StatusPending
		taken := noValue
		if log, ok := byNo[med.MedicineNo]; ok {
			status = log.Status
			if log.TakenTime != nil {
				taken = log.TakenTime.Format("15:04")
			}
		}

		rows = append(rows, Row{
			No:                 fmt.Sprintf("%02d", idx+1),
			Slot:               string(med.TimeSlot),
			MedicineNo:         med.MedicineNo,
			Name:               med.Name,
			Scheduled:          med.ScheduledTime,
			Taken:              taken,
			Status:             string(status),
			ScheduleVsTaken:    deviation(med.ScheduledTime, taken),
			ScheduledSlotGap:   noValue,
			ActualTakenSlotGap: noValue,
		})
	}

	for i := 1; i < len(rows); i++ {
		rows[i].ScheduledSlotGap = slotGap(rows[i-1].Scheduled, rows[i].Scheduled)
		rows[i].ActualTakenSlotGap = slotGap(rows[i-1].Taken, rows[i].Taken)
	}
	if len(rows) > 0 {
		rows[0].ScheduledSlotGap = noValue
		rows[0].ActualTakenSlotGap = noValue
	}

	summary := Summary{}
	for _, row := range rows {
		switch store.DoseStatus(row.Status) {
		case store.StatusTaken:
			summary.Taken++
		case store.StatusMissed:
			summary.Missed++
		case store.StatusPending:
			summary.Pending++
		}
	}

	metrics.RecordReportBuilt(time.Since(started).Seconds())
	b.logger.Debug("Report built",
		zap.String("date", date),
		zap.Int("rows", len(rows)),
	)

	return &Report{Date: date, Rows: rows, Summary: summary}, nil
}

func slotRank(slot store.TimeSlot) int {
	if rank, ok := store.SlotOrder[slot]; ok {
		return rank
	}
	return 99
}

// minutesOfDay parses "HH:mm" into minutes since midnight
func minutesOfDay(clock string) (int, bool) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// deviation formats actual minus scheduled as a signed "HHh MMm", the
// literal "On Time" for an exact match, or "N/A" when either side is
// missing or unparsable.
func deviation(scheduled, taken string) string {
	if scheduled == "" || taken == noValue {
		return notAvailable
	}
	schedMins, ok := minutesOfDay(scheduled)
	if !ok {
		return notAvailable
	}
	takenMins, ok := minutesOfDay(taken)
	if !ok {
		return notAvailable
	}

	diff := takenMins - schedMins
	if diff == 0 {
		return "On Time"
	}
	sign := "+"
	if diff < 0 {
		sign = "-"
		diff = -diff
	}
	return fmt.Sprintf("%s%02dh %02dm", sign, diff/60, diff%60)
}

// slotGap formats the minute gap between two consecutive rows' times.
// A negative gap gets 12 hours added to the later term once before the
// difference is recomputed; doses spanning midnight therefore report a
// same-day approximation, which downstream consumers rely on.
func slotGap(prev, cur string) string {
	if prev == noValue || cur == noValue {
		return noValue
	}
	prevMins, ok := minutesOfDay(prev)
	if !ok {
		return noValue
	}
	curMins, ok := minutesOfDay(cur)
	if !ok {
		return noValue
	}

	diff := curMins - prevMins
	if diff < 0 {
		curMins += 12 * 60
		diff = curMins - prevMins
	}
	return fmt.Sprintf("%02dh %02dm", diff/60, diff%60)
}
