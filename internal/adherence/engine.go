// Package adherence implements the dose state machine: derive-on-read status,
// exactly-once mark-taken, and the idempotent day-boundary missed sweep.
package adherence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/gmsas95/medicinett/internal/errors"
	"github.com/gmsas95/medicinett/internal/metrics"
	"github.com/gmsas95/medicinett/internal/store"
)

// Engine coordinates all writes to the daily log collection
type Engine struct {
	store  *store.Store
	logger *zap.Logger
	now    func() time.Time

	// Per (date, medicineNo) row locks: concurrent mark-taken, set-taken-time
	// and sweep calls for the same key must not interleave.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an adherence engine using the wall clock
func New(st *store.Store, logger *zap.Logger) *Engine {
	return &Engine{
		store:  st,
		logger: logger,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

// WithClock overrides the engine's notion of "now" (tests, replay)
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func (e *Engine) lockRow(date string, medicineNo int) *sync.Mutex {
	key := fmt.Sprintf("%s|%d", date, medicineNo)
	e.mu.Lock()
	l, ok := e.locks[key]
	if !ok {
		l = &sync.Mutex{}
		e.locks[key] = l
	}
	e.mu.Unlock()
	l.Lock()
	return l
}

// DeriveDayView joins every medicine with its log for the given day.
// An empty date means today. Medicines without a log are PENDING.
func (e *Engine) DeriveDayView(date string) ([]DoseView, error) {
	if date == "" {
		date = store.DateKey(e.now())
	}

	meds, err := e.store.ListMedicines()
	if err != nil {
		return nil, err
	}
	logs, err := e.store.GetLogsForDate(date)
	if err != nil {
		return nil, err
	}

	byNo := make(map[int]*store.DailyLog, len(logs))
	for i := range logs {
		byNo[logs[i].MedicineNo] = &logs[i]
	}

	views := make([]DoseView, 0, len(meds))
	for _, med := range meds {
		view := DoseView{
			MedicineNo:    med.MedicineNo,
			Name:          med.Name,
			ScheduledTime: med.ScheduledTime,
			Dosage:        med.Dosage,
			Frequency:     med.Frequency,
			TimeSlot:      med.TimeSlot,
			Status:        store.StatusPending,
		}
		if log, ok := byNo[med.MedicineNo]; ok {
			view.Status = log.Status
			view.TakenTime = log.TakenTime
		}
		views = append(views, view)
	}
	return views, nil
}

// MarkTaken records a taken event for today, exactly once per day.
// A second call for the same day fails with AlreadyTaken and preserves the
// first call's taken time, guarding against duplicate voice triggers.
func (e *Engine) MarkTaken(medicineNo int) (*store.DailyLog, error) {
	med, err := e.store.GetMedicine(medicineNo)
	if err != nil {
		return nil, err
	}
	if med == nil {
		return nil, apperrors.ErrMedicineNotFound
	}

	now := e.now()
	date := store.DateKey(now)

	l := e.lockRow(date, medicineNo)
	defer l.Unlock()

	log, err := e.store.GetLog(date, medicineNo)
	if err != nil {
		return nil, err
	}
	if log != nil && log.Status == store.StatusTaken {
		return nil, apperrors.ErrAlreadyTaken
	}

	if log == nil {
		log = &store.DailyLog{
			Date:          date,
			MedicineNo:    med.MedicineNo,
			Name:          med.Name,
			ScheduledTime: med.ScheduledTime,
		}
	}
	log.Status = store.StatusTaken
	log.TakenTime = &now

	if err := e.store.SaveLog(log); err != nil {
		return nil, err
	}

	metrics.RecordDoseMarkedTaken()
	e.logger.Info("Medicine marked taken",
		zap.Int("medicine_no", medicineNo),
		zap.String("date", date),
		zap.Time("taken_time", now),
	)
	return log, nil
}

// SetTakenTime unconditionally records a taken time for the medicine on the
// given day (default today). Unlike MarkTaken it overwrites an existing
// TAKEN row, so operator corrections always win.
func (e *Engine) SetTakenTime(medicineNo int, takenTime *time.Time, date string) (*store.DailyLog, error) {
	med, err := e.store.GetMedicine(medicineNo)
	if err != nil {
		return nil, err
	}
	if med == nil {
		return nil, apperrors.ErrMedicineNotFound
	}

	when := e.now()
	if takenTime != nil {
		when = *takenTime
	}
	if date == "" {
		date = store.DateKey(e.now())
	}

	l := e.lockRow(date, medicineNo)
	defer l.Unlock()

	log, err := e.store.GetLog(date, medicineNo)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = &store.DailyLog{
			Date:          date,
			MedicineNo:    med.MedicineNo,
			Name:          med.Name,
			ScheduledTime: med.ScheduledTime,
		}
	}
	log.Status = store.StatusTaken
	log.TakenTime = &when

	if err := e.store.SaveLog(log); err != nil {
		return nil, err
	}

	metrics.RecordTakenTimeSet()
	e.logger.Info("Taken time set",
		zap.Int("medicine_no", medicineNo),
		zap.String("date", date),
		zap.Time("taken_time", when),
	)
	return log, nil
}

// RunMissedSweep finalizes the given day (default today): medicines with no
// log get a MISSED row, PENDING rows flip to MISSED, TAKEN rows are left
// untouched. The sweep is idempotent and tolerates per-medicine store
// failures; a skipped medicine stays PENDING and is picked up by the next
// run or corrected manually.
func (e *Engine) RunMissedSweep(ctx context.Context, date string) (*SweepResult, error) {
	if date == "" {
		date = store.DateKey(e.now())
	}

	meds, err := e.store.ListMedicines()
	if err != nil {
		return nil, err
	}

	result := &SweepResult{Date: date}
	for _, med := range meds {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if err := e.sweepOne(date, med, result); err != nil {
			result.Errors++
			e.logger.Error("Missed sweep skipped medicine",
				zap.Int("medicine_no", med.MedicineNo),
				zap.String("date", date),
				zap.Error(err),
			)
		}
	}

	metrics.RecordSweepRun(result.Created+result.Flipped, result.Errors)
	e.logger.Info("Missed sweep complete",
		zap.String("date", date),
		zap.Int("created", result.Created),
		zap.Int("flipped", result.Flipped),
		zap.Int("untouched", result.Untouched),
		zap.Int("errors", result.Errors),
	)
	return result, nil
}

func (e *Engine) sweepOne(date string, med store.Medicine, result *SweepResult) error {
	l := e.lockRow(date, med.MedicineNo)
	defer l.Unlock()

	log, err := e.store.GetLog(date, med.MedicineNo)
	if err != nil {
		return err
	}

	switch {
	case log == nil:
		inserted, err := e.store.CreateLogIfAbsent(&store.DailyLog{
			Date:          date,
			MedicineNo:    med.MedicineNo,
			Name:          med.Name,
			ScheduledTime: med.ScheduledTime,
			Status:        store.StatusMissed,
		})
		if err != nil {
			return err
		}
		if inserted {
			result.Created++
		} else {
			result.Untouched++
		}
	case log.Status == store.StatusPending:
		flipped, err := e.store.MarkPendingLogMissed(date, med.MedicineNo)
		if err != nil {
			return err
		}
		if flipped {
			result.Flipped++
		} else {
			result.Untouched++
		}
	default:
		result.Untouched++
	}
	return nil
}
