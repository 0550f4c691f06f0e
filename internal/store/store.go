package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/gmsas95/medicinett/internal/config"
	apperrors "github.com/gmsas95/medicinett/internal/errors"
)

// Store provides access to the medicine registry, the daily log collection,
// and the report archive (badger KV)
type Store struct {
	db     *gorm.DB
	badger *badger.DB
}

// Open creates a Store backed by the configured SQLite and Badger paths
func Open(cfg *config.Config) (*Store, error) {
	sqliteDB, err := sql.Open("sqlite", cfg.Storage.SQLitePath+"?_journal=WAL&_synchronous=NORMAL&_busy_timeout=5000&_cache_size=-64000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqliteDB.SetMaxOpenConns(10)
	sqliteDB.SetMaxIdleConns(5)
	sqliteDB.SetConnMaxLifetime(time.Hour)

	db, err := gorm.Open(sqlite.Dialector{Conn: sqliteDB}, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	badgerOpts := badger.DefaultOptions(cfg.Storage.BadgerPath).
		WithLogger(nil).
		WithNumVersionsToKeep(1).
		WithCompactL0OnClose(true).
		WithValueLogFileSize(16 << 20).
		WithMemTableSize(16 << 20)

	badgerDB, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return NewStore(db, badgerDB)
}

// NewStore wraps existing database handles. The badger handle may be nil when
// report archival is not needed (tests, CLI tools).
func NewStore(db *gorm.DB, kv *badger.DB) (*Store, error) {
	if err := db.AutoMigrate(&Medicine{}, &DailyLog{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schemas: %w", err)
	}
	return &Store{db: db, badger: kv}, nil
}

// Close releases the underlying handles
func (s *Store) Close() error {
	if s.badger != nil {
		if err := s.badger.Close(); err != nil {
			return err
		}
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Medicine registry operations

// CreateMedicine validates the definition and assigns the next medicineNo
func (s *Store) CreateMedicine(med *Medicine) error {
	if med.Name == "" || med.ScheduledTime == "" || med.Frequency == "" || med.TimeSlot == "" {
		return apperrors.Wrap(nil, apperrors.ErrValidation.Code, "missing required fields")
	}
	if !ValidClockTime(med.ScheduledTime) {
		return apperrors.Wrap(nil, apperrors.ErrValidation.Code, fmt.Sprintf("invalid scheduled time %q", med.ScheduledTime))
	}
	if !ValidFrequency(med.Frequency) {
		return apperrors.Wrap(nil, apperrors.ErrValidation.Code, fmt.Sprintf("invalid frequency %q", med.Frequency))
	}
	if !ValidSlot(med.TimeSlot) {
		return apperrors.Wrap(nil, apperrors.ErrValidation.Code, fmt.Sprintf("invalid time slot %q", med.TimeSlot))
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var last Medicine
		err := tx.Order("medicine_no DESC").First(&last).Error
		switch {
		case err == gorm.ErrRecordNotFound:
			med.MedicineNo = 1
		case err != nil:
			return apperrors.Wrap(err, apperrors.ErrStore.Code, "failed to find last medicine")
		default:
			med.MedicineNo = last.MedicineNo + 1
		}

		med.CreatedAt = time.Now()
		med.UpdatedAt = time.Now()
		if err := tx.Create(med).Error; err != nil {
			return apperrors.Wrap(err, apperrors.ErrStore.Code, "failed to create medicine")
		}
		return nil
	})
}

// GetMedicine returns nil when no medicine has the given number
func (s *Store) GetMedicine(medicineNo int) (*Medicine, error) {
	var med Medicine
	err := s.db.Where("medicine_no = ?", medicineNo).First(&med).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrStore.Code, "failed to get medicine")
	}
	return &med, nil
}

// UpdateMedicine applies a partial update and returns the fresh definition
func (s *Store) UpdateMedicine(medicineNo int, upd MedicineUpdate) (*Medicine, error) {
	if upd.ScheduledTime != nil && !ValidClockTime(*upd.ScheduledTime) {
		return nil, apperrors.Wrap(nil, apperrors.ErrValidation.Code, fmt.Sprintf("invalid scheduled time %q", *upd.ScheduledTime))
	}
	if upd.Frequency != nil && !ValidFrequency(*upd.Frequency) {
		return nil, apperrors.Wrap(nil, apperrors.ErrValidation.Code, fmt.Sprintf("invalid frequency %q", *upd.Frequency))
	}
	if upd.TimeSlot != nil && !ValidSlot(*upd.TimeSlot) {
		return nil, apperrors.Wrap(nil, apperrors.ErrValidation.Code, fmt.Sprintf("invalid time slot %q", *upd.TimeSlot))
	}
	if upd.Name != nil && *upd.Name == "" {
		return nil, apperrors.Wrap(nil, apperrors.ErrValidation.Code, "name must not be empty")
	}

	fields := map[string]interface{}{"updated_at": time.Now()}
	if upd.Name != nil {
		fields["name"] = *upd.Name
	}
	if upd.ScheduledTime != nil {
		fields["scheduled_time"] = *upd.ScheduledTime
	}
	if upd.Dosage != nil {
		fields["dosage"] = *upd.Dosage
	}
	if upd.Frequency != nil {
		fields["frequency"] = *upd.Frequency
	}
	if upd.TimeSlot != nil {
		fields["time_slot"] = *upd.TimeSlot
	}

	res := s.db.Model(&Medicine{}).Where("medicine_no = ?", medicineNo).Updates(fields)
	if res.Error != nil {
		return nil, apperrors.Wrap(res.Error, apperrors.ErrStore.Code, "failed to update medicine")
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.ErrMedicineNotFound
	}
	return s.GetMedicine(medicineNo)
}

// DeleteMedicine removes the definition and cascades to all its daily logs
func (s *Store) DeleteMedicine(medicineNo int) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("medicine_no = ?", medicineNo).Delete(&Medicine{})
		if res.Error != nil {
			return apperrors.Wrap(res.Error, apperrors.ErrStore.Code, "failed to delete medicine")
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrMedicineNotFound
		}
		if err := tx.Where("medicine_no = ?", medicineNo).Delete(&DailyLog{}).Error; err != nil {
			return apperrors.Wrap(err, apperrors.ErrStore.Code, "failed to delete medicine logs")
		}
		return nil
	})
}

// ListMedicines returns all definitions ordered by medicineNo
func (s *Store) ListMedicines() ([]Medicine, error) {
	var meds []Medicine
	if err := s.db.Order("medicine_no ASC").Find(&meds).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrStore.Code, "failed to list medicines")
	}
	return meds, nil
}

// SeedMedicines resets the registry to a small fixed set for setup/demo
func (s *Store) SeedMedicines() error {
	seeds := []Medicine{
		{MedicineNo: 1, Name: "Paracetamol", ScheduledTime: "09:00", Frequency: FrequencyDaily, TimeSlot: SlotMorning},
		{MedicineNo: 2, Name: "Vitamin D", ScheduledTime: "09:30", Frequency: FrequencyDaily, TimeSlot: SlotMorning},
		{MedicineNo: 3, Name: "Amoxicillin", ScheduledTime: "14:00", Frequency: FrequencyDaily, TimeSlot: SlotNoon},
		{MedicineNo: 4, Name: "Ibuprofen", ScheduledTime: "20:00", Frequency: FrequencyDaily, TimeSlot: SlotNight},
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&Medicine{}).Error; err != nil {
			return apperrors.Wrap(err, apperrors.ErrStore.Code, "failed to clear medicines")
		}
		now := time.Now()
		for i := range seeds {
			seeds[i].CreatedAt = now
			seeds[i].UpdatedAt = now
		}
		if err := tx.Create(&seeds).Error; err != nil {
			return apperrors.Wrap(err, apperrors.ErrStore.Code, "failed to seed medicines")
		}
		return nil
	})
}

// DailyLog operations

// GetLog returns nil when no log exists for the (date, medicineNo) pair
func (s *Store) GetLog(date string, medicineNo int) (*DailyLog, error) {
	var log DailyLog
	err := s.db.Where("date = ? AND medicine_no = ?", date, medicineNo).First(&log).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrStore.Code, "failed to get daily log")
	}
	return &log, nil
}

// GetLogsForDate returns all logs for one calendar day
func (s *Store) GetLogsForDate(date string) ([]DailyLog, error) {
	var logs []DailyLog
	if err := s.db.Where("date = ?", date).Find(&logs).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrStore.Code, "failed to get logs for date")
	}
	return logs, nil
}

// SaveLog upserts the log on its composite (date, medicineNo) key
func (s *Store) SaveLog(log *DailyLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "medicine_no"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "scheduled_time", "taken_time", "status"}),
	}).Create(log).Error
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrStore.Code, "failed to save daily log")
	}
	return nil
}

// CreateLogIfAbsent inserts the log unless a row already exists for its
// composite key; reports whether a row was inserted
func (s *Store) CreateLogIfAbsent(log *DailyLog) (bool, error) {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	res := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "medicine_no"}},
		DoNothing: true,
	}).Create(log)
	if res.Error != nil {
		return false, apperrors.Wrap(res.Error, apperrors.ErrStore.Code, "failed to create daily log")
	}
	return res.RowsAffected > 0, nil
}

// MarkPendingLogMissed flips a PENDING log to MISSED; TAKEN and MISSED rows
// are left untouched. Reports whether a row changed.
func (s *Store) MarkPendingLogMissed(date string, medicineNo int) (bool, error) {
	res := s.db.Model(&DailyLog{}).
		Where("date = ? AND medicine_no = ? AND status = ?", date, medicineNo, StatusPending).
		Update("status", StatusMissed)
	if res.Error != nil {
		return false, apperrors.Wrap(res.Error, apperrors.ErrStore.Code, "failed to mark log missed")
	}
	return res.RowsAffected > 0, nil
}

// DeleteLogsForMedicine removes every log of one medicine across all dates
func (s *Store) DeleteLogsForMedicine(medicineNo int) error {
	if err := s.db.Where("medicine_no = ?", medicineNo).Delete(&DailyLog{}).Error; err != nil {
		return apperrors.Wrap(err, apperrors.ErrStore.Code, "failed to delete medicine logs")
	}
	return nil
}

// Report archive (badger)

func reportJSONKey(date string) []byte { return []byte("report:json:" + date) }
func reportTextKey(date string) []byte { return []byte("report:text:" + date) }

// ArchiveReport stores the JSON payload and rendered document for a day
func (s *Store) ArchiveReport(date string, payload, rendered []byte) error {
	if s.badger == nil {
		return apperrors.Wrap(nil, apperrors.ErrStore.Code, "report archive not configured")
	}
	err := s.badger.Update(func(txn *badger.Txn) error {
		if err := txn.Set(reportJSONKey(date), payload); err != nil {
			return err
		}
		return txn.Set(reportTextKey(date), rendered)
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrStore.Code, "failed to archive report")
	}
	return nil
}

// GetArchivedReport returns nil slices when no report was archived for the day
func (s *Store) GetArchivedReport(date string) (payload, rendered []byte, err error) {
	if s.badger == nil {
		return nil, nil, apperrors.Wrap(nil, apperrors.ErrStore.Code, "report archive not configured")
	}
	err = s.badger.View(func(txn *badger.Txn) error {
		item, err := txn.Get(reportJSONKey(date))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		if payload, err = item.ValueCopy(nil); err != nil {
			return err
		}
		item, err = txn.Get(reportTextKey(date))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		rendered, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrStore.Code, "failed to read archived report")
	}
	return payload, rendered, nil
}
