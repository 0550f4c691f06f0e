package store

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	apperrors "github.com/gmsas95/medicinett/internal/errors"
)

func setupTestStore(t *testing.T) *Store {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	store, err := NewStore(db, nil)
	require.NoError(t, err)
	return store
}

func setupTestStoreWithBadger(t *testing.T) *Store {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	opts := badger.DefaultOptions(t.TempDir()).WithLogger(nil)
	kv, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	store, err := NewStore(db, kv)
	require.NoError(t, err)
	return store
}

func testMedicine(name, scheduled string, slot TimeSlot) *Medicine {
	return &Medicine{
		Name:          name,
		ScheduledTime: scheduled,
		Frequency:     FrequencyDaily,
		TimeSlot:      slot,
	}
}

func TestCreateMedicine_AssignsMonotonicNumbers(t *testing.T) {
	s := setupTestStore(t)

	a := testMedicine("Paracetamol", "09:00", SlotMorning)
	require.NoError(t, s.CreateMedicine(a))
	assert.Equal(t, 1, a.MedicineNo)

	b := testMedicine("Vitamin D", "09:30", SlotMorning)
	require.NoError(t, s.CreateMedicine(b))
	assert.Equal(t, 2, b.MedicineNo)

	// Assignment follows the highest surviving number
	require.NoError(t, s.DeleteMedicine(2))
	c := testMedicine("Ibuprofen", "20:00", SlotNight)
	require.NoError(t, s.CreateMedicine(c))
	assert.Equal(t, 2, c.MedicineNo)
}

func TestCreateMedicine_Validation(t *testing.T) {
	s := setupTestStore(t)

	cases := []*Medicine{
		{ScheduledTime: "09:00", Frequency: FrequencyDaily, TimeSlot: SlotMorning},     // no name
		{Name: "X", ScheduledTime: "25:61", Frequency: FrequencyDaily, TimeSlot: SlotMorning}, // bad time
		{Name: "X", ScheduledTime: "09:00", Frequency: "Hourly", TimeSlot: SlotMorning},       // bad frequency
		{Name: "X", ScheduledTime: "09:00", Frequency: FrequencyDaily, TimeSlot: "Dawn"},      // bad slot
	}
	for _, med := range cases {
		err := s.CreateMedicine(med)
		assert.True(t, stderrors.Is(err, apperrors.ErrValidation), "expected validation error, got %v", err)
	}
}

func TestGetMedicine_AbsentIsNil(t *testing.T) {
	s := setupTestStore(t)
	med, err := s.GetMedicine(99)
	require.NoError(t, err)
	assert.Nil(t, med)
}

func TestUpdateMedicine_Partial(t *testing.T) {
	s := setupTestStore(t)
	med := testMedicine("Paracetamol", "09:00", SlotMorning)
	require.NoError(t, s.CreateMedicine(med))

	newName := "Paracetamol 500mg"
	newTime := "10:15"
	updated, err := s.UpdateMedicine(med.MedicineNo, MedicineUpdate{Name: &newName, ScheduledTime: &newTime})
	require.NoError(t, err)
	assert.Equal(t, "Paracetamol 500mg", updated.Name)
	assert.Equal(t, "10:15", updated.ScheduledTime)
	assert.Equal(t, SlotMorning, updated.TimeSlot)
}

func TestUpdateMedicine_NotFound(t *testing.T) {
	s := setupTestStore(t)
	name := "X"
	_, err := s.UpdateMedicine(42, MedicineUpdate{Name: &name})
	assert.True(t, stderrors.Is(err, apperrors.ErrMedicineNotFound))
}

func TestDeleteMedicine_CascadesLogs(t *testing.T) {
	s := setupTestStore(t)
	med := testMedicine("Paracetamol", "09:00", SlotMorning)
	require.NoError(t, s.CreateMedicine(med))

	for _, date := range []string{"2026-01-01", "2026-01-02", "2026-01-03"} {
		_, err := s.CreateLogIfAbsent(&DailyLog{
			Date:          date,
			MedicineNo:    med.MedicineNo,
			Name:          med.Name,
			ScheduledTime: med.ScheduledTime,
			Status:        StatusMissed,
		})
		require.NoError(t, err)
	}

	require.NoError(t, s.DeleteMedicine(med.MedicineNo))

	for _, date := range []string{"2026-01-01", "2026-01-02", "2026-01-03"} {
		log, err := s.GetLog(date, med.MedicineNo)
		require.NoError(t, err)
		assert.Nil(t, log)
	}
}

func TestDeleteMedicine_NotFound(t *testing.T) {
	s := setupTestStore(t)
	err := s.DeleteMedicine(7)
	assert.True(t, stderrors.Is(err, apperrors.ErrMedicineNotFound))
}

func TestListMedicines_OrderedByNumber(t *testing.T) {
	s := setupTestStore(t)
	require.NoError(t, s.CreateMedicine(testMedicine("A", "09:00", SlotMorning)))
	require.NoError(t, s.CreateMedicine(testMedicine("B", "14:00", SlotNoon)))
	require.NoError(t, s.CreateMedicine(testMedicine("C", "20:00", SlotNight)))

	meds, err := s.ListMedicines()
	require.NoError(t, err)
	require.Len(t, meds, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{meds[0].MedicineNo, meds[1].MedicineNo, meds[2].MedicineNo})
}

func TestSeedMedicines(t *testing.T) {
	s := setupTestStore(t)
	require.NoError(t, s.CreateMedicine(testMedicine("Old", "08:00", SlotMorning)))

	require.NoError(t, s.SeedMedicines())

	meds, err := s.ListMedicines()
	require.NoError(t, err)
	require.Len(t, meds, 4)
	assert.Equal(t, "Paracetamol", meds[0].Name)
	assert.Equal(t, "Ibuprofen", meds[3].Name)
}

func TestCreateLogIfAbsent_CompositeKeyUnique(t *testing.T) {
	s := setupTestStore(t)

	log := &DailyLog{Date: "2026-01-01", MedicineNo: 1, Name: "A", ScheduledTime: "09:00", Status: StatusMissed}
	inserted, err := s.CreateLogIfAbsent(log)
	require.NoError(t, err)
	assert.True(t, inserted)

	dup := &DailyLog{Date: "2026-01-01", MedicineNo: 1, Name: "A", ScheduledTime: "09:00", Status: StatusPending}
	inserted, err = s.CreateLogIfAbsent(dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	// Original row untouched
	got, err := s.GetLog("2026-01-01", 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, StatusMissed, got.Status)
}

func TestSaveLog_UpsertsOnCompositeKey(t *testing.T) {
	s := setupTestStore(t)

	taken := time.Date(2026, 1, 1, 9, 15, 0, 0, time.UTC)
	log := &DailyLog{Date: "2026-01-01", MedicineNo: 1, Name: "A", ScheduledTime: "09:00", Status: StatusPending}
	require.NoError(t, s.SaveLog(log))

	update := &DailyLog{Date: "2026-01-01", MedicineNo: 1, Name: "A", ScheduledTime: "09:00", Status: StatusTaken, TakenTime: &taken}
	require.NoError(t, s.SaveLog(update))

	logs, err := s.GetLogsForDate("2026-01-01")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, StatusTaken, logs[0].Status)
	require.NotNil(t, logs[0].TakenTime)
	assert.True(t, taken.Equal(*logs[0].TakenTime))
}

func TestMarkPendingLogMissed(t *testing.T) {
	s := setupTestStore(t)

	require.NoError(t, s.SaveLog(&DailyLog{Date: "2026-01-01", MedicineNo: 1, Status: StatusPending}))

	changed, err := s.MarkPendingLogMissed("2026-01-01", 1)
	require.NoError(t, err)
	assert.True(t, changed)

	// Second call is a no-op
	changed, err = s.MarkPendingLogMissed("2026-01-01", 1)
	require.NoError(t, err)
	assert.False(t, changed)

	// TAKEN rows are never flipped
	now := time.Now()
	require.NoError(t, s.SaveLog(&DailyLog{Date: "2026-01-01", MedicineNo: 2, Status: StatusTaken, TakenTime: &now}))
	changed, err = s.MarkPendingLogMissed("2026-01-01", 2)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestReportArchive_RoundTrip(t *testing.T) {
	s := setupTestStoreWithBadger(t)

	payload := []byte(`{"date":"2026-01-01"}`)
	rendered := []byte("MEDICINETT Daily Medicine Report")
	require.NoError(t, s.ArchiveReport("2026-01-01", payload, rendered))

	gotJSON, gotText, err := s.GetArchivedReport("2026-01-01")
	require.NoError(t, err)
	assert.Equal(t, payload, gotJSON)
	assert.Equal(t, rendered, gotText)
}

func TestReportArchive_AbsentIsNil(t *testing.T) {
	s := setupTestStoreWithBadger(t)

	gotJSON, gotText, err := s.GetArchivedReport("1999-12-31")
	require.NoError(t, err)
	assert.Nil(t, gotJSON)
	assert.Nil(t, gotText)
}
