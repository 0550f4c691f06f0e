package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gmsas95/medicinett/internal/adherence"
	"github.com/gmsas95/medicinett/internal/config"
	"github.com/gmsas95/medicinett/internal/report"
	"github.com/gmsas95/medicinett/internal/store"
)

func setupTestServer(t *testing.T) (*Server, *store.Store) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	opts := badger.DefaultOptions(t.TempDir()).WithLogger(nil)
	kv, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	st, err := store.NewStore(db, kv)
	require.NoError(t, err)

	logger, _ := zap.NewDevelopment()
	now := func() time.Time {
		return time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	}

	cfg := &config.Config{
		Server:   config.ServerConfig{Address: "127.0.0.1", Port: 5000, ReadTimeout: 30, WriteTimeout: 30},
		Voice:    config.VoiceConfig{TranslateEnabled: false},
		Security: config.SecurityConfig{AllowOrigins: []string{"*"}},
	}

	engine := adherence.New(st, logger).WithClock(now)
	builder := report.New(st, logger).WithClock(now)
	return New(cfg, st, engine, builder, logger), st
}

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestHealth(t *testing.T) {
	s, _ := setupTestServer(t)

	resp, err := s.app.Test(jsonRequest("GET", "/api/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	assert.Equal(t, "healthy", body["status"])
}

func TestCreateAndListMedicines(t *testing.T) {
	s, _ := setupTestServer(t)

	resp, err := s.app.Test(jsonRequest("POST", "/api/medicines", fiberMap{
		"name": "Paracetamol", "scheduledTime": "09:00", "timeSlot": "Morning",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)

	var created store.Medicine
	decodeBody(t, resp, &created)
	assert.Equal(t, 1, created.MedicineNo)
	assert.Equal(t, store.FrequencyDaily, created.Frequency)

	resp, err = s.app.Test(jsonRequest("GET", "/api/medicines", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var views []map[string]any
	decodeBody(t, resp, &views)
	require.Len(t, views, 1)
	assert.Equal(t, "PENDING", views[0]["status"])
}

func TestCreateMedicine_Invalid(t *testing.T) {
	s, _ := setupTestServer(t)

	resp, err := s.app.Test(jsonRequest("POST", "/api/medicines", fiberMap{
		"name": "X", "scheduledTime": "25:99",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	assert.Equal(t, "MED_003", body["code"])
}

func TestMarkTaken_Lifecycle(t *testing.T) {
	s, st := setupTestServer(t)
	require.NoError(t, st.SeedMedicines())

	resp, err := s.app.Test(jsonRequest("POST", "/api/medicines/1/complete", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	resp.Body.Close()

	// Second mark for the same day is rejected
	resp, err = s.app.Test(jsonRequest("POST", "/api/medicines/1/complete", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	assert.Equal(t, "MED_002", body["code"])

	// Unknown medicine
	resp, err = s.app.Test(jsonRequest("POST", "/api/medicines/99/complete", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	resp.Body.Close()
}

func TestSetTakenTime_OverwritesTakenRow(t *testing.T) {
	s, st := setupTestServer(t)
	require.NoError(t, st.SeedMedicines())

	resp, err := s.app.Test(jsonRequest("POST", "/api/medicines/1/complete", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	resp.Body.Close()

	resp, err = s.app.Test(jsonRequest("POST", "/api/medicines/1/taken", fiberMap{
		"takenTime": "2026-03-10T09:45:00Z",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	resp.Body.Close()

	log, err := st.GetLog("2026-03-10", 1)
	require.NoError(t, err)
	require.NotNil(t, log)
	assert.Equal(t, "09:45", log.TakenTime.UTC().Format("15:04"))
}

func TestSetTakenTime_RejectsBadTimestamp(t *testing.T) {
	s, st := setupTestServer(t)
	require.NoError(t, st.SeedMedicines())

	resp, err := s.app.Test(jsonRequest("POST", "/api/medicines/1/taken", fiberMap{
		"takenTime": "yesterday at nine",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
	resp.Body.Close()
}

func TestUpdateAndDeleteMedicine(t *testing.T) {
	s, st := setupTestServer(t)
	require.NoError(t, st.SeedMedicines())

	resp, err := s.app.Test(jsonRequest("PATCH", "/api/medicines/1", fiberMap{
		"name": "Paracetamol 500mg",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var med store.Medicine
	decodeBody(t, resp, &med)
	assert.Equal(t, "Paracetamol 500mg", med.Name)

	resp, err = s.app.Test(jsonRequest("PATCH", "/api/medicines/99", fiberMap{"name": "X"}), -1)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	resp.Body.Close()

	resp, err = s.app.Test(jsonRequest("DELETE", "/api/medicines/1", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)

	resp, err = s.app.Test(jsonRequest("DELETE", "/api/medicines/1", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	resp.Body.Close()
}

func TestSeedMedicines(t *testing.T) {
	s, _ := setupTestServer(t)

	resp, err := s.app.Test(jsonRequest("POST", "/api/medicines/seed", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)

	var body struct {
		Medicines []store.Medicine `json:"medicines"`
	}
	decodeBody(t, resp, &body)
	assert.Len(t, body.Medicines, 4)
}

func TestReportData(t *testing.T) {
	s, st := setupTestServer(t)

	// Empty registry has nothing to report on
	resp, err := s.app.Test(jsonRequest("POST", "/api/medicines/report/data", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	var errBody map[string]any
	decodeBody(t, resp, &errBody)
	assert.Equal(t, "REPORT_001", errBody["code"])

	require.NoError(t, st.SeedMedicines())
	resp, err = s.app.Test(jsonRequest("POST", "/api/medicines/report/data", fiberMap{
		"date": "2026-03-10",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var rep report.Report
	decodeBody(t, resp, &rep)
	assert.Equal(t, "2026-03-10", rep.Date)
	assert.Len(t, rep.Rows, 4)
	assert.Equal(t, 4, rep.Summary.Pending)
}

func TestReportDocument_RendersAndArchives(t *testing.T) {
	s, st := setupTestServer(t)
	require.NoError(t, st.SeedMedicines())

	resp, err := s.app.Test(jsonRequest("POST", "/api/medicines/report", fiberMap{
		"date": "2026-03-10",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "medicine-report-2026-03-10.txt")

	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Daily Medicine Report")
	assert.Contains(t, string(raw), "Paracetamol")

	resp, err = s.app.Test(jsonRequest("GET", "/api/medicines/report/archive/2026-03-10", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var archived map[string]any
	decodeBody(t, resp, &archived)
	assert.Equal(t, "2026-03-10", archived["date"])
	assert.Contains(t, archived["document"], "Daily Medicine Report")
}

func TestArchivedReport_NotFound(t *testing.T) {
	s, _ := setupTestServer(t)

	resp, err := s.app.Test(jsonRequest("GET", "/api/medicines/report/archive/1999-01-01", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	resp.Body.Close()
}

func TestVoiceCommand_MarkTaken(t *testing.T) {
	s, st := setupTestServer(t)
	require.NoError(t, st.SeedMedicines())

	resp, err := s.app.Test(jsonRequest("POST", "/api/voice/command", fiberMap{
		"text": "medicine 2 completed",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	assert.Equal(t, "mark_taken", body["action"])

	log, err := st.GetLog("2026-03-10", 2)
	require.NoError(t, err)
	require.NotNil(t, log)
	assert.Equal(t, store.StatusTaken, log.Status)
}

func TestVoiceCommand_AddMedicine(t *testing.T) {
	s, st := setupTestServer(t)

	resp, err := s.app.Test(jsonRequest("POST", "/api/voice/command", fiberMap{
		"text": "add medicine Aspirin at 21:00 slot night dosage 1 tablet",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	assert.Equal(t, "add_medicine", body["action"])

	med, err := st.GetMedicine(1)
	require.NoError(t, err)
	require.NotNil(t, med)
	assert.Equal(t, "Aspirin", med.Name)
	assert.Equal(t, store.SlotNight, med.TimeSlot)
	assert.Equal(t, "1 tablet", med.Dosage)
}

func TestVoiceCommand_Unrecognized(t *testing.T) {
	s, _ := setupTestServer(t)

	resp, err := s.app.Test(jsonRequest("POST", "/api/voice/command", fiberMap{
		"text": "play some music",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	assert.Equal(t, "could not understand command", body["error"])
}

type fiberMap = map[string]any
