package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/gmsas95/medicinett/internal/errors"
	"github.com/gmsas95/medicinett/internal/report"
	"github.com/gmsas95/medicinett/internal/store"
	"github.com/gmsas95/medicinett/internal/voice"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"version":   "0.1.0",
		"timestamp": time.Now().Unix(),
	})
}

// handleListMedicines returns every medicine merged with its dose status for
// the requested day (default today)
func (s *Server) handleListMedicines(c *fiber.Ctx) error {
	views, err := s.engine.DeriveDayView(c.Query("date"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(views)
}

func (s *Server) handleCreateMedicine(c *fiber.Ctx) error {
	var req createMedicineRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	med := &store.Medicine{
		Name:          req.Name,
		ScheduledTime: req.ScheduledTime,
		Dosage:        req.Dosage,
		Frequency:     req.Frequency,
		TimeSlot:      req.TimeSlot,
	}
	if med.Frequency == "" {
		med.Frequency = store.FrequencyDaily
	}
	if med.TimeSlot == "" {
		med.TimeSlot = store.SlotMorning
	}

	if err := s.store.CreateMedicine(med); err != nil {
		return s.respondError(c, err)
	}
	return c.Status(201).JSON(med)
}

func (s *Server) handleUpdateMedicine(c *fiber.Ctx) error {
	no, err := c.ParamsInt("medicineNo")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid medicine number"})
	}

	var upd store.MedicineUpdate
	if err := c.BodyParser(&upd); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	med, err := s.store.UpdateMedicine(no, upd)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(med)
}

func (s *Server) handleDeleteMedicine(c *fiber.Ctx) error {
	no, err := c.ParamsInt("medicineNo")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid medicine number"})
	}

	if err := s.store.DeleteMedicine(no); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(204)
}

func (s *Server) handleMarkTaken(c *fiber.Ctx) error {
	no, err := c.ParamsInt("medicineNo")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid medicine number"})
	}

	log, err := s.engine.MarkTaken(no)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Medicine %d marked as taken", no),
		"log":     log,
	})
}

func (s *Server) handleSetTakenTime(c *fiber.Ctx) error {
	no, err := c.ParamsInt("medicineNo")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid medicine number"})
	}

	var req setTakenTimeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	var takenTime *time.Time
	if req.TakenTime != "" {
		parsed, err := time.Parse(time.RFC3339, req.TakenTime)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "takenTime must be RFC 3339"})
		}
		takenTime = &parsed
	}

	log, err := s.engine.SetTakenTime(no, takenTime, req.Date)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Taken time updated for medicine %d", no),
		"log":     log,
	})
}

func (s *Server) handleReportData(c *fiber.Ctx) error {
	var req reportRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	rep, err := s.builder.Build(req.Date)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(rep)
}

// handleReportDocument renders the report as a plain-text document, archives
// it, and returns it as a download
func (s *Server) handleReportDocument(c *fiber.Ctx) error {
	var req reportRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	rep, err := s.builder.Build(req.Date)
	if err != nil {
		return s.respondError(c, err)
	}
	rendered := report.Render(rep)

	if payload, err := json.Marshal(rep); err == nil {
		if err := s.store.ArchiveReport(rep.Date, payload, []byte(rendered)); err != nil {
			s.logger.Warn("Failed to archive report", zap.String("date", rep.Date), zap.Error(err))
		}
	}

	c.Set("Content-Type", "text/plain; charset=utf-8")
	c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="medicine-report-%s.txt"`, rep.Date))
	return c.SendString(rendered)
}

func (s *Server) handleArchivedReport(c *fiber.Ctx) error {
	date := c.Params("date")

	payload, rendered, err := s.store.GetArchivedReport(date)
	if err != nil {
		return s.respondError(c, err)
	}
	if payload == nil {
		return c.Status(404).JSON(fiber.Map{"error": "no archived report for date"})
	}
	return c.JSON(fiber.Map{
		"date":     date,
		"report":   json.RawMessage(payload),
		"document": string(rendered),
	})
}

func (s *Server) handleSeedMedicines(c *fiber.Ctx) error {
	if err := s.store.SeedMedicines(); err != nil {
		return s.respondError(c, err)
	}
	meds, err := s.store.ListMedicines()
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{
		"message":   "Medicines seeded",
		"medicines": meds,
	})
}

// handleVoiceCommand translates the transcript if needed, parses it into an
// intent and dispatches it
func (s *Server) handleVoiceCommand(c *fiber.Ctx) error {
	var req voiceCommandRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}
	if req.Text == "" {
		return c.Status(400).JSON(fiber.Map{"error": "text is required"})
	}

	text := s.translator.Translate(c.Context(), req.Text)
	intent := s.parser.Parse(text)

	switch intent.Kind {
	case voice.IntentMarkTaken:
		log, err := s.engine.MarkTaken(intent.MedicineNo)
		if err != nil {
			return s.respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"action":     "mark_taken",
			"medicineNo": intent.MedicineNo,
			"message":    fmt.Sprintf("Medicine %d marked as taken", intent.MedicineNo),
			"log":        log,
		})

	case voice.IntentAddMedicine:
		med := &store.Medicine{
			Name:          intent.Name,
			ScheduledTime: intent.ScheduledTime,
			Dosage:        intent.Dosage,
			Frequency:     store.FrequencyDaily,
			TimeSlot:      intent.TimeSlot,
		}
		if err := s.store.CreateMedicine(med); err != nil {
			return s.respondError(c, err)
		}
		return c.Status(201).JSON(fiber.Map{
			"action":   "add_medicine",
			"message":  fmt.Sprintf("Medicine %s added", med.Name),
			"medicine": med,
		})

	default:
		return c.Status(400).JSON(fiber.Map{
			"error": "could not understand command",
			"code":  apperrors.ErrBadRequest.Code,
			"text":  text,
		})
	}
}
