package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/gmsas95/medicinett/internal/metrics"
)

func (s *Server) setupRoutes() {
	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(s.config.Security.AllowOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PATCH, DELETE, OPTIONS",
	}))

	s.app.Get("/api/health", s.handleHealth)
	s.app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	meds := s.app.Group("/api/medicines")

	// Report routes before the :medicineNo routes so "report" is not
	// captured as a medicine number.
	meds.Post("/report/data", s.handleReportData)
	meds.Post("/report", s.handleReportDocument)
	meds.Get("/report/archive/:date", s.handleArchivedReport)

	meds.Get("/", s.handleListMedicines)
	meds.Post("/", s.handleCreateMedicine)
	meds.Post("/seed", s.handleSeedMedicines)
	meds.Patch("/:medicineNo", s.handleUpdateMedicine)
	meds.Delete("/:medicineNo", s.handleDeleteMedicine)
	meds.Post("/:medicineNo/complete", s.handleMarkTaken)
	meds.Post("/:medicineNo/taken", s.handleSetTakenTime)

	s.app.Post("/api/voice/command", s.handleVoiceCommand)

	s.app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{"error": "not found"})
	})
}
