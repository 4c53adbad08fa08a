package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/csmht/signlab-api/internal/config"
	"github.com/csmht/signlab-api/internal/handler"
	"github.com/csmht/signlab-api/internal/middleware"
	"github.com/csmht/signlab-api/internal/models"
	"github.com/csmht/signlab-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ExperimentHandler *handler.ExperimentHandler
	SessionHandler    *handler.SessionHandler
	StepAccessHandler *handler.StepAccessHandler
	ProgressHandler   *handler.ProgressHandler
	QuizHandler       *handler.QuizHandler
	ReportHandler     *handler.ReportHandler
	AttendanceHandler *handler.AttendanceHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	teacherOnly := middleware.RequireRole(models.RoleTeacher, models.RoleAdmin)

	// Experiment authoring is a teacher surface.
	if deps.ExperimentHandler != nil {
		experiments := api.Group("/experiments", jwtMiddleware, teacherOnly)
		deps.ExperimentHandler.Register(experiments)
	}

	// Sessions mix teacher scheduling with student-facing step routes, so
	// role checks sit per subgroup rather than on the whole prefix.
	sessions := api.Group("/sessions", jwtMiddleware)
	if deps.SessionHandler != nil {
		scheduling := sessions.Group("", teacherOnly)
		deps.SessionHandler.Register(scheduling)
	}
	if deps.StepAccessHandler != nil {
		deps.StepAccessHandler.Register(sessions)
	}
	if deps.ProgressHandler != nil {
		deps.ProgressHandler.Register(sessions)
	}
	if deps.QuizHandler != nil {
		deps.QuizHandler.Register(sessions)
	}
	if deps.ReportHandler != nil {
		deps.ReportHandler.Register(sessions)
	}

	if deps.AttendanceHandler != nil {
		attendance := api.Group("/attendance", jwtMiddleware)
		attendance.Use("/scan", middleware.RateLimit("attendance-scan", 5, 10*time.Second))
		deps.AttendanceHandler.RegisterStudent(attendance)

		teacherSessions := sessions.Group("", teacherOnly)
		deps.AttendanceHandler.RegisterTeacher(teacherSessions)
	}
}
