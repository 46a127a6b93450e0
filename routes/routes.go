package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	controller "smartcrm/controllers"
	"smartcrm/middleware"
	"smartcrm/predictor"
	"smartcrm/services"
	"smartcrm/utils"
)

const requestLogFormat = "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path}\n"

// Dependencies is everything the HTTP layer needs from main.
type Dependencies struct {
	DB        *gorm.DB
	Users     *services.UserService
	CRM       *services.CRMService
	Reports   *services.ReportService
	CSV       *services.CSVService
	Predictor *predictor.Predictor

	// ReminderLimit is the number of reminder requests allowed per user and
	// minute. RateLimitStorage may be nil for in-memory counters.
	ReminderLimit    int
	RateLimitStorage fiber.Storage
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(middleware.Metrics())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	SetupAuthRoutes(app, deps)
	SetupAPIRoutes(app, deps)
}

func SetupAuthRoutes(app *fiber.App, deps Dependencies) {
	authController := controller.NewAuthController(deps.Users, utils.ComponentLogger("auth"))

	auth := app.Group("/auth", logger.New(logger.Config{Format: requestLogFormat}))

	// Public auth endpoints (no authentication required)
	auth.Post("/register", authController.Register)
	auth.Post("/login", authController.Login)
	auth.Post("/refresh", authController.RefreshToken)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected(deps.DB))
	protectedAuth.Post("/logout", authController.Logout)
	protectedAuth.Get("/me", authController.GetCurrentUser)
	protectedAuth.Delete("/me", authController.DeleteAccount)
}

func SetupAPIRoutes(app *fiber.App, deps Dependencies) {
	customerController := controller.NewCustomerController(deps.CRM, utils.ComponentLogger("customers"))
	leadController := controller.NewLeadController(deps.CRM, utils.ComponentLogger("leads"))
	reminderController := controller.NewReminderController(deps.CRM, utils.ComponentLogger("reminders"))
	dashboardController := controller.NewDashboardController(deps.Reports, deps.CRM, utils.ComponentLogger("dashboard"))
	predictionController := controller.NewPredictionController(deps.Predictor, utils.ComponentLogger("predictor"))
	csvController := controller.NewImportExportController(deps.CSV, utils.ComponentLogger("csv"))

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(deps.DB), logger.New(logger.Config{
		Format: requestLogFormat,
	}))

	limit := middleware.ReminderRateLimiter(deps.ReminderLimit, deps.RateLimitStorage)

	// Customer routes
	customers := api.Group("/customers")
	customers.Get("/", customerController.GetCustomers)
	customers.Post("/", customerController.CreateCustomer)
	customers.Delete("/", customerController.DeleteAllCustomers)
	customers.Get("/:id", customerController.GetCustomer)
	customers.Put("/:id", customerController.UpdateCustomer)
	customers.Delete("/:id", customerController.DeleteCustomer)
	customers.Post("/:id/send-reminders", limit, customerController.SendLeadReminders)
	customers.Post("/:id/send-reminder", limit, customerController.SendReminder)

	// Lead routes
	leads := api.Group("/leads")
	leads.Get("/", leadController.GetLeads)
	leads.Post("/", leadController.CreateLead)
	leads.Delete("/", leadController.DeleteAllLeads)
	leads.Get("/:id", leadController.GetLead)
	leads.Put("/:id", leadController.UpdateLead)
	leads.Delete("/:id", leadController.DeleteLead)

	api.Post("/reminders/digest", limit, reminderController.SendDigest)

	api.Get("/dashboard", dashboardController.GetDashboard)
	api.Get("/calendar/events", dashboardController.GetCalendarEvents)

	// Prediction routes
	api.Post("/predict", predictionController.Predict)
	api.Get("/predict/features", predictionController.GetFeatureImportance)

	// CSV routes
	api.Post("/import/customers", csvController.ImportCustomers)
	api.Post("/import/leads", csvController.ImportLeads)
	api.Get("/export/customers", csvController.ExportCustomers)
	api.Get("/export/leads", csvController.ExportLeads)
}
