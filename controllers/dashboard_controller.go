package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"smartcrm/services"
	"smartcrm/utils"
)

type DashboardController struct {
	Reports *services.ReportService
	CRM     *services.CRMService
	Logger  *logrus.Entry
}

func NewDashboardController(reports *services.ReportService, crm *services.CRMService, logger *logrus.Entry) *DashboardController {
	return &DashboardController{Reports: reports, CRM: crm, Logger: logger}
}

// GetDashboard returns the totals and chart data of the home screen.
func (dc *DashboardController) GetDashboard(c *fiber.Ctx) error {
	dashboard, err := dc.Reports.Dashboard(c.UserContext())
	if err != nil {
		return respondError(c, dc.Logger, err)
	}

	return c.JSON(utils.SuccessResponse(dashboard))
}

// GetCalendarEvents returns every lead with a follow-up date as a calendar
// event. The body is a bare array, the shape calendar widgets consume.
func (dc *DashboardController) GetCalendarEvents(c *fiber.Ctx) error {
	events, err := dc.CRM.CalendarEvents(c.UserContext())
	if err != nil {
		dc.Logger.WithError(err).Error("Failed to load calendar events")
		return c.JSON([]services.CalendarEvent{})
	}

	return c.JSON(events)
}
