package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"smartcrm/models"
	"smartcrm/services"
	"smartcrm/utils"
)

type ReminderController struct {
	CRM    *services.CRMService
	Logger *logrus.Entry
}

func NewReminderController(crm *services.CRMService, logger *logrus.Entry) *ReminderController {
	return &ReminderController{CRM: crm, Logger: logger}
}

// SendDigest mails the configured recipients about every lead whose follow-up
// is due today or earlier. Individual delivery failures are listed in the
// report rather than failing the request.
func (rc *ReminderController) SendDigest(c *fiber.Ctx) error {
	report, err := rc.CRM.SendDueFollowUps(c.UserContext(), models.Today())
	if err != nil {
		return respondError(c, rc.Logger, err)
	}

	return c.JSON(utils.SuccessResponse(report))
}
