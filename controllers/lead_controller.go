package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"smartcrm/services"
	"smartcrm/utils"
)

type LeadController struct {
	CRM    *services.CRMService
	Logger *logrus.Entry
}

func NewLeadController(crm *services.CRMService, logger *logrus.Entry) *LeadController {
	return &LeadController{CRM: crm, Logger: logger}
}

// GetLeads returns one page of leads. Unknown sort keys fall back to the
// follow-up date.
func (lc *LeadController) GetLeads(c *fiber.Ctx) error {
	sortBy := services.NormalizeLeadSort(c.Query("sort_by"))
	page, err := lc.CRM.ListLeads(c.UserContext(), sortBy, queryPage(c))
	if err != nil {
		return respondError(c, lc.Logger, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"sort_by": sortBy,
		"data": utils.PaginatedResponse{
			Data:       page.Items,
			Total:      page.Total,
			Page:       page.Page,
			Limit:      page.PageSize,
			TotalPages: page.TotalPages,
		},
	})
}

func (lc *LeadController) CreateLead(c *fiber.Ctx) error {
	var input services.LeadInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	lead, err := lc.CRM.CreateLead(c.UserContext(), input)
	if err != nil {
		return respondError(c, lc.Logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(lead))
}

func (lc *LeadController) GetLead(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return invalidID(c)
	}

	lead, err := lc.CRM.GetLead(c.UserContext(), id)
	if err != nil {
		return respondError(c, lc.Logger, err)
	}

	return c.JSON(utils.SuccessResponse(lead))
}

func (lc *LeadController) UpdateLead(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return invalidID(c)
	}

	var input services.LeadInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	lead, err := lc.CRM.UpdateLead(c.UserContext(), id, input)
	if err != nil {
		return respondError(c, lc.Logger, err)
	}

	return c.JSON(utils.SuccessResponse(lead))
}

func (lc *LeadController) DeleteLead(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return invalidID(c)
	}

	if err := lc.CRM.DeleteLead(c.UserContext(), id); err != nil {
		return respondError(c, lc.Logger, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (lc *LeadController) DeleteAllLeads(c *fiber.Ctx) error {
	deleted, err := lc.CRM.DeleteAllLeads(c.UserContext())
	if err != nil {
		return respondError(c, lc.Logger, err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"deleted": deleted,
		"message": "All leads have been deleted.",
	}))
}
