package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"smartcrm/services"
	"smartcrm/utils"
)

type CustomerController struct {
	CRM    *services.CRMService
	Logger *logrus.Entry
}

func NewCustomerController(crm *services.CRMService, logger *logrus.Entry) *CustomerController {
	return &CustomerController{CRM: crm, Logger: logger}
}

// GetCustomers returns one page of customers, optionally filtered by a
// case-insensitive search over name, email and company.
func (cc *CustomerController) GetCustomers(c *fiber.Ctx) error {
	page, err := cc.CRM.SearchCustomers(c.UserContext(), c.Query("search"), queryPage(c))
	if err != nil {
		return respondError(c, cc.Logger, err)
	}

	return c.JSON(utils.SuccessResponse(utils.PaginatedResponse{
		Data:       page.Items,
		Total:      page.Total,
		Page:       page.Page,
		Limit:      page.PageSize,
		TotalPages: page.TotalPages,
	}))
}

func (cc *CustomerController) CreateCustomer(c *fiber.Ctx) error {
	var input services.CustomerInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	customer, err := cc.CRM.CreateCustomer(c.UserContext(), input)
	if err != nil {
		return respondError(c, cc.Logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(customer))
}

// GetCustomer returns the customer with its leads, newest first.
func (cc *CustomerController) GetCustomer(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return invalidID(c)
	}

	customer, err := cc.CRM.GetCustomer(c.UserContext(), id)
	if err != nil {
		return respondError(c, cc.Logger, err)
	}

	return c.JSON(utils.SuccessResponse(customer))
}

func (cc *CustomerController) UpdateCustomer(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return invalidID(c)
	}

	var input services.CustomerInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	customer, err := cc.CRM.UpdateCustomer(c.UserContext(), id, input)
	if err != nil {
		return respondError(c, cc.Logger, err)
	}

	return c.JSON(utils.SuccessResponse(customer))
}

func (cc *CustomerController) DeleteCustomer(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return invalidID(c)
	}

	if err := cc.CRM.DeleteCustomer(c.UserContext(), id); err != nil {
		return respondError(c, cc.Logger, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (cc *CustomerController) DeleteAllCustomers(c *fiber.Ctx) error {
	deleted, err := cc.CRM.DeleteAllCustomers(c.UserContext())
	if err != nil {
		return respondError(c, cc.Logger, err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"deleted": deleted,
		"message": "All customers have been deleted.",
	}))
}

// SendLeadReminders mails the customer a summary of all their leads.
func (cc *CustomerController) SendLeadReminders(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return invalidID(c)
	}

	if err := cc.CRM.SendLeadStatusReminder(c.UserContext(), id); err != nil {
		return respondError(c, cc.Logger, err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"message": "Lead status reminder sent successfully."}))
}

// SendReminder mails the customer a generic follow-up.
func (cc *CustomerController) SendReminder(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return invalidID(c)
	}

	if err := cc.CRM.SendFollowUpReminder(c.UserContext(), id); err != nil {
		return respondError(c, cc.Logger, err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"message": "Reminder sent successfully."}))
}
