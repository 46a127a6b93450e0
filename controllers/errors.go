package controller

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"smartcrm/services"
	"smartcrm/utils"
)

// respondError maps a service error onto the JSON error envelope. Anything
// not recognised is logged and reported as a 500.
func respondError(c *fiber.Ctx, logger *logrus.Entry, err error) error {
	var (
		delivery *services.DeliveryError
		bulk     *services.BulkError
	)

	switch {
	case errors.Is(err, services.ErrDuplicateCustomer), errors.Is(err, services.ErrUsernameTaken):
		return utils.ErrorResponse(c, fiber.StatusConflict, err.Error(), nil)
	case errors.Is(err, services.ErrNoLeads):
		return utils.ErrorResponse(c, fiber.StatusUnprocessableEntity, err.Error(), nil)
	case services.IsValidation(err):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	case errors.Is(err, services.ErrNotFound):
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Resource not found", err)
	case errors.Is(err, services.ErrInvalidCredentials):
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, err.Error(), nil)
	case errors.As(err, &delivery):
		// The data change behind the reminder is kept; only the mail failed.
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "Email could not be sent", err)
	case errors.As(err, &bulk):
		logger.WithError(err).WithField("op", bulk.Op).Error("Bulk operation rolled back")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Operation failed, no changes were applied", err)
	}

	logger.WithError(err).WithFields(logrus.Fields{
		"method": c.Method(),
		"path":   c.Path(),
	}).Error("Request failed")
	return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Internal server error", nil)
}

func paramID(c *fiber.Ctx) (uint, bool) {
	id := utils.ParseUint(c.Params("id"))
	return id, id != 0
}

func invalidID(c *fiber.Ctx) error {
	return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid ID", nil)
}

// queryPage reads ?page=, treating anything unparsable as the first page.
func queryPage(c *fiber.Ctx) int {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil {
		return 1
	}
	return page
}
