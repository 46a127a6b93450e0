package controller

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"smartcrm/services"
	"smartcrm/utils"
)

// csvFormField is the multipart field carrying an uploaded CSV file.
const csvFormField = "csv_file"

type ImportExportController struct {
	CSV    *services.CSVService
	Logger *logrus.Entry
}

func NewImportExportController(csvService *services.CSVService, logger *logrus.Entry) *ImportExportController {
	return &ImportExportController{CSV: csvService, Logger: logger}
}

func (ic *ImportExportController) ImportCustomers(c *fiber.Ctx) error {
	return ic.importFile(c, ic.CSV.ImportCustomers)
}

func (ic *ImportExportController) ImportLeads(c *fiber.Ctx) error {
	return ic.importFile(c, ic.CSV.ImportLeads)
}

func (ic *ImportExportController) ExportCustomers(c *fiber.Ctx) error {
	return ic.exportFile(c, "customers", ic.CSV.ExportCustomers)
}

func (ic *ImportExportController) ExportLeads(c *fiber.Ctx) error {
	return ic.exportFile(c, "leads", ic.CSV.ExportLeads)
}

func (ic *ImportExportController) importFile(c *fiber.Ctx, run func(context.Context, io.Reader) (services.ImportReport, error)) error {
	header, err := c.FormFile(csvFormField)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "CSV file is required", err)
	}

	file, err := header.Open()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Failed to open file", err)
	}
	defer file.Close()

	report, err := run(c.UserContext(), file)
	if err != nil {
		return respondError(c, ic.Logger, err)
	}

	return c.JSON(utils.SuccessResponse(report))
}

func (ic *ImportExportController) exportFile(c *fiber.Ctx, name string, run func(context.Context, io.Writer) error) error {
	var buf bytes.Buffer
	if err := run(c.UserContext(), &buf); err != nil {
		return respondError(c, ic.Logger, err)
	}

	filename := fmt.Sprintf("%s_%s.csv", name, time.Now().Format("20060102"))
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(buf.Bytes())
}
