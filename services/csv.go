package services

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"smartcrm/models"
	"smartcrm/utils"
)

var (
	customerExportHeader = []string{"Name", "Email", "Phone", "Company", "Created"}
	leadExportHeader     = []string{"customer", "title", "status", "follow_up_date"}

	customerImportColumns = []string{"name", "email", "phone", "company"}
	leadImportColumns     = []string{"customer", "title", "status", "follow_up_date"}
)

// ImportReport counts what happened to each data row of an import.
type ImportReport struct {
	Rows             int `json:"rows"`
	Created          int `json:"created"`
	Existing         int `json:"existing"`
	Skipped          int `json:"skipped"`
	Conflicts        int `json:"conflicts"`
	CustomersCreated int `json:"customers_created,omitempty"`
}

// CSVService imports and exports customers and leads.
type CSVService struct {
	db     *gorm.DB
	logger *logrus.Entry
}

func NewCSVService(db *gorm.DB, logger *logrus.Entry) *CSVService {
	if logger == nil {
		logger = utils.ComponentLogger("csv")
	}
	return &CSVService{db: db, logger: logger}
}

// ExportCustomers writes every customer with a header row.
func (s *CSVService) ExportCustomers(ctx context.Context, w io.Writer) error {
	var customers []models.Customer
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&customers).Error; err != nil {
		return fmt.Errorf("load customers: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(customerExportHeader); err != nil {
		return err
	}
	for _, c := range customers {
		record := []string{c.Name, c.Email, c.Phone, c.Company, c.CreatedAt.UTC().Format(time.RFC3339)}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportLeads writes every lead in the column layout ImportLeads reads.
func (s *CSVService) ExportLeads(ctx context.Context, w io.Writer) error {
	var leads []models.Lead
	if err := s.db.WithContext(ctx).Preload("Customer").Order("id ASC").Find(&leads).Error; err != nil {
		return fmt.Errorf("load leads: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(leadExportHeader); err != nil {
		return err
	}
	for _, l := range leads {
		customer := ""
		if l.Customer != nil {
			customer = l.Customer.Name
		}
		followUp := ""
		if l.FollowUpDate != nil {
			followUp = l.FollowUpDate.String()
		}
		if err := cw.Write([]string{customer, l.Title, string(l.Status), followUp}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ImportCustomers creates a customer per row unless one with the same name,
// email, phone and company already exists. A row that shares name and email
// with a customer but differs elsewhere is counted as a conflict and skipped.
func (s *CSVService) ImportCustomers(ctx context.Context, r io.Reader) (ImportReport, error) {
	var report ImportReport
	err := s.importRows(ctx, r, customerImportColumns, func(tx *gorm.DB, line int, row map[string]string) error {
		report.Rows++
		if row == nil {
			report.Skipped++
			s.skip(line, "wrong number of columns")
			return nil
		}
		in := CustomerInput{
			Name:    row["name"],
			Email:   row["email"],
			Phone:   row["phone"],
			Company: row["company"],
		}.normalize()
		if in.Name == "" {
			report.Skipped++
			s.skip(line, "name is empty")
			return nil
		}

		var existing models.Customer
		err := tx.Where("name = ? AND email = ?", in.Name, in.Email).Take(&existing).Error
		switch {
		case err == nil:
			if existing.Phone == in.Phone && existing.Company == in.Company {
				report.Existing++
			} else {
				report.Conflicts++
				s.skip(line, ErrDuplicateCustomer.Error())
			}
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		customer := models.Customer{Name: in.Name, Email: in.Email, Phone: in.Phone, Company: in.Company}
		if err := tx.Create(&customer).Error; err != nil {
			return err
		}
		report.Created++
		return nil
	})
	if err != nil {
		return ImportReport{}, &BulkError{Op: "import customers", Err: err}
	}

	s.record("customers", report)
	return report, nil
}

// ImportLeads creates a lead per row unless an identical one exists. The
// customer is matched by name only and created when missing.
func (s *CSVService) ImportLeads(ctx context.Context, r io.Reader) (ImportReport, error) {
	var report ImportReport
	err := s.importRows(ctx, r, leadImportColumns, func(tx *gorm.DB, line int, row map[string]string) error {
		report.Rows++
		if row == nil {
			report.Skipped++
			s.skip(line, "wrong number of columns")
			return nil
		}
		name := strings.TrimSpace(row["customer"])
		title := strings.TrimSpace(row["title"])
		if name == "" || title == "" {
			report.Skipped++
			s.skip(line, "customer and title are required")
			return nil
		}
		status, ok := models.ParseLeadStatus(row["status"])
		if !ok {
			report.Skipped++
			s.skip(line, fmt.Sprintf("unknown status %q", row["status"]))
			return nil
		}
		var followUp *models.Date
		if raw := strings.TrimSpace(row["follow_up_date"]); raw != "" {
			d, err := models.ParseDate(raw)
			if err != nil {
				report.Skipped++
				s.skip(line, err.Error())
				return nil
			}
			followUp = &d
		}

		var customer models.Customer
		res := tx.Where(models.Customer{Name: name}).Order("id ASC").Limit(1).Find(&customer)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			customer = models.Customer{Name: name}
			if err := tx.Create(&customer).Error; err != nil {
				return err
			}
			report.CustomersCreated++
		}

		query := tx.Model(&models.Lead{}).Where("title = ? AND customer_id = ? AND status = ?", title, customer.ID, status)
		if followUp != nil {
			query = query.Where("follow_up_date = ?", *followUp)
		} else {
			query = query.Where("follow_up_date IS NULL")
		}
		var count int64
		if err := query.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			report.Existing++
			return nil
		}

		lead := models.Lead{CustomerID: customer.ID, Title: title, Status: status, FollowUpDate: followUp}
		if err := tx.Create(&lead).Error; err != nil {
			return err
		}
		report.Created++
		return nil
	})
	if err != nil {
		return ImportReport{}, &BulkError{Op: "import leads", Err: err}
	}

	s.record("leads", report)
	return report, nil
}

type rowHandler func(tx *gorm.DB, line int, row map[string]string) error

// importRows reads a header keyed CSV stream and hands each row to fn inside
// one transaction. Header names are matched case-insensitively.
func (s *CSVService) importRows(ctx context.Context, r io.Reader, required []string, fn rowHandler) error {
	cr := csv.NewReader(skipBOM(r))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("csv file is empty")
		}
		return fmt.Errorf("read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return fmt.Errorf("csv header is missing column %q", col)
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for {
			record, err := cr.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read csv: %w", err)
			}
			line, _ := cr.FieldPos(0)

			// A nil row marks a record with the wrong number of fields.
			var row map[string]string
			if len(record) == len(header) {
				row = make(map[string]string, len(required))
				for _, col := range required {
					row[col] = record[index[col]]
				}
			}
			if err := fn(tx, line, row); err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
		}
	})
}

func (s *CSVService) skip(line int, reason string) {
	s.logger.WithFields(logrus.Fields{"line": line, "reason": reason}).Warn("Skipping csv row")
}

func (s *CSVService) record(entity string, report ImportReport) {
	utils.RowsImported.WithLabelValues(entity, "created").Add(float64(report.Created))
	utils.RowsImported.WithLabelValues(entity, "existing").Add(float64(report.Existing))
	utils.RowsImported.WithLabelValues(entity, "skipped").Add(float64(report.Skipped + report.Conflicts))

	utils.LogEvent("csv_import", map[string]interface{}{
		"entity":    entity,
		"rows":      report.Rows,
		"created":   report.Created,
		"existing":  report.Existing,
		"skipped":   report.Skipped,
		"conflicts": report.Conflicts,
	})
}

// skipBOM drops a leading UTF-8 byte order mark, which spreadsheet exports
// often carry.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && string(b) == "\xef\xbb\xbf" {
		_, _ = br.Discard(3)
	}
	return br
}
