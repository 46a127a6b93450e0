// Package services holds the CRM operations behind the HTTP handlers and the
// CLI: customers, leads, reminders, reports and CSV import/export.
package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"smartcrm/utils"
)

// Mailer delivers a single message or reports why it could not.
type Mailer interface {
	Send(ctx context.Context, msg utils.Message) error
}

// CompanyFinder guesses a company for a customer name.
type CompanyFinder interface {
	Company(ctx context.Context, name string) (string, error)
}

type Config struct {
	FromEmail         string
	DigestRecipients  []string
	StrictTransitions bool
}

// CRMService owns customers, leads and the reminders sent about them.
type CRMService struct {
	db        *gorm.DB
	mailer    Mailer
	companies CompanyFinder
	cfg       Config
	logger    *logrus.Entry
}

func NewCRMService(db *gorm.DB, mailer Mailer, companies CompanyFinder, cfg Config, logger *logrus.Entry) *CRMService {
	if logger == nil {
		logger = utils.ComponentLogger("crm")
	}
	return &CRMService{
		db:        db,
		mailer:    mailer,
		companies: companies,
		cfg:       cfg,
		logger:    logger,
	}
}
