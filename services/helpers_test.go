package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"smartcrm/models"
	"smartcrm/utils"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Customer{}, &models.Lead{}))
	return db
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg utils.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type fixedCompany string

func (f fixedCompany) Company(_ context.Context, _ string) (string, error) {
	return string(f), nil
}

type testEnv struct {
	db     *gorm.DB
	mailer *MockMailer
	crm    *CRMService
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	db := newTestDB(t)
	mailer := &MockMailer{}
	if cfg.FromEmail == "" {
		cfg.FromEmail = "crm@example.com"
	}
	return &testEnv{
		db:     db,
		mailer: mailer,
		crm:    NewCRMService(db, mailer, fixedCompany("Google India"), cfg, testLogger()),
	}
}

func (e *testEnv) customer(t *testing.T, name, email string) *models.Customer {
	t.Helper()
	c := &models.Customer{Name: name, Email: email, Company: "Acme"}
	require.NoError(t, e.db.Create(c).Error)
	return c
}

func (e *testEnv) lead(t *testing.T, customerID uint, title string, status models.LeadStatus, followUp *models.Date) *models.Lead {
	t.Helper()
	l := &models.Lead{CustomerID: customerID, Title: title, Status: status, FollowUpDate: followUp}
	require.NoError(t, e.db.Create(l).Error)
	return l
}

func (e *testEnv) leads(t *testing.T, customerID uint, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		e.lead(t, customerID, fmt.Sprintf("Lead %02d", i), models.LeadStatusNew, nil)
	}
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func datePtr(y int, m time.Month, d int) *models.Date {
	date := models.NewDate(y, m, d)
	return &date
}
