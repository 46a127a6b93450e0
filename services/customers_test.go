package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"smartcrm/models"
)

func TestCreateCustomerFillsBlankCompany(t *testing.T) {
	env := newTestEnv(t, Config{})

	c, err := env.crm.CreateCustomer(context.Background(), CustomerInput{
		Name:  "  Google Cloud ",
		Email: "cloud@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "Google Cloud", c.Name)
	assert.Equal(t, "Google India", c.Company)
	assert.NotZero(t, c.CreatedAt)
}

func TestCreateCustomerKeepsGivenCompany(t *testing.T) {
	env := newTestEnv(t, Config{})

	c, err := env.crm.CreateCustomer(context.Background(), CustomerInput{
		Name: "Ann", Email: "ann@example.com", Company: "Initech",
	})
	require.NoError(t, err)
	assert.Equal(t, "Initech", c.Company)
}

func TestCreateCustomerRejectsDuplicateNameAndEmail(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	in := CustomerInput{Name: "Ann", Email: "ann@example.com"}

	_, err := env.crm.CreateCustomer(ctx, in)
	require.NoError(t, err)

	_, err = env.crm.CreateCustomer(ctx, in)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateCustomer)
	assert.True(t, IsValidation(err))
	assert.Equal(t, int64(1), countRows(t, env.db, &models.Customer{}))

	// Same name with another email is a different customer.
	_, err = env.crm.CreateCustomer(ctx, CustomerInput{Name: "Ann", Email: "ann@other.com"})
	assert.NoError(t, err)
}

func TestCreateCustomerValidation(t *testing.T) {
	env := newTestEnv(t, Config{})

	_, err := env.crm.CreateCustomer(context.Background(), CustomerInput{Name: "", Email: "not-an-email"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "name is required")
	assert.Equal(t, int64(0), countRows(t, env.db, &models.Customer{}))
}

func TestUpdateCustomerKeepsCreatedAt(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	created := time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)
	original := &models.Customer{Name: "Ann", Email: "ann@example.com", CreatedAt: created}
	require.NoError(t, env.db.Create(original).Error)

	updated, err := env.crm.UpdateCustomer(ctx, original.ID, CustomerInput{
		Name: "Ann Smith", Email: "ann@example.com", Phone: "555-1234",
	})
	require.NoError(t, err)

	assert.Equal(t, "Ann Smith", updated.Name)
	assert.Equal(t, "555-1234", updated.Phone)
	assert.Equal(t, "", updated.Company)
	assert.True(t, created.Equal(updated.CreatedAt), "created_at changed to %v", updated.CreatedAt)
}

func TestUpdateCustomerDuplicateAndNotFound(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	env.customer(t, "Ann", "ann@example.com")
	bob := env.customer(t, "Bob", "bob@example.com")

	_, err := env.crm.UpdateCustomer(ctx, bob.ID, CustomerInput{Name: "Ann", Email: "ann@example.com"})
	assert.ErrorIs(t, err, ErrDuplicateCustomer)

	// Saving a customer unchanged is not a duplicate of itself.
	_, err = env.crm.UpdateCustomer(ctx, bob.ID, CustomerInput{Name: "Bob", Email: "bob@example.com"})
	assert.NoError(t, err)

	_, err = env.crm.UpdateCustomer(ctx, 999, CustomerInput{Name: "Zed", Email: "zed@example.com"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetCustomerIncludesLeads(t *testing.T) {
	env := newTestEnv(t, Config{})
	c := env.customer(t, "Ann", "ann@example.com")
	env.leads(t, c.ID, 3)

	got, err := env.crm.GetCustomer(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Len(t, got.Leads, 3)

	_, err = env.crm.GetCustomer(context.Background(), c.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCustomerCascadesToLeads(t *testing.T) {
	env := newTestEnv(t, Config{})
	ann := env.customer(t, "Ann", "ann@example.com")
	bob := env.customer(t, "Bob", "bob@example.com")
	env.leads(t, ann.ID, 3)
	env.leads(t, bob.ID, 2)

	require.NoError(t, env.crm.DeleteCustomer(context.Background(), ann.ID))

	assert.Equal(t, int64(1), countRows(t, env.db, &models.Customer{}))
	var remaining []models.Lead
	require.NoError(t, env.db.Find(&remaining).Error)
	require.Len(t, remaining, 2)
	for _, l := range remaining {
		assert.Equal(t, bob.ID, l.CustomerID)
	}

	assert.ErrorIs(t, env.crm.DeleteCustomer(context.Background(), ann.ID), ErrNotFound)
}

func TestDeleteAllCustomers(t *testing.T) {
	env := newTestEnv(t, Config{})
	for i := 0; i < 4; i++ {
		c := env.customer(t, fmt.Sprintf("Customer %d", i), fmt.Sprintf("c%d@example.com", i))
		env.leads(t, c.ID, 2)
	}

	n, err := env.crm.DeleteAllCustomers(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(4), n)
	assert.Equal(t, int64(0), countRows(t, env.db, &models.Customer{}))
	assert.Equal(t, int64(0), countRows(t, env.db, &models.Lead{}))
}

func TestDeleteAllCustomersRollsBackOnFailure(t *testing.T) {
	env := newTestEnv(t, Config{})
	c := env.customer(t, "Ann", "ann@example.com")
	env.leads(t, c.ID, 3)

	failOnTable(t, env.db, "customers")

	n, err := env.crm.DeleteAllCustomers(context.Background())
	require.Error(t, err)
	var bulkErr *BulkError
	assert.True(t, errors.As(err, &bulkErr))
	assert.Zero(t, n)

	assert.Equal(t, int64(1), countRows(t, env.db, &models.Customer{}))
	assert.Equal(t, int64(3), countRows(t, env.db, &models.Lead{}))
}

func TestSearchCustomers(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	require.NoError(t, env.db.Create(&[]models.Customer{
		{Name: "Ann Lee", Email: "ann@example.com", Company: "Initech"},
		{Name: "Bob", Email: "bob@GLOBEX.com", Company: ""},
		{Name: "Cara", Email: "cara@example.com", Company: "Globex Corp"},
		{Name: "Dan_100%", Email: "dan@example.com", Company: ""},
	}).Error)

	page, err := env.crm.SearchCustomers(ctx, "globex", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, "Bob", page.Items[0].Name)
	assert.Equal(t, "Cara", page.Items[1].Name)

	page, err = env.crm.SearchCustomers(ctx, "INITECH", 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Ann Lee", page.Items[0].Name)

	// Wildcards in the query are literal.
	page, err = env.crm.SearchCustomers(ctx, "_100%", 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Dan_100%", page.Items[0].Name)

	page, err = env.crm.SearchCustomers(ctx, "", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
}

func TestSearchCustomersPagination(t *testing.T) {
	env := newTestEnv(t, Config{})
	for i := 0; i < 12; i++ {
		env.customer(t, fmt.Sprintf("Customer %02d", i), fmt.Sprintf("c%d@example.com", i))
	}

	page, err := env.crm.SearchCustomers(context.Background(), "customer", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 2)
	assert.False(t, page.HasNext())
	assert.True(t, page.HasPrevious())

	page, err = env.crm.SearchCustomers(context.Background(), "customer", 9)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Items, PageSize)
}

// failOnTable makes every DELETE against table fail after it ran, so the
// surrounding transaction has to roll back.
func failOnTable(t *testing.T, db *gorm.DB, table string) {
	t.Helper()
	err := db.Callback().Delete().After("gorm:delete").Register("test:fail_"+table, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			_ = tx.AddError(errors.New("simulated failure on " + table))
		}
	})
	require.NoError(t, err)
}
