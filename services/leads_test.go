package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartcrm/models"
	"smartcrm/utils"
)

func TestCreateLeadDefaultsToNew(t *testing.T) {
	env := newTestEnv(t, Config{})
	c := env.customer(t, "Ann", "ann@example.com")

	lead, err := env.crm.CreateLead(context.Background(), LeadInput{
		CustomerID:   c.ID,
		Title:        " Website redesign ",
		FollowUpDate: datePtr(2024, time.March, 5),
	})
	require.NoError(t, err)

	assert.Equal(t, "Website redesign", lead.Title)
	assert.Equal(t, models.LeadStatusNew, lead.Status)

	stored, err := env.crm.GetLead(context.Background(), lead.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.FollowUpDate)
	assert.Equal(t, "2024-03-05", stored.FollowUpDate.String())
	require.NotNil(t, stored.Customer)
	assert.Equal(t, "Ann", stored.Customer.Name)
}

func TestCreateLeadRequiresExistingCustomer(t *testing.T) {
	env := newTestEnv(t, Config{})

	_, err := env.crm.CreateLead(context.Background(), LeadInput{CustomerID: 42, Title: "Orphan"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int64(0), countRows(t, env.db, &models.Lead{}))
}

func TestCreateLeadRejectsUnknownStatusAndAssignee(t *testing.T) {
	env := newTestEnv(t, Config{})
	c := env.customer(t, "Ann", "ann@example.com")

	_, err := env.crm.CreateLead(context.Background(), LeadInput{CustomerID: c.ID, Title: "X", Status: "pending"})
	assert.True(t, IsValidation(err))

	_, err = env.crm.CreateLead(context.Background(), LeadInput{CustomerID: c.ID, Title: "X", AssignedToID: utils.Pointer(uint(77))})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateLeadUnguardedByDefault(t *testing.T) {
	env := newTestEnv(t, Config{})
	c := env.customer(t, "Ann", "ann@example.com")
	lead := env.lead(t, c.ID, "Deal", models.LeadStatusWon, datePtr(2024, time.January, 1))

	updated, err := env.crm.UpdateLead(context.Background(), lead.ID, LeadInput{
		CustomerID: c.ID, Title: "Deal", Status: "new",
	})
	require.NoError(t, err)

	assert.Equal(t, models.LeadStatusNew, updated.Status)
	assert.Nil(t, updated.FollowUpDate)
	assert.True(t, lead.CreatedAt.Equal(updated.CreatedAt))
}

func TestUpdateLeadStrictTransitions(t *testing.T) {
	env := newTestEnv(t, Config{StrictTransitions: true})
	ctx := context.Background()
	c := env.customer(t, "Ann", "ann@example.com")
	lead := env.lead(t, c.ID, "Deal", models.LeadStatusContacted, nil)

	_, err := env.crm.UpdateLead(ctx, lead.ID, LeadInput{CustomerID: c.ID, Title: "Deal", Status: "new"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "cannot move lead from contacted to new")

	updated, err := env.crm.UpdateLead(ctx, lead.ID, LeadInput{CustomerID: c.ID, Title: "Deal", Status: "won"})
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusWon, updated.Status)

	_, err = env.crm.UpdateLead(ctx, lead.ID, LeadInput{CustomerID: c.ID, Title: "Deal", Status: "lost"})
	assert.True(t, IsValidation(err))

	// Editing other fields of a closed lead is fine.
	_, err = env.crm.UpdateLead(ctx, lead.ID, LeadInput{CustomerID: c.ID, Title: "Deal (signed)", Status: "won"})
	assert.NoError(t, err)
}

func TestUpdateLeadWithoutStatusKeepsCurrent(t *testing.T) {
	for _, strict := range []bool{false, true} {
		env := newTestEnv(t, Config{StrictTransitions: strict})
		c := env.customer(t, "Ann", "ann@example.com")
		lead := env.lead(t, c.ID, "Deal", models.LeadStatusQualified, nil)

		updated, err := env.crm.UpdateLead(context.Background(), lead.ID, LeadInput{CustomerID: c.ID, Title: "Bigger deal"})
		require.NoError(t, err, "strict=%v", strict)
		assert.Equal(t, "Bigger deal", updated.Title)
		assert.Equal(t, models.LeadStatusQualified, updated.Status, "strict=%v", strict)
	}
}

func TestDeleteLead(t *testing.T) {
	env := newTestEnv(t, Config{})
	c := env.customer(t, "Ann", "ann@example.com")
	lead := env.lead(t, c.ID, "Deal", models.LeadStatusNew, nil)

	require.NoError(t, env.crm.DeleteLead(context.Background(), lead.ID))
	assert.ErrorIs(t, env.crm.DeleteLead(context.Background(), lead.ID), ErrNotFound)
	assert.Equal(t, int64(1), countRows(t, env.db, &models.Customer{}))
}

func TestDeleteAllLeadsReportsCount(t *testing.T) {
	env := newTestEnv(t, Config{})
	c := env.customer(t, "Ann", "ann@example.com")
	env.leads(t, c.ID, 7)

	n, err := env.crm.DeleteAllLeads(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, int64(0), countRows(t, env.db, &models.Lead{}))
	assert.Equal(t, int64(1), countRows(t, env.db, &models.Customer{}))
}

func TestDeleteAllLeadsLeavesEverythingOnFailure(t *testing.T) {
	env := newTestEnv(t, Config{})
	c := env.customer(t, "Ann", "ann@example.com")
	env.leads(t, c.ID, 7)
	failOnTable(t, env.db, "leads")

	n, err := env.crm.DeleteAllLeads(context.Background())

	var bulkErr *BulkError
	require.True(t, errors.As(err, &bulkErr))
	assert.Equal(t, "delete all leads", bulkErr.Op)
	assert.Zero(t, n)
	assert.Equal(t, int64(7), countRows(t, env.db, &models.Lead{}))
}

func TestListLeadsPaginates(t *testing.T) {
	env := newTestEnv(t, Config{})
	c := env.customer(t, "Ann", "ann@example.com")
	env.leads(t, c.ID, 25)
	ctx := context.Background()

	first, err := env.crm.ListLeads(ctx, "title", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, first.TotalPages)
	assert.Equal(t, int64(25), first.Total)
	assert.Len(t, first.Items, 10)
	assert.Equal(t, "Lead 00", first.Items[0].Title)
	require.NotNil(t, first.Items[0].Customer)

	last, err := env.crm.ListLeads(ctx, "title", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, last.Page)
	assert.Len(t, last.Items, 5)
	assert.Equal(t, "Lead 24", last.Items[4].Title)

	outOfRange, err := env.crm.ListLeads(ctx, "title", 4)
	require.NoError(t, err)
	assert.Equal(t, 1, outOfRange.Page)
	assert.Equal(t, "Lead 00", outOfRange.Items[0].Title)
}

func TestListLeadsSorting(t *testing.T) {
	env := newTestEnv(t, Config{})
	c := env.customer(t, "Ann", "ann@example.com")
	env.lead(t, c.ID, "b", models.LeadStatusNew, datePtr(2024, time.May, 2))
	env.lead(t, c.ID, "a", models.LeadStatusNew, datePtr(2024, time.June, 1))
	env.lead(t, c.ID, "c", models.LeadStatusNew, datePtr(2024, time.April, 9))
	ctx := context.Background()

	titles := func(p Page[models.Lead]) []string {
		out := make([]string, len(p.Items))
		for i, l := range p.Items {
			out[i] = l.Title
		}
		return out
	}

	page, err := env.crm.ListLeads(ctx, "-title", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, titles(page))

	page, err = env.crm.ListLeads(ctx, "-follow_up_date", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, titles(page))

	// Unknown keys fall back to follow-up date ascending.
	page, err = env.crm.ListLeads(ctx, "customer_id; DROP TABLE leads", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, titles(page))
}

func TestNormalizeLeadSort(t *testing.T) {
	assert.Equal(t, "-created_at", NormalizeLeadSort("-created_at"))
	assert.Equal(t, DefaultLeadSort, NormalizeLeadSort("status"))
	assert.Equal(t, DefaultLeadSort, NormalizeLeadSort(""))
}

func TestDeletingUserUnassignsLeads(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	users := NewUserService(env.db, testLogger())
	u, err := users.Register(ctx, RegisterInput{Username: "sam", Password: "correct horse"})
	require.NoError(t, err)
	c := env.customer(t, "Ann", "ann@example.com")

	lead, err := env.crm.CreateLead(ctx, LeadInput{CustomerID: c.ID, Title: "Deal", AssignedToID: &u.ID})
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, u.ID))

	got, err := env.crm.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AssignedToID)
	assert.Nil(t, got.AssignedTo)
}
