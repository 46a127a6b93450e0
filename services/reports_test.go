package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartcrm/models"
)

func TestDashboardWithoutLeads(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.customer(t, "Ann", "ann@example.com")
	reports := NewReportService(env.db, testLogger())

	d, err := reports.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), d.TotalCustomers)
	assert.Zero(t, d.TotalLeads)
	assert.Empty(t, d.StatusCounts)
	assert.Nil(t, d.StatusChart)
	assert.Nil(t, d.MonthlyChart)
	assert.Nil(t, d.OverviewChart)

	months, err := reports.LeadCountsByMonth(context.Background())
	require.NoError(t, err)
	assert.Empty(t, months)
}

func TestLeadCountsByStatusInPipelineOrder(t *testing.T) {
	env := newTestEnv(t, Config{})
	c := env.customer(t, "Ann", "ann@example.com")
	for _, s := range []models.LeadStatus{"won", "new", "won", "lost", "new", "new"} {
		env.lead(t, c.ID, "L", s, nil)
	}
	reports := NewReportService(env.db, testLogger())

	counts, err := reports.LeadCountsByStatus(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []StatusCount{
		{Status: models.LeadStatusNew, Count: 3},
		{Status: models.LeadStatusLost, Count: 1},
		{Status: models.LeadStatusWon, Count: 2},
	}, counts)
}

func TestLeadCountsByMonthChronological(t *testing.T) {
	env := newTestEnv(t, Config{})
	c := env.customer(t, "Ann", "ann@example.com")
	for _, created := range []time.Time{
		time.Date(2024, time.March, 3, 12, 0, 0, 0, time.UTC),
		time.Date(2023, time.December, 31, 23, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 28, 8, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC),
	} {
		require.NoError(t, env.db.Create(&models.Lead{CustomerID: c.ID, Title: "L", CreatedAt: created}).Error)
	}
	reports := NewReportService(env.db, testLogger())

	months, err := reports.LeadCountsByMonth(context.Background())
	require.NoError(t, err)

	require.Len(t, months, 3)
	assert.Equal(t, "Dec 2023", months[0].Label)
	assert.Equal(t, int64(1), months[0].Count)
	assert.Equal(t, "Jan 2024", months[1].Label)
	assert.Equal(t, "Mar 2024", months[2].Label)
	assert.Equal(t, int64(2), months[2].Count)
}

func TestDashboardCharts(t *testing.T) {
	env := newTestEnv(t, Config{})
	c := env.customer(t, "Ann", "ann@example.com")
	for _, s := range []models.LeadStatus{"won", "contacted", "contacted", "contacted", "lost"} {
		env.lead(t, c.ID, "L", s, nil)
	}
	reports := NewReportService(env.db, testLogger())

	d, err := reports.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(5), d.TotalLeads)
	assert.Equal(t, int64(1), d.WonLeads)
	assert.Equal(t, int64(1), d.LostLeads)

	require.NotNil(t, d.StatusChart)
	assert.Equal(t, []string{"Contacted", "Lost", "Won"}, d.StatusChart.Labels)
	assert.Equal(t, []int64{3, 1, 1}, d.StatusChart.Datasets[0].Data)
	assert.Equal(t, []string{"#667eea", "#764ba2", "#f093fb"}, d.StatusChart.Datasets[0].BackgroundColor)

	require.NotNil(t, d.MonthlyChart)
	assert.Len(t, d.MonthlyChart.Labels, 1)
	assert.Equal(t, []int64{5}, d.MonthlyChart.Datasets[0].Data)

	require.NotNil(t, d.OverviewChart)
	assert.Equal(t, "Contacted", d.OverviewChart.Labels[0])
	assert.Equal(t, "Lead Status Overview", d.OverviewChart.Datasets[0].Label)
}
