package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"smartcrm/models"
	"smartcrm/utils"
)

// StatusCount is the number of leads in one status.
type StatusCount struct {
	Status models.LeadStatus `json:"status"`
	Count  int64             `json:"count"`
}

// MonthCount is the number of leads created in one calendar month.
type MonthCount struct {
	Month time.Time `json:"month"`
	Label string    `json:"label"`
	Count int64     `json:"count"`
}

// ChartDataset and ChartData mirror the Chart.js data object.
type ChartDataset struct {
	Label           string   `json:"label"`
	Data            []int64  `json:"data"`
	BackgroundColor []string `json:"backgroundColor,omitempty"`
	BorderColor     string   `json:"borderColor,omitempty"`
}

type ChartData struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

// Dashboard is everything the home screen shows besides the listings.
type Dashboard struct {
	TotalCustomers int64         `json:"total_customers"`
	TotalLeads     int64         `json:"total_leads"`
	WonLeads       int64         `json:"won_leads"`
	LostLeads      int64         `json:"lost_leads"`
	StatusCounts   []StatusCount `json:"status_counts"`

	StatusChart   *ChartData `json:"status_chart"`
	MonthlyChart  *ChartData `json:"monthly_chart"`
	OverviewChart *ChartData `json:"overview_chart"`
}

const monthLabelLayout = "Jan 2006"

var (
	statusPalette   = []string{"#667eea", "#764ba2", "#f093fb", "#f5576c", "#4facfe", "#00f2fe"}
	overviewPalette = []string{"#667eea", "#764ba2", "#f093fb", "#f5576c", "#4facfe"}
)

// ReportService aggregates lead data for charts. Every call reads the
// current rows; nothing is cached.
type ReportService struct {
	db     *gorm.DB
	logger *logrus.Entry
}

func NewReportService(db *gorm.DB, logger *logrus.Entry) *ReportService {
	if logger == nil {
		logger = utils.ComponentLogger("reports")
	}
	return &ReportService{db: db, logger: logger}
}

// LeadCountsByStatus returns the statuses that have leads, in pipeline order.
func (r *ReportService) LeadCountsByStatus(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).
		Model(&models.Lead{}).
		Select("status, COUNT(id) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count leads by status: %w", err)
	}

	rank := make(map[models.LeadStatus]int, len(models.LeadStatuses))
	for i, s := range models.LeadStatuses {
		rank[s] = i
	}
	sort.SliceStable(rows, func(i, j int) bool {
		ri, iok := rank[rows[i].Status]
		rj, jok := rank[rows[j].Status]
		if iok != jok {
			return iok
		}
		if !iok {
			return rows[i].Status < rows[j].Status
		}
		return ri < rj
	})
	return rows, nil
}

// LeadCountsByMonth buckets leads by the UTC month they were created in,
// oldest month first.
func (r *ReportService) LeadCountsByMonth(ctx context.Context) ([]MonthCount, error) {
	var created []time.Time
	if err := r.db.WithContext(ctx).Model(&models.Lead{}).Pluck("created_at", &created).Error; err != nil {
		return nil, fmt.Errorf("load lead creation times: %w", err)
	}

	buckets := make(map[time.Time]int64)
	for _, t := range created {
		t = t.UTC()
		buckets[time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)]++
	}

	out := make([]MonthCount, 0, len(buckets))
	for month, count := range buckets {
		out = append(out, MonthCount{Month: month, Label: month.Format(monthLabelLayout), Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out, nil
}

// Dashboard collects totals and chart data. Charts are nil when there are no
// leads.
func (r *ReportService) Dashboard(ctx context.Context) (*Dashboard, error) {
	db := r.db.WithContext(ctx)
	d := &Dashboard{}

	if err := db.Model(&models.Customer{}).Count(&d.TotalCustomers).Error; err != nil {
		return nil, fmt.Errorf("count customers: %w", err)
	}

	statusCounts, err := r.LeadCountsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	d.StatusCounts = statusCounts
	for _, sc := range statusCounts {
		d.TotalLeads += sc.Count
		switch sc.Status {
		case models.LeadStatusWon:
			d.WonLeads = sc.Count
		case models.LeadStatusLost:
			d.LostLeads = sc.Count
		}
	}

	if d.TotalLeads == 0 {
		return d, nil
	}

	months, err := r.LeadCountsByMonth(ctx)
	if err != nil {
		return nil, err
	}

	d.StatusChart = statusChart(statusCounts)
	d.MonthlyChart = monthlyChart(months)
	d.OverviewChart = overviewChart(statusCounts)
	return d, nil
}

func statusChart(counts []StatusCount) *ChartData {
	labels := make([]string, len(counts))
	data := make([]int64, len(counts))
	for i, sc := range counts {
		labels[i] = sc.Status.Label()
		data[i] = sc.Count
	}
	return &ChartData{
		Labels: labels,
		Datasets: []ChartDataset{{
			Label:           "Lead Status Distribution",
			Data:            data,
			BackgroundColor: cycle(statusPalette, len(counts)),
		}},
	}
}

func monthlyChart(months []MonthCount) *ChartData {
	labels := make([]string, len(months))
	data := make([]int64, len(months))
	for i, m := range months {
		labels[i] = m.Label
		data[i] = m.Count
	}
	return &ChartData{
		Labels: labels,
		Datasets: []ChartDataset{{
			Label:           "Leads Created",
			Data:            data,
			BackgroundColor: []string{"#667eea"},
			BorderColor:     "#667eea",
		}},
	}
}

// overviewChart sorts statuses by count, largest first.
func overviewChart(counts []StatusCount) *ChartData {
	sorted := append([]StatusCount(nil), counts...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Count > sorted[j].Count })

	chart := statusChart(sorted)
	chart.Datasets[0].Label = "Lead Status Overview"
	chart.Datasets[0].BackgroundColor = cycle(overviewPalette, len(sorted))
	return chart
}

func cycle(palette []string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = palette[i%len(palette)]
	}
	return out
}
