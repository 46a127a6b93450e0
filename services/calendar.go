package services

import (
	"context"
	"fmt"

	"smartcrm/models"
)

// CalendarEvent is a lead follow-up in the shape FullCalendar expects.
type CalendarEvent struct {
	ID              uint                `json:"id"`
	Title           string              `json:"title"`
	Start           string              `json:"start"`
	AllDay          bool                `json:"allDay"`
	BackgroundColor string              `json:"backgroundColor"`
	BorderColor     string              `json:"borderColor"`
	TextColor       string              `json:"textColor"`
	Display         string              `json:"display"`
	ExtendedProps   CalendarEventDetail `json:"extendedProps"`
}

type CalendarEventDetail struct {
	Customer    string            `json:"customer"`
	Status      models.LeadStatus `json:"status"`
	Description string            `json:"description"`
}

type eventColors struct {
	background string
	text       string
}

var statusColors = map[models.LeadStatus]eventColors{
	models.LeadStatusWon:       {"#28a745", "#ffffff"},
	models.LeadStatusLost:      {"#dc3545", "#ffffff"},
	models.LeadStatusQualified: {"#ffc107", "#000000"},
	models.LeadStatusContacted: {"#17a2b8", "#ffffff"},
}

var defaultEventColors = eventColors{"#667eea", "#ffffff"}

// CalendarEvents lists every lead that has a follow-up date.
func (s *CRMService) CalendarEvents(ctx context.Context) ([]CalendarEvent, error) {
	var leads []models.Lead
	err := s.db.WithContext(ctx).
		Preload("Customer").
		Where("follow_up_date IS NOT NULL").
		Order("follow_up_date ASC").Order("id ASC").
		Find(&leads).Error
	if err != nil {
		return nil, fmt.Errorf("load calendar leads: %w", err)
	}

	events := make([]CalendarEvent, 0, len(leads))
	for _, lead := range leads {
		events = append(events, calendarEvent(lead))
	}
	return events, nil
}

func calendarEvent(lead models.Lead) CalendarEvent {
	customer := ""
	if lead.Customer != nil {
		customer = lead.Customer.Name
	}
	colors, ok := statusColors[lead.Status]
	if !ok {
		colors = defaultEventColors
	}

	return CalendarEvent{
		ID:              lead.ID,
		Title:           lead.Title + " - " + customer,
		Start:           lead.FollowUpDate.String(),
		AllDay:          true,
		BackgroundColor: colors.background,
		BorderColor:     colors.background,
		TextColor:       colors.text,
		Display:         "block",
		ExtendedProps: CalendarEventDetail{
			Customer:    customer,
			Status:      lead.Status,
			Description: fmt.Sprintf("Lead: %s\nCustomer: %s\nStatus: %s", lead.Title, customer, lead.Status),
		},
	}
}
