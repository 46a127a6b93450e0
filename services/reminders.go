package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"smartcrm/models"
	"smartcrm/utils"
)

// DigestFailure records a digest message that could not be delivered.
type DigestFailure struct {
	LeadID uint   `json:"lead_id"`
	Title  string `json:"title"`
	Error  string `json:"error"`
}

// DigestReport summarizes one run of SendDueFollowUps.
type DigestReport struct {
	Due      int             `json:"due"`
	Sent     int             `json:"sent"`
	Failed   int             `json:"failed"`
	Failures []DigestFailure `json:"failures,omitempty"`
}

// SendLeadStatusReminder mails a customer the title and status of each of
// their leads.
func (s *CRMService) SendLeadStatusReminder(ctx context.Context, customerID uint) error {
	var customer models.Customer
	db := s.db.WithContext(ctx).Preload("Leads", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id ASC")
	})
	if err := findByID(db, &customer, customerID, "customer"); err != nil {
		return err
	}
	if len(customer.Leads) == 0 {
		return invalid(ErrNoLeads)
	}

	return s.deliver(ctx, "lead_status", utils.Message{
		From:    s.cfg.FromEmail,
		To:      []string{customer.Email},
		Subject: "Your Leads Status - " + customer.DisplayName(),
		Body:    leadStatusBody(customer),
	})
}

// SendFollowUpReminder mails a customer a short nudge about their pending lead.
func (s *CRMService) SendFollowUpReminder(ctx context.Context, customerID uint) error {
	var customer models.Customer
	if err := findByID(s.db.WithContext(ctx), &customer, customerID, "customer"); err != nil {
		return err
	}

	return s.deliver(ctx, "follow_up", utils.Message{
		From:    s.cfg.FromEmail,
		To:      []string{customer.Email},
		Subject: "⏰ Follow-up Reminder for " + customer.Name,
		Body: fmt.Sprintf(
			"Dear %s,\n\nThis is a reminder to follow up on your pending lead.\n\nBest regards,\nCRM Team",
			customer.Name,
		),
	})
}

// SendDueFollowUps sends one digest message per lead whose follow-up date is
// on or before today. Failed sends are reported and the run carries on.
// Nothing records which leads were already reminded, so every run resends.
func (s *CRMService) SendDueFollowUps(ctx context.Context, today models.Date) (DigestReport, error) {
	var leads []models.Lead
	err := s.db.WithContext(ctx).
		Preload("Customer").
		Where("follow_up_date IS NOT NULL AND follow_up_date <= ?", today).
		Order("follow_up_date ASC").Order("id ASC").
		Find(&leads).Error
	if err != nil {
		return DigestReport{}, fmt.Errorf("load due leads: %w", err)
	}

	report := DigestReport{Due: len(leads)}
	if len(leads) == 0 {
		return report, nil
	}
	if len(s.cfg.DigestRecipients) == 0 {
		return report, invalidf("no digest recipients configured")
	}

	for _, lead := range leads {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		err := s.deliver(ctx, "digest", utils.Message{
			From:    s.cfg.FromEmail,
			To:      s.cfg.DigestRecipients,
			Subject: "🔔 Follow-up Reminder: " + lead.Title,
			Body:    digestBody(lead),
		})
		if err != nil {
			report.Failed++
			report.Failures = append(report.Failures, DigestFailure{LeadID: lead.ID, Title: lead.Title, Error: err.Error()})
			continue
		}
		report.Sent++
	}

	s.logger.WithFields(logrus.Fields{
		"due":    report.Due,
		"sent":   report.Sent,
		"failed": report.Failed,
	}).Info("Follow-up digest finished")
	return report, nil
}

func (s *CRMService) deliver(ctx context.Context, kind string, msg utils.Message) error {
	if s.mailer == nil {
		return &DeliveryError{Recipients: msg.To, Err: fmt.Errorf("no mailer configured")}
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		utils.RemindersSent.WithLabelValues(kind, "failed").Inc()
		utils.LogError("reminder_delivery_failed", err, map[string]interface{}{
			"kind":    kind,
			"subject": msg.Subject,
		})
		return &DeliveryError{Recipients: msg.To, Err: err}
	}
	utils.RemindersSent.WithLabelValues(kind, "sent").Inc()
	return nil
}

func leadStatusBody(customer models.Customer) string {
	lines := []string{fmt.Sprintf("Dear %s,\n\nHere are your current leads and their statuses:\n", customer.Name)}
	for _, lead := range customer.Leads {
		lines = append(lines, fmt.Sprintf("- %s: %s", lead.Title, lead.Status))
	}
	lines = append(lines, "\nBest regards,\nYour CRM Team")
	return strings.Join(lines, "\n")
}

func digestBody(lead models.Lead) string {
	customerName := ""
	if lead.Customer != nil {
		customerName = lead.Customer.Name
	}
	followUp := ""
	if lead.FollowUpDate != nil {
		followUp = lead.FollowUpDate.String()
	}
	return fmt.Sprintf(`Dear CRM User,

You have a lead titled '%s' for customer '%s' 
that is scheduled for follow-up on %s.

Please follow up as soon as possible.

Thanks,
SmartCRM-AI Bot`, lead.Title, customerName, followUp)
}
