package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"smartcrm/models"
	"smartcrm/utils"
)

func TestSendLeadStatusReminder(t *testing.T) {
	env := newTestEnv(t, Config{FromEmail: "crm@example.com"})
	c := env.customer(t, "Ann", "ann@example.com")
	env.lead(t, c.ID, "Website", models.LeadStatusContacted, nil)
	env.lead(t, c.ID, "Hosting", models.LeadStatusWon, nil)

	want := utils.Message{
		From:    "crm@example.com",
		To:      []string{"ann@example.com"},
		Subject: "Your Leads Status - Acme",
		Body: "Dear Ann,\n\nHere are your current leads and their statuses:\n\n" +
			"- Website: contacted\n" +
			"- Hosting: won\n" +
			"\nBest regards,\nYour CRM Team",
	}
	env.mailer.On("Send", mock.Anything, want).Return(nil).Once()

	require.NoError(t, env.crm.SendLeadStatusReminder(context.Background(), c.ID))
	env.mailer.AssertExpectations(t)
}

func TestSendLeadStatusReminderWithoutLeads(t *testing.T) {
	env := newTestEnv(t, Config{})
	c := env.customer(t, "Ann", "ann@example.com")

	err := env.crm.SendLeadStatusReminder(context.Background(), c.ID)
	assert.ErrorIs(t, err, ErrNoLeads)
	env.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestSendLeadStatusReminderDeliveryFailure(t *testing.T) {
	env := newTestEnv(t, Config{})
	c := env.customer(t, "Ann", "ann@example.com")
	env.lead(t, c.ID, "Website", models.LeadStatusNew, nil)
	smtpErr := errors.New("550 mailbox unavailable")
	env.mailer.On("Send", mock.Anything, mock.Anything).Return(smtpErr).Once()

	err := env.crm.SendLeadStatusReminder(context.Background(), c.ID)

	var deliveryErr *DeliveryError
	require.True(t, errors.As(err, &deliveryErr))
	assert.Equal(t, []string{"ann@example.com"}, deliveryErr.Recipients)
	assert.ErrorIs(t, err, smtpErr)
	// Nothing is rolled back or retried.
	assert.Equal(t, int64(1), countRows(t, env.db, &models.Lead{}))
	env.mailer.AssertNumberOfCalls(t, "Send", 1)
}

func TestSendFollowUpReminder(t *testing.T) {
	env := newTestEnv(t, Config{})
	c := env.customer(t, "Ann", "ann@example.com")
	env.mailer.On("Send", mock.Anything, mock.MatchedBy(func(m utils.Message) bool {
		return m.Subject == "⏰ Follow-up Reminder for Ann" &&
			m.Body == "Dear Ann,\n\nThis is a reminder to follow up on your pending lead.\n\nBest regards,\nCRM Team"
	})).Return(nil).Once()

	require.NoError(t, env.crm.SendFollowUpReminder(context.Background(), c.ID))
	env.mailer.AssertExpectations(t)

	assert.ErrorIs(t, env.crm.SendFollowUpReminder(context.Background(), 404), ErrNotFound)
}

func TestSendDueFollowUpsOnePerLead(t *testing.T) {
	env := newTestEnv(t, Config{DigestRecipients: []string{"ops@example.com", "sales@example.com"}})
	c := env.customer(t, "Ann", "ann@example.com")
	env.lead(t, c.ID, "Overdue", models.LeadStatusNew, datePtr(2024, time.March, 1))
	env.lead(t, c.ID, "Today", models.LeadStatusContacted, datePtr(2024, time.March, 10))
	env.lead(t, c.ID, "Later", models.LeadStatusNew, datePtr(2024, time.March, 11))
	env.lead(t, c.ID, "Undated", models.LeadStatusNew, nil)

	var subjects []string
	env.mailer.On("Send", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		msg := args.Get(1).(utils.Message)
		assert.Equal(t, []string{"ops@example.com", "sales@example.com"}, msg.To)
		subjects = append(subjects, msg.Subject)
	}).Return(nil)

	report, err := env.crm.SendDueFollowUps(context.Background(), models.NewDate(2024, time.March, 10))
	require.NoError(t, err)

	assert.Equal(t, DigestReport{Due: 2, Sent: 2}, report)
	assert.Equal(t, []string{"🔔 Follow-up Reminder: Overdue", "🔔 Follow-up Reminder: Today"}, subjects)
}

func TestSendDueFollowUpsContinuesAfterFailure(t *testing.T) {
	env := newTestEnv(t, Config{DigestRecipients: []string{"ops@example.com"}})
	c := env.customer(t, "Ann", "ann@example.com")
	env.lead(t, c.ID, "First", models.LeadStatusNew, datePtr(2024, time.March, 1))
	second := env.lead(t, c.ID, "Second", models.LeadStatusNew, datePtr(2024, time.March, 2))
	env.lead(t, c.ID, "Third", models.LeadStatusNew, datePtr(2024, time.March, 3))

	isSecond := mock.MatchedBy(func(m utils.Message) bool { return m.Subject == "🔔 Follow-up Reminder: Second" })
	env.mailer.On("Send", mock.Anything, isSecond).Return(errors.New("timeout")).Once()
	env.mailer.On("Send", mock.Anything, mock.Anything).Return(nil)

	report, err := env.crm.SendDueFollowUps(context.Background(), models.NewDate(2024, time.March, 31))
	require.NoError(t, err)

	assert.Equal(t, 3, report.Due)
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, second.ID, report.Failures[0].LeadID)
}

func TestSendDueFollowUpsRepeatsEveryRun(t *testing.T) {
	env := newTestEnv(t, Config{DigestRecipients: []string{"ops@example.com"}})
	c := env.customer(t, "Ann", "ann@example.com")
	env.lead(t, c.ID, "Due", models.LeadStatusNew, datePtr(2024, time.March, 1))
	env.mailer.On("Send", mock.Anything, mock.Anything).Return(nil)
	today := models.NewDate(2024, time.March, 1)

	for i := 0; i < 2; i++ {
		report, err := env.crm.SendDueFollowUps(context.Background(), today)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Sent)
	}
	env.mailer.AssertNumberOfCalls(t, "Send", 2)
}

func TestSendDueFollowUpsNeedsRecipients(t *testing.T) {
	env := newTestEnv(t, Config{})
	c := env.customer(t, "Ann", "ann@example.com")
	env.lead(t, c.ID, "Due", models.LeadStatusNew, datePtr(2024, time.March, 1))

	report, err := env.crm.SendDueFollowUps(context.Background(), models.NewDate(2024, time.March, 1))
	assert.True(t, IsValidation(err))
	assert.Equal(t, 1, report.Due)
}

func TestDigestBody(t *testing.T) {
	lead := models.Lead{
		Title:        "Renewal",
		Customer:     &models.Customer{Name: "Ann"},
		FollowUpDate: datePtr(2024, time.March, 1),
	}

	body := digestBody(lead)

	assert.Contains(t, body, "You have a lead titled 'Renewal' for customer 'Ann' \nthat is scheduled for follow-up on 2024-03-01.")
	assert.True(t, strings.HasSuffix(body, "Thanks,\nSmartCRM-AI Bot"))
}
