package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"smartcrm/models"
	"smartcrm/services"
	"smartcrm/utils"
)

// DigestSender sends the follow-up digest for every lead due on or before a
// day. *services.CRMService implements it.
type DigestSender interface {
	SendDueFollowUps(ctx context.Context, today models.Date) (services.DigestReport, error)
}

// DigestWorker runs the follow-up digest on a cron schedule.
type DigestWorker struct {
	Sender   DigestSender
	Schedule string
	Logger   *logrus.Entry

	now func() time.Time
}

func NewDigestWorker(sender DigestSender, schedule string, logger *logrus.Entry) *DigestWorker {
	if logger == nil {
		logger = utils.ComponentLogger("digest_worker")
	}
	return &DigestWorker{
		Sender:   sender,
		Schedule: schedule,
		Logger:   logger,
		now:      time.Now,
	}
}

// Start blocks until ctx is cancelled. An invalid schedule is returned
// immediately; a run still in progress at shutdown is waited for.
func (dw *DigestWorker) Start(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(dw.Schedule, func() { dw.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid digest schedule %q: %w", dw.Schedule, err)
	}

	dw.Logger.WithField("schedule", dw.Schedule).Info("Digest worker started")
	c.Start()

	<-ctx.Done()
	dw.Logger.Info("Digest worker shutting down...")
	<-c.Stop().Done()
	return nil
}

// RunOnce sends today's digest and logs the outcome.
func (dw *DigestWorker) RunOnce(ctx context.Context) (services.DigestReport, error) {
	report, err := dw.Sender.SendDueFollowUps(ctx, models.DateOf(dw.now()))
	if err != nil {
		utils.LogError("digest_run_failed", err, map[string]interface{}{
			"due":  report.Due,
			"sent": report.Sent,
		})
		return report, err
	}

	for _, failure := range report.Failures {
		dw.Logger.WithFields(logrus.Fields{
			"lead_id": failure.LeadID,
			"title":   failure.Title,
		}).Warn("Digest message not delivered")
	}
	return report, nil
}
