package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"smartcrm/config"
	"smartcrm/middleware"
	"smartcrm/models"
	"smartcrm/predictor"
	"smartcrm/routes"
	"smartcrm/scraper"
	"smartcrm/services"
	"smartcrm/utils"
	"smartcrm/worker"
)

const shutdownTimeout = 10 * time.Second

// app holds the services shared by every command.
type app struct {
	users   *services.UserService
	crm     *services.CRMService
	reports *services.ReportService
	csv     *services.CSVService
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "smartcrm",
		Short:         "Customer and lead management service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadConfig(); err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			utils.ConfigureLogging(config.AppConfig.LogLevel, config.AppConfig.Environment)
			return nil
		},
	}

	root.AddCommand(
		newServeCommand(),
		newSendRemindersCommand(),
		newImportCommand("import-customers", "Import customers from a CSV file", func(a *app) importFunc { return a.csv.ImportCustomers }),
		newImportCommand("import-leads", "Import leads from a CSV file", func(a *app) importFunc { return a.csv.ImportLeads }),
		newExportCommand("export-customers", "Export customers as CSV", func(a *app) exportFunc { return a.csv.ExportCustomers }),
		newExportCommand("export-leads", "Export leads as CSV", func(a *app) exportFunc { return a.csv.ExportLeads }),
	)
	return root
}

// buildApp connects the database and wires the services.
func buildApp() (*app, error) {
	if err := config.ConnectDB(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	cfg := config.AppConfig

	lookup, err := scraper.NewCompanyLookup(scraper.DefaultCompanies(),
		scraper.WithDelay(cfg.ScraperDelay),
		scraper.WithLogger(utils.ComponentLogger("scraper")),
	)
	if err != nil {
		return nil, err
	}

	mailer := utils.NewSMTPMailer(utils.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	})

	crm := services.NewCRMService(config.DB, mailer, lookup, services.Config{
		FromEmail:         cfg.FromEmail,
		DigestRecipients:  cfg.DigestRecipients,
		StrictTransitions: cfg.StrictTransitions,
	}, utils.ComponentLogger("crm"))

	return &app{
		users:   services.NewUserService(config.DB, utils.ComponentLogger("users")),
		crm:     crm,
		reports: services.NewReportService(config.DB, utils.ComponentLogger("reports")),
		csv:     services.NewCSVService(config.DB, utils.ComponentLogger("csv")),
	}, nil
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the digest scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.AppConfig
			if err := cfg.ValidateServer(); err != nil {
				return err
			}
			if cfg.SentryDSN != "" {
				if err := sentry.Init(sentry.ClientOptions{
					Dsn:         cfg.SentryDSN,
					Environment: cfg.Environment,
				}); err != nil {
					logrus.WithError(err).Warn("Sentry initialisation failed")
				}
				defer sentry.Flush(2 * time.Second)
			}

			a, err := buildApp()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := fiber.New(fiber.Config{AppName: "smartcrm"})
			server.Use(middleware.CORS(middleware.CORSFromOrigins(cfg.CORSOrigins)))
			routes.SetupRoutes(server, routes.Dependencies{
				DB:               config.DB,
				Users:            a.users,
				CRM:              a.crm,
				Reports:          a.reports,
				CSV:              a.csv,
				Predictor:        predictor.NewDefault(nil),
				ReminderLimit:    cfg.ReminderRateLimit,
				RateLimitStorage: middleware.NewRateLimitStorage(cfg.Redis),
			})

			if cfg.DigestSchedule != "" {
				digest := worker.NewDigestWorker(a.crm, cfg.DigestSchedule, utils.ComponentLogger("digest_worker"))
				go func() {
					if err := digest.Start(ctx); err != nil {
						utils.LogError("digest_worker", err, nil)
					}
				}()
			}

			listenErr := make(chan error, 1)
			go func() {
				logrus.Infof("🚀 Server starting on port %s", cfg.ServerPort)
				listenErr <- server.Listen(":" + cfg.ServerPort)
			}()

			select {
			case err := <-listenErr:
				return fmt.Errorf("failed to start server: %w", err)
			case <-ctx.Done():
			}

			logrus.Info("Shutting down server...")
			return server.ShutdownWithTimeout(shutdownTimeout)
		},
	}
}

// newSendRemindersCommand runs the follow-up digest once, for use from an
// external scheduler.
func newSendRemindersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "send-reminders",
		Short: "Mail the follow-up digest for every lead due today or earlier",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}

			report, err := a.crm.SendDueFollowUps(cmd.Context(), models.Today())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "due=%d sent=%d failed=%d\n", report.Due, report.Sent, report.Failed)
			if report.Failed > 0 {
				return errors.New("some digest messages could not be delivered")
			}
			return nil
		},
	}
}

type (
	importFunc func(context.Context, io.Reader) (services.ImportReport, error)
	exportFunc func(context.Context, io.Writer) error
)

func newImportCommand(use, short string, pick func(*app) importFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <file.csv>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			report, err := pick(a)(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rows=%d created=%d existing=%d skipped=%d conflicts=%d customers_created=%d\n",
				report.Rows, report.Created, report.Existing, report.Skipped, report.Conflicts, report.CustomersCreated)
			return nil
		},
	}
}

func newExportCommand(use, short string, pick func(*app) exportFunc) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return pick(a)(cmd.Context(), w)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}
