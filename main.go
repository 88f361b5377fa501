package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/meinhoongagan/hospital-appointments/config"
	"github.com/meinhoongagan/hospital-appointments/controllers"
	"github.com/meinhoongagan/hospital-appointments/cron"
	"github.com/meinhoongagan/hospital-appointments/db"
	"github.com/meinhoongagan/hospital-appointments/logs"
	"github.com/meinhoongagan/hospital-appointments/notification"
	appredis "github.com/meinhoongagan/hospital-appointments/redis"
	"github.com/meinhoongagan/hospital-appointments/repository"
	"github.com/meinhoongagan/hospital-appointments/routes"
	"github.com/meinhoongagan/hospital-appointments/services"
	"github.com/meinhoongagan/hospital-appointments/utils"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hospital-appointments",
		Short: "Hospital appointment API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			gdb, err := db.Connect(cfg.DatabaseURL, logger)
			if err != nil {
				return err
			}
			defer db.Close(gdb)

			if err := db.Migrate(gdb); err != nil {
				return err
			}
			logger.Info("Migrations applied successfully")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the administrator account from ADMIN_EMAIL and ADMIN_PASSWORD",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			gdb, err := db.Connect(cfg.DatabaseURL, logger)
			if err != nil {
				return err
			}
			defer db.Close(gdb)

			created, err := db.SeedAdmin(cmd.Context(), gdb, cfg.AdminEmail, cfg.AdminPassword)
			if err != nil {
				return err
			}
			logger.WithFields(logrus.Fields{
				"Email":   cfg.AdminEmail,
				"Created": created,
			}).Info("Admin seed finished")
			return nil
		},
	}
}

func bootstrap() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logs.NewLogger(cfg.LogLevel, cfg.LogFormat), nil
}

func runServer() error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	ctx := context.Background()

	gdb, err := db.Connect(cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer db.Close(gdb)

	var appointments repository.AppointmentRepository = repository.NewAppointmentRepository(gdb)
	participants := repository.NewParticipantRepository(gdb)

	var claimer *appredis.Claimer
	if cfg.RedisAddr != "" {
		client, err := appredis.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, running without cache and reminders")
		} else {
			defer client.Close()
			appointments = repository.NewCachedAppointmentRepository(appointments, client, cfg.CacheTTL, logger)
			claimer = appredis.NewClaimer(client, "reminder:")
		}
	}

	var sinks []notification.Sink
	if cfg.EmailEnabled() {
		dialer := notification.NewDialer(notification.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.EmailUser,
			Password: cfg.EmailPass,
		})
		sender := cfg.EmailSender
		if sender == "" {
			sender = cfg.EmailUser
		}
		sinks = append(sinks, notification.NewEmailSink(dialer, sender, appointments, logger))
	}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink := notification.NewKafkaSink(notification.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
	}
	if len(sinks) == 0 {
		logger.Warn("No notification sinks configured, events will be dropped")
	}
	dispatcher := notification.NewDispatcher(logger, cfg.NotifyTimeout, sinks...)

	service := services.NewAppointmentService(appointments, participants, dispatcher, logger, services.Options{
		Location:           cfg.Location(),
		CancellationWindow: cfg.CancellationWindow,
		OperationTimeout:   cfg.OperationTimeout,
	})

	var scheduler interface{ Stop() context.Context }
	if claimer != nil {
		job := cron.NewReminderJob(appointments, claimer, dispatcher, logger, cfg.Location())
		c, err := cron.StartCronJobs(cfg.ReminderSpec, job)
		if err != nil {
			return err
		}
		scheduler = c
	}

	app := fiber.New(fiber.Config{AppName: "hospital-appointments"})
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.CORSOrigins, ","),
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")
	tokens := utils.TokenIssuer{
		Secret:     []byte(cfg.JWTSecret),
		AccessTTL:  cfg.JWTTTL,
		RefreshTTL: cfg.RefreshTTL,
	}
	routes.SetupAuthRoutes(api, controllers.NewAuthController(participants, tokens, logger), cfg.JWTSecret)
	routes.SetupAppointmentRoutes(api, controllers.NewAppointmentController(service, logger, cfg.Location()), cfg.JWTSecret)

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("Port", cfg.Port).Info("Server starting")
		errCh <- app.Listen(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("Shutting down server")
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), cfg.NotifyTimeout)
	defer cancel()
	if err := dispatcher.Wait(waitCtx); err != nil {
		logger.WithError(err).Warn("Pending notifications abandoned")
	}
	return nil
}
