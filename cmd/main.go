package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Leganyst/clinic-scheduling/internal/config"
	"github.com/Leganyst/clinic-scheduling/internal/db"
	"github.com/Leganyst/clinic-scheduling/internal/jobs"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/outbox"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
	"github.com/Leganyst/clinic-scheduling/internal/seed"
	"github.com/Leganyst/clinic-scheduling/internal/service"
	"github.com/Leganyst/clinic-scheduling/internal/telemetry"
	"github.com/Leganyst/clinic-scheduling/internal/transport/grpcapi"
	"github.com/Leganyst/clinic-scheduling/internal/transport/httpapi"
)

const devJWTSecret = "dev-secret"

func main() {
	rootCmd := &cobra.Command{
		Use:           "clinic-scheduling",
		Short:         "Clinic appointment scheduling core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(generateSlotsCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app — общие зависимости всех команд.
type app struct {
	cfg *config.Config
	log zerolog.Logger
	db  *gorm.DB
	loc *time.Location
}

// bootstrap читает конфиг, настраивает логгер, открывает БД и применяет миграции.
func bootstrap() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	gormDB, err := db.NewGormDB(&cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}
	if !db.IsPostgres(gormDB) {
		logger.Warn().Str("driver", cfg.DB.Driver).Msg("row locks are not available, run a single instance")
	}

	if err := model.AutoMigrate(gormDB); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &app{cfg: cfg, log: logger, db: gormDB, loc: loc}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
		return logger.Level(zerolog.DebugLevel)
	}
	return logger.Level(zerolog.InfoLevel)
}

func (a *app) generator(clock service.Clock) *service.SlotGenerator {
	return service.NewSlotGenerator(
		repository.NewGormScheduleRepository(a.db),
		repository.NewGormSlotRepository(a.db),
		repository.NewGormEventRepository(a.db),
		clock,
		a.cfg.SlotHorizonDays,
		a.log,
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, gRPC health server and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()
			return a.serve()
		},
	}
}

func (a *app) serve() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			a.log.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	clock := service.NewClock(a.loc, time.Now)

	slotRepo := repository.NewGormSlotRepository(a.db)
	apptRepo := repository.NewGormAppointmentRepository(a.db)
	userRepo := repository.NewGormUserRepository(a.db)
	doctorRepo := repository.NewGormDoctorRepository(a.db)
	scheduleRepo := repository.NewGormScheduleRepository(a.db)
	eventRepo := repository.NewGormEventRepository(a.db)

	availability := service.NewAvailabilityService(slotRepo, doctorRepo, clock)
	booking := service.NewBookingService(a.db, slotRepo, apptRepo, userRepo, eventRepo, clock, a.log)
	generator := a.generator(clock)

	var rdb *redis.Client
	if a.cfg.RedisURL != "" {
		opts, err := redis.ParseURL(a.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
	}

	secret := a.cfg.JWTSecret
	if secret == "" {
		a.log.Warn().Msg("JWT_SECRET is empty, using the development secret")
		secret = devJWTSecret
	}
	opts := httpapi.Options{JWTSecret: []byte(secret)}
	if rdb != nil && a.cfg.RateLimit > 0 {
		opts.RateLimiter = httpapi.NewRateLimiter(rdb, a.cfg.RateLimit, a.cfg.RateLimitWindow, a.log)
	}

	e := httpapi.New(httpapi.Deps{
		Availability: availability,
		Booking:      booking,
		Orchestrator: service.NewOrchestrator(availability, booking, a.log),
		Schedules:    service.NewScheduleService(scheduleRepo, doctorRepo, a.log),
		Users:        service.NewUserService(userRepo, a.log),
		Generator:    generator,
	}, opts, a.log)
	httpServer := httpapi.NewHTTPServer(a.cfg.HTTPAddr, e)

	grpcServer, healthServer := grpcapi.NewServer(a.log)
	lis, err := net.Listen("tcp", a.cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.GRPCAddr, err)
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return fmt.Errorf("sql DB: %w", err)
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		grpcapi.WatchDatabase(ctx, healthServer, sqlDB, 5*time.Second, a.log)
	}()

	if len(a.cfg.KafkaBrokers) > 0 {
		writer := outbox.NewKafkaWriter(outbox.Config{Brokers: a.cfg.KafkaBrokers, Topic: a.cfg.KafkaTopic})
		defer writer.Close()
		publisher := outbox.NewPublisher(a.db, eventRepo, writer, outbox.Config{PollEvery: a.cfg.OutboxPollInterval}, a.log)

		wg.Add(1)
		go func() {
			defer wg.Done()
			publisher.Run(ctx)
		}()
		a.log.Info().Strs("brokers", a.cfg.KafkaBrokers).Str("topic", a.cfg.KafkaTopic).Msg("outbox publisher started")
	}

	if a.cfg.GenerateInterval > 0 {
		var locker jobs.Locker
		if rdb != nil {
			locker = jobs.NewRedisLocker(rdb)
		}
		job := jobs.NewGenerationJob(generator, locker, a.cfg.GenerateInterval, a.cfg.SlotHorizonDays, a.log)

		wg.Add(1)
		go func() {
			defer wg.Done()
			job.Run(ctx)
		}()
		a.log.Info().Dur("interval", a.cfg.GenerateInterval).Msg("slot generation job started")
	}

	go func() {
		a.log.Info().Str("addr", a.cfg.GRPCAddr).Msg("gRPC health server listening")
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	go func() {
		a.log.Info().Str("addr", a.cfg.HTTPAddr).Msg("HTTP API listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutting down")
	case serveErr = <-errCh:
		a.log.Error().Err(serveErr).Msg("server failed, shutting down")
		stop()
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(sctx); err != nil {
		a.log.Warn().Err(err).Msg("http shutdown")
	}
	grpcServer.GracefulStop()
	wg.Wait()

	return serveErr
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()
			a.log.Info().Str("driver", a.cfg.DB.Driver).Msg("migrations applied")
			return nil
		},
	}
}

func generateSlotsCmd() *cobra.Command {
	var horizon int
	cmd := &cobra.Command{
		Use:   "generate-slots",
		Short: "Materialize time slots from active schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.generator(service.NewClock(a.loc, time.Now)).Generate(cmd.Context(), horizon)
			if err != nil {
				return err
			}
			a.log.Info().
				Int("schedules", res.Schedules).
				Int("created", res.Created).
				Int("duplicates", res.Duplicates).
				Int("skipped", res.Skipped).
				Msg("slots generated")
			return nil
		},
	}
	cmd.Flags().IntVar(&horizon, "horizon", 0, "days ahead to generate (0 uses SLOT_HORIZON_DAYS)")
	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo doctors and schedules into an empty database",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()

			res, err := seed.Demo(cmd.Context(), a.db)
			if err != nil {
				return err
			}
			if res.Doctors == 0 {
				a.log.Info().Msg("doctors already present, seed skipped")
				return nil
			}
			a.log.Info().Int("doctors", res.Doctors).Int("schedules", res.Schedules).Msg("demo data loaded")
			return nil
		},
	}
}
