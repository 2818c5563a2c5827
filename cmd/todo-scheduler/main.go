package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"todo-scheduler/internal/bot"
	"todo-scheduler/internal/clock"
	"todo-scheduler/internal/config"
	"todo-scheduler/internal/logger"
	"todo-scheduler/internal/repository"
	"todo-scheduler/internal/service"
)

// app holds everything a command needs once configuration is loaded.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *repository.Store
	tasks     *service.TaskService
	tags      *service.TagService
	reminders *service.ReminderService
	bot       *bot.Bot
	close     func()
}

func newApp(withBot bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	clk := clock.System{}
	db, err := repository.NewDB(repository.Options{
		DSN:          cfg.DatabaseURL,
		MaxOpenConns: cfg.MaxOpenConns,
		Clock:        clk,
		Logger:       log,
	})
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	store := repository.NewStore(db)
	a := &app{
		cfg:    cfg,
		logger: log,
		store:  store,
		tasks:  service.NewTaskService(store, clk, log),
		tags:   service.NewTagService(store),
		close: func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
			_ = log.Sync()
		},
	}

	var notifier service.Notifier = service.NewLogNotifier(log)
	if withBot && cfg.BotEnabled() {
		a.bot, err = bot.New(cfg.TelegramToken, store.Users, a.tasks, clk, log)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("bot: %w", err)
		}
		notifier = a.bot
	}
	a.reminders = service.NewReminderService(store, notifier, clk, log).WithBatchSize(cfg.ReminderBatchSize)

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:           "todo-scheduler",
	Short:         "todo-scheduler - recurring tasks and reminders",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the reminder scheduler and, when a token is set, the Telegram bot",
	RunE:  runScheduler,
}

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Dispatch due reminders once and exit",
	RunE:  runTick,
}

func init() {
	rootCmd.AddCommand(runCmd, tickCmd)
	registerTaskCommands(rootCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runScheduler(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	scheduler := service.NewSchedulerService(time.UTC, a.logger)
	id, err := scheduler.ScheduleSpec(a.cfg.ReminderCheckSpec, func() {
		jobCtx, cancel := context.WithTimeout(ctx, a.cfg.ReminderCheckTimeout)
		defer cancel()
		if _, err := a.reminders.DispatchDue(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("reminder tick", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reminders: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	a.logger.Info("scheduler started",
		zap.String("spec", a.cfg.ReminderCheckSpec),
		zap.Time("next_tick", scheduler.Next(id)),
		zap.Bool("bot", a.bot != nil))

	if a.bot != nil {
		if err := a.bot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("bot stopped with error: %w", err)
		}
	} else {
		<-ctx.Done()
	}

	a.logger.Info("shutdown complete")
	return nil
}

func runTick(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.ReminderCheckTimeout)
	defer cancel()

	report, err := a.reminders.DispatchDue(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "due=%d sent=%d failed=%d skipped=%d orphaned=%d\n",
		report.Due, report.Sent, report.Failed, report.Skipped, report.Orphaned)
	return nil
}
