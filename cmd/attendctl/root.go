package main

import (
	"context"

	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"schoolattend/internal/attendance"
	"schoolattend/internal/config"
	"schoolattend/internal/logger"
	"schoolattend/internal/store"
	"schoolattend/internal/validator"
)

var rootCmd = &cobra.Command{
	Use:           "attendctl",
	Short:         "Maintenance commands for the staff attendance service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(rosterCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(hashPasswordCmd)
}

// env is what most commands need: configuration, a logger and the database.
type env struct {
	cfg config.App
	log *logrus.Logger
	db  *store.DB
}

func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{File: cfg.LogFile, Level: cfg.LogLevel})
	db, err := store.NewDB(cfg.DatabaseURL, cfg.StoreTimeout())
	if err != nil {
		db.Close()
		return nil, err
	}
	return &env{cfg: cfg, log: log, db: db}, nil
}

func (e *env) service() (*attendance.Service, error) {
	loc, err := e.cfg.Location()
	if err != nil {
		return nil, err
	}
	return attendance.NewService(attendance.NewRepository(e.db.Client, e.log), attendance.Options{
		Log:      e.log,
		Location: loc,
		Timeout:  e.cfg.StoreTimeout(),
	}), nil
}

func (e *env) Close() error {
	return e.db.Close()
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// checkDate rejects a --date value that is set but not a YYYY-MM-DD date.
func checkDate(date string) error {
	if date == "" {
		return nil
	}
	if err := validator.Get().Var(date, "isodate"); err != nil {
		return errors.NotValidf("--date %q", date)
	}
	return nil
}
