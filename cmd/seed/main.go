// Package main implements the seed command, which wipes the card directory
// and loads a YAML data set into it.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/atinyakov/bcards/internal/db"
	"github.com/atinyakov/bcards/internal/logger"
	"github.com/atinyakov/bcards/internal/repository/memory"
	"github.com/atinyakov/bcards/internal/seed"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	_ = godotenv.Load()

	var (
		file     string
		dsn      = os.Getenv("DATABASE_DSN")
		level    = os.Getenv("LOG_LEVEL")
		cost     = bcrypt.DefaultCost
		dryRun   bool
		assumeOK bool
	)

	root := &cobra.Command{
		Use:   "seed",
		Short: "Replace all cards and users with the content of a YAML data file",
		Long: "seed DELETES every card and user of the configured database and inserts the\n" +
			"users and cards of the data file. Passwords are stored as bcrypt hashes.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.New()
			if err := log.InitDevelopment(level); err != nil {
				return err
			}
			defer func() { _ = log.Log.Sync() }()

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open data file: %w", err)
			}
			defer f.Close()
			ds, err := seed.Load(f)
			if err != nil {
				return err
			}
			if dryRun {
				if err := ds.Validate(); err != nil {
					return err
				}
				log.Log.Info("data file is valid", zap.Int("users", len(ds.Users)), zap.Int("cards", len(ds.Cards)))
				return nil
			}
			if dsn != "" && !assumeOK {
				return errors.New("refusing to wipe the database without --yes")
			}

			var target seed.Target
			if dsn == "" {
				log.Log.Warn("no database configured, seeding an in-memory store")
				target = memory.New()
			} else {
				conn, err := db.InitPostgres(dsn)
				if err != nil {
					return err
				}
				defer conn.Close()
				target = seed.NewPostgresTarget(conn)
			}

			res, err := seed.New(target, log.Log, cost).Run(cmd.Context(), ds)
			if err != nil {
				return err
			}
			log.Log.Info("seeding completed", zap.Int("users", res.Users), zap.Int("cards", res.Cards))
			return nil
		},
	}

	root.Flags().StringVarP(&file, "file", "f", "data/seed.yaml", "path to the YAML data file")
	root.Flags().StringVarP(&dsn, "dsn", "d", dsn, "PostgreSQL DSN (env DATABASE_DSN); empty seeds an in-memory store")
	root.Flags().StringVar(&level, "log-level", level, "log level (env LOG_LEVEL)")
	root.Flags().IntVar(&cost, "bcrypt-cost", cost, "bcrypt cost for seeded passwords")
	root.Flags().BoolVar(&dryRun, "dry-run", false, "only validate the data file")
	root.Flags().BoolVarP(&assumeOK, "yes", "y", false, "confirm that existing data may be deleted")

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
