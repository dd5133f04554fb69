package main

import (
	"context"
	"fmt"
	"os"
	"time"

	mongoMigration "clinicbook/internal/migrations/mongo"
	postgresMigration "clinicbook/internal/migrations/postgres"
	"clinicbook/pkg/config"

	"github.com/spf13/cobra"
)

const JobName = "migrate"

var timeout time.Duration

func main() {
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Create or upgrade the clinic booking schema",
		SilenceUsage: true,
	}
	root.PersistentFlags().DurationVar(&timeout, "timeout", 120*time.Second, "overall deadline for the job")
	root.AddCommand(mongoCmd(), postgresCmd(), postgresStatusCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func mongoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mongo",
		Short: "Ensure Mongo collections, validators and indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			cfg := config.Load(JobName)
			defer cfg.GracefulShutdown()
			cfg.SetMongo()

			return mongoMigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log)
		},
	}
}

func postgresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "postgres",
		Short: "Apply pending Postgres migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			cfg := config.Load(JobName)
			defer cfg.GracefulShutdown()
			cfg.SetPostgres()

			n, err := postgresMigration.NewMigrator(cfg.Client.Postgres, cfg.Log).Up(ctx)
			if err != nil {
				return err
			}
			cfg.Log.Info("Postgres migrations complete", "applied", n)
			return nil
		},
	}
}

func postgresStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "postgres-status",
		Short: "List Postgres migrations and whether they ran",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			cfg := config.Load(JobName)
			defer cfg.GracefulShutdown()
			cfg.SetPostgres()

			statuses, err := postgresMigration.NewMigrator(cfg.Client.Postgres, cfg.Log).Status(ctx)
			if err != nil {
				return err
			}
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied " + s.AppliedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%03d  %-28s %s\n", s.Version, s.Name, state)
			}
			return nil
		},
	}
}
