package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/wolfeidau/hostelsec/internal/logger"
	postgresstore "github.com/wolfeidau/hostelsec/internal/store/postgres"
)

type MigrateCmd struct {
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
	Status        bool               `help:"list embedded migrations and whether they are applied, without changing the database" default:"false"`
}

func (c *MigrateCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	pool, err := c.PostgresStore.openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if c.Status {
		states, err := postgresstore.MigrationStatus(ctx, pool)
		if err != nil {
			return fmt.Errorf("failed to read migration status: %w", err)
		}
		return printMigrationStatus(states)
	}

	if err := postgresstore.RunMigrations(ctx, pool); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info().Msg("Database migrations completed")
	return nil
}

func printMigrationStatus(states []postgresstore.MigrationState) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tCHECKSUM\tAPPLIED")

	drifted := 0
	for _, st := range states {
		applied := "pending"
		if !st.Pending() {
			applied = st.AppliedAt.Local().Format("2006-01-02 15:04:05")
		}
		if st.Drifted {
			applied += " (modified since applied)"
			drifted++
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", st.Version, st.Name, st.Checksum, applied)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if drifted > 0 {
		return fmt.Errorf("%d migration(s): %w", drifted, postgresstore.ErrMigrationDrift)
	}
	return nil
}
