// Command gamestake follows the game contracts and serves the leaderboard.
// "gamestake migrate" manages the database schema instead.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gamestake/cmd"
	"gamestake/database"

	log "github.com/sirupsen/logrus"
)

const migrateUsage = "usage: gamestake migrate up | down [steps] | status"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigration(os.Args[2:]); err != nil {
			log.WithError(err).Fatal("Migration failed")
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		// restore default handling so a second signal kills a stuck shutdown
		stop()
		log.Info("Shutdown signal received, draining ingestion pipeline")
	}()

	if err := cmd.Run(ctx); err != nil {
		log.WithError(err).Fatal("Ingestion service stopped")
	}
}

func runMigration(args []string) error {
	if len(args) == 0 {
		return errors.New(migrateUsage)
	}

	switch args[0] {
	case "up":
		if len(args) > 1 {
			return errors.New(migrateUsage)
		}
		return database.MigrateUp()
	case "down":
		if len(args) > 2 {
			return errors.New(migrateUsage)
		}
		steps := "1"
		if len(args) == 2 {
			steps = args[1]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command %q; %s", args[0], migrateUsage)
	}
}
