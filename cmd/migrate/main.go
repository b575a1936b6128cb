package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/threadloom/storefront-backend/internal/bootstrap"
	"github.com/threadloom/storefront-backend/pkg/db"
	"github.com/threadloom/storefront-backend/pkg/logger"
	"github.com/threadloom/storefront-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "up|down|status|to|create|validate|seed")
	dir := flag.String("dir", "", "migrations directory (default: set compiled into the binary)")
	name := flag.String("name", "", "migration name for -cmd=create")
	target := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=to")
	flag.Parse()

	ctx := context.Background()
	cfg, logg, err := bootstrap.LoadConfig("migrate")
	requireResource(ctx, logg, "config", err)
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": *cmd, "driver": cfg.DB.Driver})

	switch *cmd {
	case "create":
		out := *dir
		if out == "" {
			out = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(out, *name, time.Now())
		exitOn(err, "create migration")
		fmt.Println("created", path)
		return
	case "validate":
		fsys, err := migrate.Source(*dir)
		exitOn(err, "open migrations")
		exitOn(migrate.Validate(fsys), "validate migrations")
		fmt.Println("migrations valid")
		return
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	if *cmd == "seed" {
		if !cfg.App.IsDev() {
			exitOn(fmt.Errorf("seed refuses to run in %q", cfg.App.Env), "seed")
		}
		inserted, err := seedCatalog(ctx, dbClient.DB())
		exitOn(err, "seed catalog")
		logg.Info(logg.WithField(ctx, "inserted", inserted), "demo catalog seeded")
		return
	}

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)
	fsys, err := migrate.Source(*dir)
	exitOn(err, "open migrations")
	runner, err := migrate.NewRunner(sqlDB, cfg.DB.Driver, fsys)
	exitOn(err, "build runner")

	switch *cmd {
	case "up":
		applied, err := runner.Up(ctx)
		exitOn(err, "up")
		logg.Info(logg.WithField(ctx, "applied", applied), "migrations applied")
	case "down":
		version, err := runner.Down(ctx)
		exitOn(err, "down")
		logg.Info(logg.WithField(ctx, "version", version), "migration rolled back")
	case "to":
		if *target == "" {
			exitOn(fmt.Errorf("missing -version"), "to")
		}
		moved, err := runner.To(ctx, *target)
		exitOn(err, "to")
		logg.Info(logg.WithField(ctx, "versions", moved), "schema moved")
	case "status":
		rows, err := runner.Status(ctx)
		exitOn(err, "status")
		printStatus(rows)
	default:
		exitOn(fmt.Errorf("unknown -cmd %q", *cmd), "migrate")
	}
}

func printStatus(rows []migrate.Status) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATE\tFILE")
	for _, row := range rows {
		state := "pending"
		if row.Applied {
			state = "applied"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", row.Version, state, row.Path)
	}
	w.Flush()
}

func exitOn(err error, what string) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
