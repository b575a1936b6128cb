package migrate

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/threadloom/storefront-backend/pkg/config"
)

func sqliteDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "migrate.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

var sampleMigrations = fstest.MapFS{
	"20260101000000_create_sizes.sql": {Data: []byte(`-- +goose Up
CREATE TABLE sizes (code TEXT PRIMARY KEY);
-- +goose Down
DROP TABLE sizes;
`)},
	"20260102000000_seed_sizes.sql": {Data: []byte(`-- +goose Up
INSERT INTO sizes (code) VALUES ('S'), ('M');
-- +goose Down
DELETE FROM sizes;
`)},
}

func TestDialectFor(t *testing.T) {
	cases := map[string]bool{"postgres": true, "": true, "SQLite": true, "sqlite3": true, "mysql": false}
	for driver, ok := range cases {
		_, err := dialectFor(driver)
		if ok && err != nil {
			t.Errorf("%q: unexpected error %v", driver, err)
		}
		if !ok && err == nil {
			t.Errorf("%q: expected error", driver)
		}
	}
}

func TestRunnerUpStatusAndTo(t *testing.T) {
	conn := sqliteDB(t)
	sqlDB, _ := conn.DB()
	runner, err := NewRunner(sqlDB, "sqlite", sampleMigrations)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	ctx := context.Background()

	pending, err := runner.Pending(ctx)
	if err != nil || !pending {
		t.Fatalf("expected pending migrations, got %v %v", pending, err)
	}
	applied, err := runner.Up(ctx)
	if err != nil {
		t.Fatalf("up: %v", err)
	}
	if len(applied) != 2 || applied[1] != 20260102000000 {
		t.Fatalf("unexpected applied versions %v", applied)
	}

	var count int64
	if err := conn.Raw("SELECT COUNT(*) FROM sizes").Scan(&count).Error; err != nil || count != 2 {
		t.Fatalf("expected seeded rows, got %d %v", count, err)
	}

	rolled, err := runner.To(ctx, "20260101000000")
	if err != nil {
		t.Fatalf("to: %v", err)
	}
	if len(rolled) != 1 || rolled[0] != 20260102000000 {
		t.Fatalf("unexpected rolled back versions %v", rolled)
	}

	status, err := runner.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(status) != 2 || !status[0].Applied || status[1].Applied {
		t.Fatalf("unexpected status %+v", status)
	}

	if _, err := runner.To(ctx, "not-a-version"); err == nil {
		t.Fatalf("expected invalid version error")
	}
}

func TestNewRunnerRequiresDB(t *testing.T) {
	if _, err := NewRunner(nil, "postgres", sampleMigrations); err == nil {
		t.Fatalf("expected error without db")
	}
}

func TestShouldAutoMigrateOnlyForDevAPI(t *testing.T) {
	cfg := func(env, kind string, flag bool) *config.Config {
		return &config.Config{
			App:          config.AppConfig{Env: env},
			Service:      config.ServiceConfig{Kind: kind},
			FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: flag},
		}
	}
	if !shouldAutoMigrate(cfg(config.AppEnvDev, "api", true)) {
		t.Fatal("dev api with the flag should migrate")
	}
	for name, c := range map[string]*config.Config{
		"flag off":   cfg(config.AppEnvDev, "api", false),
		"worker":     cfg(config.AppEnvDev, "cron-worker", true),
		"production": cfg(config.AppEnvProd, "api", true),
	} {
		if shouldAutoMigrate(c) {
			t.Fatalf("%s: expected no auto migration", name)
		}
	}
}
