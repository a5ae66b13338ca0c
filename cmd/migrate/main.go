package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/mvalverde/agrolink-backend/pkg/config"
	"github.com/mvalverde/agrolink-backend/pkg/db"
	"github.com/mvalverde/agrolink-backend/pkg/logger"
	"github.com/mvalverde/agrolink-backend/pkg/migrate"
	"github.com/joho/godotenv"
)

type migrateFlags struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	_ = godotenv.Load()

	var flags migrateFlags
	flag.StringVar(&flags.cmd, "cmd", "up", "migration command: up|down|status|version|create|validate")
	flag.StringVar(&flags.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&flags.name, "name", "", "migration name (for create)")
	flag.StringVar(&flags.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fatalf("load config: %v", err)
	}

	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": flags.cmd,
		"dir": flags.dir,
	})
	logg.Info(ctx, "migrate ready")

	// create and validate work on the migrations directory alone.
	switch flags.cmd {
	case "create":
		if flags.name == "" {
			fatalf("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(flags.dir, flags.name)
		if err != nil {
			fatalf("failed to create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.ValidateDir(flags.dir); err != nil {
			fatalf("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "database unavailable", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "sql handle unavailable", err)
		os.Exit(1)
	}

	if err := runGoose(ctx, sqlDB, flags); err != nil {
		fatalf("%v", err)
	}
}

func runGoose(ctx context.Context, sqlDB *sql.DB, flags migrateFlags) error {
	switch flags.cmd {
	case "up", "down", "status":
		if err := migrate.Run(ctx, sqlDB, flags.dir, flags.cmd); err != nil {
			return fmt.Errorf("goose %s failed: %w", flags.cmd, err)
		}
	case "version":
		if flags.version == "" {
			return fmt.Errorf("missing -version for version command")
		}
		if err := migrate.MigrateToVersion(ctx, sqlDB, flags.dir, flags.version); err != nil {
			return fmt.Errorf("goose version migrate failed: %w", err)
		}
	default:
		return fmt.Errorf("unknown -cmd value: %s", flags.cmd)
	}
	return nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
