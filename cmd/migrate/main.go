package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/artfolio/storefront-backend/pkg/config"
	"github.com/artfolio/storefront-backend/pkg/db"
	"github.com/artfolio/storefront-backend/pkg/logger"
	"github.com/artfolio/storefront-backend/pkg/migrate"
)

type options struct {
	cmd      string
	dir      string
	embedded bool
	name     string
	version  string
}

func main() {
	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "up|down|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.BoolVar(&opts.embedded, "embedded", false, "use the migrations compiled into the binary instead of -dir")
	flag.StringVar(&opts.name, "name", "", "migration name, for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS), for -cmd=version")
	flag.Parse()

	_ = godotenv.Load()

	if err := run(context.Background(), opts); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", opts.cmd, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	// These two only touch files, so they run without config or a database.
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return fmt.Errorf("-name is required")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return err
		}
		fmt.Println("created", path)
		return nil
	case "validate":
		if opts.embedded {
			return migrate.ValidateEmbedded()
		}
		return migrate.ValidateDir(opts.dir)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	dialect := migrate.Dialect(cfg.DB)
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"cmd":      opts.cmd,
		"dialect":  dialect,
		"embedded": opts.embedded,
	})
	logg.Info(ctx, "migrate.start")

	switch opts.cmd {
	case "up", "down", "status":
		if opts.embedded {
			err = migrate.RunEmbedded(ctx, sqlDB, dialect, opts.cmd)
		} else {
			err = migrate.Run(ctx, sqlDB, dialect, opts.dir, opts.cmd)
		}
	case "version":
		if opts.version == "" {
			return fmt.Errorf("-version is required")
		}
		err = migrate.MigrateToVersion(ctx, sqlDB, dialect, opts.dir, opts.version)
	default:
		return fmt.Errorf("unknown command %q", opts.cmd)
	}
	if err != nil {
		return err
	}
	logg.Info(ctx, "migrate.done")
	return nil
}
