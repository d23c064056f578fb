// Command migrate applies the embedded auditor schema.
//
//	migrate [-dsn URL] up|down|version|steps N|force V
//
// Without -dsn the connection comes from AUDITOR_DB_DSN, then from the
// [database] section of the service configuration.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"

	"github.com/JaimeStill/auditor/internal/config"
	"github.com/JaimeStill/auditor/internal/migrations"
)

const envDSN = "AUDITOR_DB_DSN"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	dsn := flag.String("dsn", "", "postgres:// connection URL")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: migrate [-dsn URL] up|down|version|steps N|force V")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	url, err := resolveDSN(*dsn)
	if err != nil {
		logger.Error("resolve connection", "error", err)
		os.Exit(1)
	}

	m, err := migrations.New(url)
	if err != nil {
		logger.Error("create migrator", "error", err)
		os.Exit(1)
	}
	defer m.Close()

	if err := run(m, flag.Args(), logger); err != nil {
		logger.Error("migrate failed", "command", flag.Arg(0), "error", err)
		m.Close()
		os.Exit(1)
	}
}

func resolveDSN(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv(envDSN); v != "" {
		return v, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return "", fmt.Errorf("no -dsn or %s, and config failed: %w", envDSN, err)
	}
	return cfg.Database.URL(), nil
}

func run(m *migrate.Migrate, args []string, logger *slog.Logger) error {
	ignoreNoChange := func(err error) error {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return err
	}

	switch args[0] {
	case "up":
		if err := ignoreNoChange(m.Up()); err != nil {
			return err
		}
	case "down":
		if err := ignoreNoChange(m.Down()); err != nil {
			return err
		}
	case "steps", "force":
		if len(args) < 2 {
			return fmt.Errorf("%s requires a number", args[0])
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		if args[0] == "force" {
			err = m.Force(n)
		} else {
			err = ignoreNoChange(m.Steps(n))
		}
		if err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}

	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		logger.Info("schema is empty")
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("schema version", "version", v, "dirty", dirty)
	return nil
}
