package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"mopesa.org/internal/config"
)

func main() {
	log.SetFlags(0)
	cfg := config.Load()
	var (
		dsn  = flag.String("dsn", cfg.DatabaseURL, "PostgreSQL DSN")
		path = flag.String("migrations", cfg.MigrationsDir, "Path to SQL migrations")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or MOPESA_PG_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|version]")
	}

	m, err := migrate.New("file://"+*path, pgxURL(*dsn))
	if err != nil {
		log.Fatalf("init migrate: %v", err)
	}
	defer m.Close()

	switch flag.Arg(0) {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "version":
		var v uint
		var dirty bool
		v, dirty, err = m.Version()
		if err == nil {
			fmt.Printf("version=%d dirty=%v\n", v, dirty)
		}
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Fprintln(os.Stderr, "no change")
	}
}

// pgxURL rewrites a postgres:// DSN to the pgx5 migrate driver scheme.
func pgxURL(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") {
		return "pgx5://" + strings.TrimPrefix(dsn, "postgres://")
	}
	if strings.HasPrefix(dsn, "postgresql://") {
		return "pgx5://" + strings.TrimPrefix(dsn, "postgresql://")
	}
	return dsn
}
