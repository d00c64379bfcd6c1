package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations applies all up migrations from dir against databaseURL.
// A database already at the latest version is not an error.
func RunMigrations(databaseURL, dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve migrations dir: %w", err)
	}

	src := "file://" + filepath.ToSlash(abs)

	// golang-migrate's postgres driver expects a postgres:// scheme.
	url := databaseURL
	if strings.HasPrefix(url, "postgresql://") {
		url = "postgres://" + strings.TrimPrefix(url, "postgresql://")
	}

	m, err := migrate.New(src, url)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}
