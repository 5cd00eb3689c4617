package database

import (
	"io/fs"
	"strings"
	"testing"

	"example.com/budget-tracker/backend/internal/config"
)

// TestMigrationDSN проверяет схему строки подключения для golang-migrate.
func TestMigrationDSN(t *testing.T) {
	dsn := migrationDSN(config.DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "budget",
		Password: "secret",
		Name:     "budget_tracker",
		SSLMode:  "disable",
	})

	want := "pgx5://budget:secret@db:5432/budget_tracker?sslmode=disable"
	if dsn != want {
		t.Fatalf("expected %s, got %s", want, dsn)
	}
}

// TestEmbeddedMigrations проверяет наличие парных up/down миграций.
func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}

	ups, downs := 0, 0
	for _, entry := range entries {
		switch {
		case strings.HasSuffix(entry.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(entry.Name(), ".down.sql"):
			downs++
		}
	}

	if ups == 0 || ups != downs {
		t.Fatalf("expected matching up/down migrations, got %d up and %d down", ups, downs)
	}
}
