package database

import (
	"io/fs"
	"strings"
	"testing"
)

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://u:p@localhost:5432/app?sslmode=disable", "pgx5://u:p@localhost:5432/app?sslmode=disable"},
		{"postgresql://localhost/app", "pgx5://localhost/app"},
		{"pgx5://localhost/app", "pgx5://localhost/app"},
	}
	for _, tt := range tests {
		if got := MigrateURL(tt.in); got != tt.want {
			t.Errorf("MigrateURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file in migrations: %s", name)
		}
	}
	if len(ups) == 0 {
		t.Fatal("no migrations embedded")
	}
	for name := range ups {
		if !downs[name] {
			t.Errorf("migration %s has no down file", name)
		}
	}
}
