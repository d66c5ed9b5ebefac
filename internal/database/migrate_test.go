package database

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// migrationsDir returns the absolute path to migrations/ from the project root.
func migrationsDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	// thisFile is internal/database/migrate_test.go, project root is two dirs up.
	projectRoot := filepath.Join(filepath.Dir(thisFile), "..", "..")
	dir := filepath.Join(projectRoot, "migrations")
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("migrations directory not found at %s: %v", dir, err)
	}
	return dir
}

// TestMigrations_UpDownPairs ensures every .up.sql has a matching .down.sql.
func TestMigrations_UpDownPairs(t *testing.T) {
	dir := migrationsDir(t)
	upFiles, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing up files: %v", err)
	}
	if len(upFiles) == 0 {
		t.Fatal("no migration files found")
	}

	for _, up := range upFiles {
		down := strings.Replace(up, ".up.sql", ".down.sql", 1)
		if _, err := os.Stat(down); err != nil {
			t.Errorf("missing down migration for %s", filepath.Base(up))
		}
	}
}

// TestMigrations_UsersSchemaMatchesQueries guards the column list the user
// repository scans against drift in the migration SQL.
func TestMigrations_UsersSchemaMatchesQueries(t *testing.T) {
	dir := migrationsDir(t)

	data, err := os.ReadFile(filepath.Join(dir, "000001_create_users_table.up.sql"))
	if err != nil {
		t.Fatalf("reading users migration: %v", err)
	}
	content := string(data)

	for _, column := range []string{"id", "email", "name", "password_hash", "created_at"} {
		if !strings.Contains(content, column) {
			t.Errorf("users migration missing column %q", column)
		}
	}
	if !strings.Contains(strings.ToUpper(content), "UNIQUE") {
		t.Error("users.email must carry a unique constraint; duplicate detection relies on it")
	}
}
