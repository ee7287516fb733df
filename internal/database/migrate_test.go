package database

import (
	"io/fs"
	"regexp"
	"strings"
	"testing"
)

// requiredUniqueKeys lists constraints the application relies on for
// correctness rather than just performance.
var requiredUniqueKeys = map[string]string{
	"users":        "uq_users_username",
	"sessions":     "uq_sessions_token_hash",
	"meal_plan":    "uq_meal_plan_date",
	"meal_history": "uq_meal_history_date",
}

func migrationFiles(t *testing.T, pattern string) []string {
	t.Helper()
	files, err := fs.Glob(Migrations, "migrations/"+pattern)
	if err != nil {
		t.Fatalf("globbing migration files: %v", err)
	}
	if len(files) == 0 {
		t.Fatalf("no migration files match %s", pattern)
	}
	return files
}

// TestMigrations_UpDownPairs ensures every .up.sql has a matching .down.sql.
func TestMigrations_UpDownPairs(t *testing.T) {
	for _, up := range migrationFiles(t, "*.up.sql") {
		down := strings.Replace(up, ".up.sql", ".down.sql", 1)
		if _, err := fs.Stat(Migrations, down); err != nil {
			t.Errorf("missing down migration for %s", up)
		}
	}
}

// TestMigrations_UniqueKeys checks that the constraints backing
// once-per-date archival and token lookup exist in the schema.
func TestMigrations_UniqueKeys(t *testing.T) {
	var all strings.Builder
	for _, f := range migrationFiles(t, "*.up.sql") {
		data, err := fs.ReadFile(Migrations, f)
		if err != nil {
			t.Fatalf("reading %s: %v", f, err)
		}
		all.Write(data)
	}
	schema := all.String()

	for table, key := range requiredUniqueKeys {
		pattern := regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS ` + table + ` \(.*?UNIQUE KEY ` + key + `\b`)
		if !pattern.MatchString(schema) {
			t.Errorf("table %s is missing unique key %s", table, key)
		}
	}
}

// TestMigrations_SessionsHaveNoForeignKey guards the weak reference from
// sessions to users.
func TestMigrations_SessionsHaveNoForeignKey(t *testing.T) {
	data, err := fs.ReadFile(Migrations, "migrations/000001_init.up.sql")
	if err != nil {
		t.Fatalf("reading init migration: %v", err)
	}
	block := regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS sessions \((.*?)\) ENGINE`).FindSubmatch(data)
	if block == nil {
		t.Fatal("sessions table not found")
	}
	if strings.Contains(string(block[1]), "FOREIGN KEY") {
		t.Error("sessions must not declare a foreign key to users")
	}
}
