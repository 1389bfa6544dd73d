package migrations

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	florin "github.com/goliatone/go-florin"
	_ "github.com/mattn/go-sqlite3"
)

func TestFilesystems_ReturnsPostgresAndSQLite(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	if len(filesystems) != 2 {
		t.Fatalf("expected 2 filesystems, got %d", len(filesystems))
	}

	var postgresFound bool
	var sqliteFound bool
	for _, entry := range filesystems {
		matches, globErr := fs.Glob(entry.FS, "*.up.sql")
		if globErr != nil {
			t.Fatalf("glob %s: %v", entry.Dialect, globErr)
		}
		if len(matches) == 0 {
			t.Fatalf("expected %s migration files, got none", entry.Dialect)
		}
		switch entry.Dialect {
		case DialectPostgres:
			postgresFound = true
		case DialectSQLite:
			sqliteFound = true
		}
	}

	if !postgresFound {
		t.Fatalf("expected postgres filesystem")
	}
	if !sqliteFound {
		t.Fatalf("expected sqlite filesystem")
	}
}

func TestRegister_UsesValidationTargets(t *testing.T) {
	var calls []string
	_, err := Register(context.Background(), func(_ context.Context, dialect string, _ string, _ fs.FS) error {
		calls = append(calls, dialect)
		return nil
	}, WithValidationTargets(DialectSQLite))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if len(calls) != 1 {
		t.Fatalf("expected 1 registration call, got %d", len(calls))
	}
	if calls[0] != DialectSQLite {
		t.Fatalf("expected sqlite registration, got %q", calls[0])
	}
}

func TestStateUniquenessMigrationPair_ExistsForBothDialects(t *testing.T) {
	root := florin.GetCoreMigrationsFS()
	paths := []string{
		"data/sql/migrations/00002_florin_state_uniqueness.up.sql",
		"data/sql/migrations/00002_florin_state_uniqueness.down.sql",
		"data/sql/migrations/sqlite/00002_florin_state_uniqueness.up.sql",
		"data/sql/migrations/sqlite/00002_florin_state_uniqueness.down.sql",
	}
	for _, migrationPath := range paths {
		content, err := fs.ReadFile(root, migrationPath)
		if err != nil {
			t.Fatalf("read migration %s: %v", migrationPath, err)
		}
		if strings.TrimSpace(string(content)) == "" {
			t.Fatalf("expected migration %s to have SQL content", migrationPath)
		}
	}
}

func TestSQLiteStateUniquenessMigration_ApplyAndRollback(t *testing.T) {
	db, err := sql.Open("sqlite3", "file:migrations-state-uniqueness?mode=memory&cache=shared&_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	defer func() { _ = db.Close() }()

	root := florin.GetCoreMigrationsFS()
	sqliteMigrations, err := fs.Sub(root, "data/sql/migrations/sqlite")
	if err != nil {
		t.Fatalf("resolve sqlite migrations: %v", err)
	}

	if err := execSQLMigration(context.Background(), db, sqliteMigrations, "00001_florin_core_schema.up.sql"); err != nil {
		t.Fatalf("apply core schema migration: %v", err)
	}

	insertState := `
		INSERT INTO florin_rate_limit_states (
			id,
			group_key,
			method,
			limit_total,
			remaining,
			metadata,
			created_at,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	rows := [][]any{
		{"dup-old", "transactions", "GET", 120, 119, "{}", "2026-01-01T00:00:00Z", "2026-01-01T00:00:00Z"},
		{"dup-new", "transactions", "GET", 120, 80, "{}", "2026-02-01T00:00:00Z", "2026-02-01T00:00:00Z"},
		{"tie-b", "accounts", "GET", 60, 59, "{}", "2026-02-01T00:00:00Z", "2026-02-01T00:00:00Z"},
		{"tie-a", "accounts", "GET", 60, 58, "{}", "2026-02-01T00:00:00Z", "2026-02-01T00:00:00Z"},
	}
	for _, row := range rows {
		if _, err := db.ExecContext(context.Background(), insertState, row...); err != nil {
			t.Fatalf("insert seed row %v: %v", row[0], err)
		}
	}

	if err := execSQLMigration(
		context.Background(),
		db,
		sqliteMigrations,
		"00002_florin_state_uniqueness.up.sql",
	); err != nil {
		t.Fatalf("apply uniqueness migration up: %v", err)
	}

	var count int
	if err := db.QueryRowContext(
		context.Background(),
		`SELECT COUNT(*) FROM florin_rate_limit_states WHERE group_key=? AND method=?`,
		"transactions",
		"GET",
	).Scan(&count); err != nil {
		t.Fatalf("count deduped transactions rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected transactions dedupe count=1, got %d", count)
	}

	var winningID string
	if err := db.QueryRowContext(
		context.Background(),
		`SELECT id FROM florin_rate_limit_states WHERE group_key=? AND method=?`,
		"transactions",
		"GET",
	).Scan(&winningID); err != nil {
		t.Fatalf("select winning transactions row: %v", err)
	}
	if winningID != "dup-new" {
		t.Fatalf("expected transactions winner dup-new (latest updated_at), got %q", winningID)
	}

	if err := db.QueryRowContext(
		context.Background(),
		`SELECT id FROM florin_rate_limit_states WHERE group_key=? AND method=?`,
		"accounts",
		"GET",
	).Scan(&winningID); err != nil {
		t.Fatalf("select winning accounts row: %v", err)
	}
	if winningID != "tie-a" {
		t.Fatalf("expected accounts winner tie-a (id ASC tie-breaker), got %q", winningID)
	}

	if _, err := db.ExecContext(
		context.Background(),
		insertState,
		"dup-after-up",
		"transactions",
		"GET",
		120,
		70,
		"{}",
		"2026-03-01T00:00:00Z",
		"2026-03-01T00:00:00Z",
	); err == nil {
		t.Fatalf("expected unique index violation after up migration")
	}

	insertJob := `
		INSERT INTO florin_sync_jobs (
			id,
			resource,
			mode,
			status,
			error,
			idempotency_key,
			enqueued_at,
			metadata,
			created_at,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := db.ExecContext(
		context.Background(),
		insertJob,
		"job-1", "transactions", "incremental", "queued", "", "key-1",
		"2026-03-01T00:00:00Z", "{}", "2026-03-01T00:00:00Z", "2026-03-01T00:00:00Z",
	); err != nil {
		t.Fatalf("insert first keyed job: %v", err)
	}
	if _, err := db.ExecContext(
		context.Background(),
		insertJob,
		"job-2", "transactions", "incremental", "queued", "", "key-1",
		"2026-03-01T00:00:01Z", "{}", "2026-03-01T00:00:01Z", "2026-03-01T00:00:01Z",
	); err == nil {
		t.Fatalf("expected idempotency key collision to violate unique index")
	}
	if _, err := db.ExecContext(
		context.Background(),
		insertJob,
		"job-3", "transactions", "incremental", "queued", "", "",
		"2026-03-01T00:00:02Z", "{}", "2026-03-01T00:00:02Z", "2026-03-01T00:00:02Z",
	); err != nil {
		t.Fatalf("insert first unkeyed job: %v", err)
	}
	if _, err := db.ExecContext(
		context.Background(),
		insertJob,
		"job-4", "transactions", "incremental", "queued", "", "",
		"2026-03-01T00:00:03Z", "{}", "2026-03-01T00:00:03Z", "2026-03-01T00:00:03Z",
	); err != nil {
		t.Fatalf("expected unkeyed jobs to bypass partial unique index: %v", err)
	}

	if err := execSQLMigration(
		context.Background(),
		db,
		sqliteMigrations,
		"00002_florin_state_uniqueness.down.sql",
	); err != nil {
		t.Fatalf("apply uniqueness migration down: %v", err)
	}

	if _, err := db.ExecContext(
		context.Background(),
		insertState,
		"dup-after-down",
		"transactions",
		"GET",
		120,
		60,
		"{}",
		"2026-04-01T00:00:00Z",
		"2026-04-01T00:00:00Z",
	); err != nil {
		t.Fatalf("expected duplicate insert to succeed after down migration: %v", err)
	}
}

func execSQLMigration(ctx context.Context, db *sql.DB, fsys fs.FS, filename string) error {
	content, err := fs.ReadFile(fsys, filepath.Clean(filename))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(content))
	return err
}
