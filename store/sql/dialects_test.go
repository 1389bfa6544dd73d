package sqlstore

import (
	"testing"

	"github.com/uptrace/bun/dialect"
)

func TestDialect_ResolvesDriverAliases(t *testing.T) {
	cases := []struct {
		driver string
		want   dialect.Name
	}{
		{"postgres", dialect.PG},
		{"PostgreSQL", dialect.PG},
		{" pg ", dialect.PG},
		{"sqlite3", dialect.SQLite},
		{"SQLite", dialect.SQLite},
	}
	for _, tc := range cases {
		d, err := Dialect(tc.driver)
		if err != nil {
			t.Fatalf("Dialect(%q) returned error: %v", tc.driver, err)
		}
		if got := d.Name(); got != tc.want {
			t.Fatalf("Dialect(%q) resolved %v, want %v", tc.driver, got, tc.want)
		}
	}
}

func TestDialect_RejectsUnknownDriver(t *testing.T) {
	if _, err := Dialect("oracle"); err == nil {
		t.Fatal("expected an error for an unsupported driver")
	}
}

func TestOpen_SQLitePairsHandleAndDialect(t *testing.T) {
	db, d, err := Open("sqlite", "file:florin-dialects-test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer db.Close()

	if got := d.Name(); got != dialect.SQLite {
		t.Fatalf("Open resolved dialect %v, want %v", got, dialect.SQLite)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
