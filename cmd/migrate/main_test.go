package main

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestLoadEmbeddedMigrations(t *testing.T) {
	migrations, err := loadMigrations(migrationsFS)
	if err != nil {
		t.Fatalf("unexpected error loading embedded migrations: %v", err)
	}
	if len(migrations) != 4 {
		t.Fatalf("expected 4 migrations, got %d", len(migrations))
	}
	for i, m := range migrations {
		if m.Version != int64(i+1) {
			t.Fatalf("migration %d has version %d", i, m.Version)
		}
		if m.UpSQL == "" || m.DownSQL == "" {
			t.Fatalf("migration %d missing up or down sql", m.Version)
		}
	}
	if !strings.Contains(migrations[0].UpSQL, "ohlc_hourly") {
		t.Fatal("first migration must create the price tables")
	}
	if !strings.Contains(migrations[3].UpSQL, "daily_market_snapshot") {
		t.Fatal("last migration must create the snapshot table")
	}
}

func TestLoadMigrationsRejectsMissingDown(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/1_partial.up.sql": {Data: []byte("CREATE TABLE t (id INT);")},
	}
	if _, err := loadMigrations(fsys); err == nil {
		t.Fatal("expected error for migration without a down file")
	}
}

func TestLoadMigrationsRejectsBadFilename(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/first.up.sql":   {Data: []byte("SELECT 1;")},
		"migrations/first.down.sql": {Data: []byte("SELECT 1;")},
	}
	if _, err := loadMigrations(fsys); err == nil {
		t.Fatal("expected error for unversioned filename")
	}
}
