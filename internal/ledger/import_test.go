package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeLegacyCSV(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestImportLegacyCSV(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	writeLegacyCSV(t, dir, "UserDetails.csv",
		"Id,Name\n1,Alice\n2,Bob\nbad-id,Charlie\n")
	writeLegacyCSV(t, dir, "Attendance.csv",
		"Id,Name,Date,Time\n1,Alice,2026-03-10,09:00:00\n1,Alice,2026-03-10,09:00:00\n")
	writeLegacyCSV(t, dir, "EnrollmentRequests.csv",
		"Name,Contact,Message,Timestamp,Status\nCarol,carol@example.com,please,2026-03-09 18:00:00,pending\n")

	stats, err := store.ImportLegacyCSV(ctx, dir)
	if err != nil {
		t.Fatalf("importing: %v", err)
	}
	if stats.Users != 2 {
		t.Errorf("imported %d users, want 2", stats.Users)
	}
	if stats.Attendance != 1 {
		t.Errorf("imported %d attendance rows, want 1 (exact duplicate dropped)", stats.Attendance)
	}
	if stats.Requests != 1 {
		t.Errorf("imported %d requests, want 1", stats.Requests)
	}
	if stats.Skipped == 0 {
		t.Error("malformed rows should be counted as skipped")
	}

	users, err := store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("listing users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}
}

func TestImportLegacyCSVSkipsNonEmptyTables(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.UpsertUser(ctx, 5, "Existing"); err != nil {
		t.Fatalf("upserting user: %v", err)
	}

	dir := t.TempDir()
	writeLegacyCSV(t, dir, "UserDetails.csv", "Id,Name\n1,Alice\n")

	stats, err := store.ImportLegacyCSV(ctx, dir)
	if err != nil {
		t.Fatalf("importing: %v", err)
	}
	if stats.Users != 0 {
		t.Errorf("imported %d users into non-empty table, want 0", stats.Users)
	}
}

func TestImportLegacyCSVMissingFiles(t *testing.T) {
	store := openTestStore(t)

	stats, err := store.ImportLegacyCSV(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("importing from empty dir: %v", err)
	}
	if stats.Users != 0 || stats.Attendance != 0 || stats.Requests != 0 {
		t.Errorf("stats = %+v, want all zero", stats)
	}
}
