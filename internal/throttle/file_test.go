package throttle

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	logx "powerctl/pkg/logx"
)

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tracking.json")
	store, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer store.Close()

	want := map[string]time.Time{
		"i-1": time.Date(2026, time.February, 3, 14, 0, 0, 0, time.UTC),
		"i-2": time.Date(2026, time.February, 3, 9, 30, 0, 0, time.UTC),
	}
	if err := store.Save(context.Background(), want); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Load returned %d records, want %d", len(got), len(want))
	}
	for id, ts := range want {
		if !got[id].Equal(ts) {
			t.Errorf("record %q = %v, want %v", id, got[id], ts)
		}
	}
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tracking.json")
	store, err := Open(Config{Path: path}, logx.Nop()) // empty driver defaults to file
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer store.Close()

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Load returned %d records, want 0", len(got))
	}
}

func TestFileStoreCorruptFileErrors(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tracking.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	store, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer store.Close()

	if _, err := store.Load(context.Background()); err == nil {
		t.Fatal("Load succeeded on corrupt file, want error")
	}
}

func TestFileStoreWritesUTCOffsets(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tracking.json")
	store, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer store.Close()

	in := map[string]time.Time{
		"i-1": time.Date(2026, time.February, 3, 15, 0, 0, 0, time.FixedZone("CET", 3600)),
	}
	if err := store.Save(context.Background(), in); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "2026-02-03T14:00:00Z") {
		t.Fatalf("tracking file does not carry a UTC timestamp:\n%s", b)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "etcd"}, logx.Nop()); err == nil {
		t.Fatal("Open succeeded with unknown driver, want error")
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tracking.db")
	store, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer store.Close()

	first := map[string]time.Time{
		"i-1": time.Date(2026, time.February, 3, 14, 0, 0, 0, time.UTC),
		"i-2": time.Date(2026, time.February, 3, 9, 30, 0, 0, time.UTC),
	}
	if err := store.Save(context.Background(), first); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	// Save replaces wholesale: i-2 must disappear.
	second := map[string]time.Time{
		"i-1": time.Date(2026, time.February, 4, 8, 0, 0, 0, time.UTC),
	}
	if err := store.Save(context.Background(), second); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Load returned %d records, want 1", len(got))
	}
	if !got["i-1"].Equal(second["i-1"]) {
		t.Fatalf("record i-1 = %v, want %v", got["i-1"], second["i-1"])
	}
}
