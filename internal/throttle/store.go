package throttle

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "powerctl/pkg/logx"
)

// Store persists the notification record set: instance id -> UTC timestamp of
// the last notification sent.
//
// The contract is read-once / write-wholesale per run: Load returns the full
// record set, Save replaces it entirely. No partial updates, no concurrent
// writers assumed.
type Store interface {
	Load(ctx context.Context) (map[string]time.Time, error)
	Save(ctx context.Context, records map[string]time.Time) error
	Close() error
}

// Config configures the tracking store.
//
// Driver values:
//   - "file" (default): single JSON file, rewritten atomically each run
//   - "sqlite": SQLite database file
//   - "memory": process-local, for tests and dry runs
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, errors.New("unknown tracking driver: " + driver)
	}
}
