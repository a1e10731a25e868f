package throttle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	logx "powerctl/pkg/logx"
)

// fileStore keeps the record set in one JSON file:
//
//	{"i-0abc": "2026-02-03T14:01:00Z", ...}
//
// Timestamps are RFC 3339 in UTC so the offset is unambiguous. The file is
// rewritten wholesale via tmp-write + rename, so a crashed run leaves either
// the old state or the new state, never a torn file.
type fileStore struct {
	path string
	log  logx.Logger
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("tracking.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &fileStore{path: path, log: log}, nil
}

func (s *fileStore) Load(ctx context.Context) (map[string]time.Time, error) {
	_ = ctx
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]time.Time{}, nil
		}
		return nil, err
	}

	var raw map[string]string
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("tracking file %s: %w", s.path, err)
	}

	records := make(map[string]time.Time, len(raw))
	for id, v := range raw {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("tracking file %s: record %q: %w", s.path, id, err)
		}
		records[id] = ts.UTC()
	}
	return records, nil
}

func (s *fileStore) Save(ctx context.Context, records map[string]time.Time) error {
	_ = ctx
	raw := make(map[string]string, len(records))
	for id, ts := range records {
		raw[id] = ts.UTC().Format(time.RFC3339)
	}

	// Keys sort deterministically under encoding/json, which keeps diffs of
	// the tracking file readable.
	b, err := json.MarshalIndent(raw, "", " ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *fileStore) Close() error { return nil }
