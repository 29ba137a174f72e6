package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const lastHostKey = "last_host"

// HostRecord 记录最近一次登录成功时使用的域名。
type HostRecord struct {
	Host       string    `json:"host"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

func (s *Store) GetLastHost(ctx context.Context) (HostRecord, bool, error) {
	var valueJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT value_json FROM settings WHERE key = ?
	`, lastHostKey).Scan(&valueJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return HostRecord{}, false, nil
		}
		return HostRecord{}, false, err
	}
	var out HostRecord
	if err := json.Unmarshal([]byte(valueJSON), &out); err != nil {
		return HostRecord{}, false, err
	}
	if strings.TrimSpace(out.Host) == "" {
		return HostRecord{}, false, nil
	}
	return out, true, nil
}

func (s *Store) SetLastHost(ctx context.Context, host string, at time.Time) error {
	b, err := json.Marshal(HostRecord{Host: host, ResolvedAt: at})
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value_json = excluded.value_json,
			updated_at = excluded.updated_at
	`, lastHostKey, string(b), time.Now().UnixMilli())
	return err
}
