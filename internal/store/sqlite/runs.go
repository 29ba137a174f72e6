package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"ikuuu_checkin/internal/model"
)

const defaultRunLimit = 20

// InsertRun 保存一次运行，缺少 RunID 时自动生成。
func (s *Store) InsertRun(ctx context.Context, r model.Report) (model.Report, error) {
	if r.Email == "" {
		return model.Report{}, errors.New("email is required")
	}
	if r.RunID == "" {
		r.RunID = uuid.NewString()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = r.StartedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, host, email, username, logged_in, checkin_outcome, checkin_message,
			remaining, used_today, total, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.RunID, r.Host, r.Email, r.Username, boolToInt(r.LoggedIn), string(r.Checkin.Outcome), r.Checkin.Message,
		r.Quota.Remaining, r.Quota.UsedToday, r.Quota.Total, r.StartedAt.UnixMilli(), r.FinishedAt.UnixMilli())
	if err != nil {
		return model.Report{}, err
	}
	return r, nil
}

// ListRuns 按时间倒序返回运行记录。
func (s *Store) ListRuns(ctx context.Context, limit int) ([]model.Report, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, host, email, username, logged_in, checkin_outcome, checkin_message,
			remaining, used_today, total, started_at, finished_at
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Report
	for rows.Next() {
		var (
			r          model.Report
			loggedIn   int
			outcome    string
			startedAt  int64
			finishedAt int64
		)
		if err := rows.Scan(&r.RunID, &r.Host, &r.Email, &r.Username, &loggedIn, &outcome, &r.Checkin.Message,
			&r.Quota.Remaining, &r.Quota.UsedToday, &r.Quota.Total, &startedAt, &finishedAt); err != nil {
			return nil, err
		}
		r.LoggedIn = loggedIn != 0
		r.Checkin.Outcome = model.CheckinOutcome(outcome)
		r.StartedAt = time.UnixMilli(startedAt)
		r.FinishedAt = time.UnixMilli(finishedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
