package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/edgekit/authcore/internal/authcore/domain"
)

type securityEventsRepo struct {
	db dbtx
}

func (r *securityEventsRepo) InsertEvent(ctx context.Context, ev domain.SecurityEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	detail, err := marshalDetail(ev.Detail)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO security_event (type, ip_address, user_id, user_agent, status, detail, created_at, actor_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.Type, ev.IPAddress, optionalInt64(ev.UserID), ev.UserAgent, ev.Status, detail, ev.CreatedAt, ev.ActorID,
	)
	return err
}

func (r *securityEventsRepo) CountEventsByTypeAndIP(ctx context.Context, eventType, ip string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM security_event
		 WHERE type = ? AND ip_address = ? AND created_at >= ?`,
		eventType, ip, since,
	).Scan(&count)
	return count, err
}

func (r *securityEventsRepo) ListRecentEvents(ctx context.Context, limit int) ([]domain.SecurityEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, type, ip_address, user_id, user_agent, status, detail, created_at, actor_id
		 FROM security_event
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.SecurityEvent
	for rows.Next() {
		var (
			ev     domain.SecurityEvent
			userID sql.NullInt64
			detail sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.Type, &ev.IPAddress, &userID, &ev.UserAgent, &ev.Status, &detail, &ev.CreatedAt, &ev.ActorID); err != nil {
			return nil, err
		}
		if userID.Valid {
			uid := userID.Int64
			ev.UserID = &uid
		}
		if detail.Valid && detail.String != "" {
			// Detail text is written by marshalDetail; a decode failure here
			// means outside interference, surface the row anyway.
			_ = json.Unmarshal([]byte(detail.String), &ev.Detail)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func marshalDetail(detail map[string]any) (string, error) {
	if len(detail) == 0 {
		return "", nil
	}
	b, err := json.Marshal(detail)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func optionalInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
