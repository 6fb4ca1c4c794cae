package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"autonomous-agent/internal/domain"
)

// userAgentKey is lifted out of the event data into the user_agent column.
const userAgentKey = "userAgent"

// TrackAnalytics inserts a site_analytics row. The whole data map is stored as JSON.
func (s *Store) TrackAnalytics(ctx context.Context, eventType string, data map[string]any) (int64, error) {
	if strings.TrimSpace(eventType) == "" {
		return 0, errors.New("analytics: event type is required")
	}
	if data == nil {
		data = map[string]any{}
	}
	userAgent := domain.DefaultUserAgent
	if ua, ok := data[userAgentKey].(string); ok && strings.TrimSpace(ua) != "" {
		userAgent = ua
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return 0, fmt.Errorf("encode event data: %w", err)
	}

	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	id, err := s.dialect.insert(ctx, db, s.dialect.rebind(`
INSERT INTO site_analytics (event_type, event_data, user_agent)
VALUES (?, ?, ?)`),
		eventType, string(payload), userAgent)
	if err != nil {
		return 0, fmt.Errorf("insert analytics event: %w", err)
	}
	return id, nil
}

// GetAnalytics returns the newest events first, optionally only those of eventType.
func (s *Store) GetAnalytics(ctx context.Context, eventType string, limit int) ([]domain.AnalyticsEvent, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	q := `SELECT id, event_date, event_type, event_data, user_agent FROM site_analytics`
	args := []any{}
	if eventType != "" {
		q += ` WHERE event_type = ?`
		args = append(args, eventType)
	}
	q += ` ORDER BY event_date DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, s.dialect.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("query analytics: %w", err)
	}
	defer rows.Close()

	out := make([]domain.AnalyticsEvent, 0, limit)
	for rows.Next() {
		var (
			e            domain.AnalyticsEvent
			date         dbTime
			etype, agent sql.NullString
			data         []byte
		)
		if err := rows.Scan(&e.ID, &date, &etype, &data, &agent); err != nil {
			return nil, fmt.Errorf("scan analytics event: %w", err)
		}
		e.EventDate = date.Time
		e.EventType = etype.String
		e.UserAgent = agent.String
		if len(data) > 0 {
			e.EventData = json.RawMessage(append([]byte(nil), data...))
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analytics: %w", err)
	}
	return out, nil
}
