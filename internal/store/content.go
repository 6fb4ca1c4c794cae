package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"autonomous-agent/internal/domain"
)

const defaultListLimit = 10

// AddContentUpdate inserts a content_updates row and returns its id.
func (s *Store) AddContentUpdate(ctx context.Context, u domain.NewContentUpdate) (int64, error) {
	if strings.TrimSpace(u.ContentType) == "" {
		return 0, errors.New("content update: content type is required")
	}
	if u.Status == "" {
		u.Status = domain.StatusPublished
	}
	if u.CreatedBy == "" {
		u.CreatedBy = domain.DefaultCreatedBy
	}

	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	id, err := s.dialect.insert(ctx, db, s.dialect.rebind(`
INSERT INTO content_updates (content_type, content, status, created_by)
VALUES (?, ?, ?, ?)`),
		u.ContentType, u.Content, u.Status, u.CreatedBy)
	if err != nil {
		return 0, fmt.Errorf("insert content update: %w", err)
	}
	return id, nil
}

// GetContentUpdates returns the newest rows first. limit <= 0 means 10.
func (s *Store) GetContentUpdates(ctx context.Context, limit int) ([]domain.ContentUpdate, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := db.QueryContext(ctx, s.dialect.rebind(`
SELECT id, update_date, content_type, content, status, created_by
FROM content_updates
ORDER BY update_date DESC, id DESC
LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("query content updates: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ContentUpdate, 0, limit)
	for rows.Next() {
		var (
			u                                 domain.ContentUpdate
			date                              dbTime
			ctype, content, status, createdBy sql.NullString
		)
		if err := rows.Scan(&u.ID, &date, &ctype, &content, &status, &createdBy); err != nil {
			return nil, fmt.Errorf("scan content update: %w", err)
		}
		u.UpdateDate = date.Time
		u.ContentType = ctype.String
		u.Content = content.String
		u.Status = status.String
		u.CreatedBy = createdBy.String
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content updates: %w", err)
	}
	return out, nil
}
