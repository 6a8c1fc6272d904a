package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/rehabplan/internal/models"
)

// CreateInquiry stores an inquiry. An empty UserID is stored as NULL.
func (s *SQLiteStore) CreateInquiry(ctx context.Context, inquiry *models.Inquiry) error {
	if inquiry.ID == "" {
		inquiry.ID = uuid.New().String()
	}
	if inquiry.CreatedAt == 0 {
		inquiry.CreatedAt = time.Now().Unix()
	}

	userID := sql.NullString{String: inquiry.UserID, Valid: inquiry.UserID != ""}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO inquiries (id, user_id, title, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		inquiry.ID, userID, inquiry.Title, inquiry.Content, inquiry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert inquiry: %w", err)
	}
	return nil
}

// ListInquiries returns all inquiries, newest first, with the sender's
// username joined in.
func (s *SQLiteStore) ListInquiries(ctx context.Context) ([]*models.Inquiry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT i.id, i.user_id, u.username, i.title, i.content, i.created_at
		 FROM inquiries i LEFT JOIN users u ON i.user_id = u.id
		 ORDER BY i.created_at DESC, i.rowid DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list inquiries: %w", err)
	}
	defer rows.Close()

	var inquiries []*models.Inquiry
	for rows.Next() {
		var (
			inquiry          models.Inquiry
			userID, username sql.NullString
		)
		if err := rows.Scan(&inquiry.ID, &userID, &username, &inquiry.Title, &inquiry.Content, &inquiry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inquiry: %w", err)
		}
		inquiry.UserID = userID.String
		inquiry.Username = username.String
		inquiries = append(inquiries, &inquiry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate inquiries: %w", err)
	}

	return inquiries, nil
}
