package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/rehabplan/internal/models"
	"github.com/mmynk/rehabplan/internal/storage"
)

// CreateTemplate persists a new plan template. Creditors are stored as a
// JSON document in their original order.
func (s *SQLiteStore) CreateTemplate(ctx context.Context, tmpl *models.PlanTemplate) error {
	if tmpl.ID == "" {
		tmpl.ID = uuid.New().String()
	}
	if tmpl.CreatedAt == 0 {
		tmpl.CreatedAt = time.Now().Unix()
	}

	creditors, err := json.Marshal(tmpl.Creditors)
	if err != nil {
		return fmt.Errorf("failed to encode creditors: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO repayment_plan_templates (id, user_id, name, creditors, monthly_available, months, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tmpl.ID, tmpl.OwnerID, tmpl.Name, string(creditors), tmpl.MonthlyAvailable, tmpl.Months, tmpl.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert template: %w", err)
	}

	return nil
}

// GetTemplate retrieves a template by ID, scoped to its owner.
func (s *SQLiteStore) GetTemplate(ctx context.Context, id, ownerID string) (*models.PlanTemplate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, creditors, monthly_available, months, created_at
		 FROM repayment_plan_templates WHERE id = ? AND user_id = ?`,
		id, ownerID,
	)
	tmpl, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return tmpl, nil
}

// ListTemplates returns the owner's templates, newest first.
func (s *SQLiteStore) ListTemplates(ctx context.Context, ownerID string) ([]*models.PlanTemplate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, creditors, monthly_available, months, created_at
		 FROM repayment_plan_templates WHERE user_id = ?
		 ORDER BY created_at DESC, rowid DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []*models.PlanTemplate
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, tmpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate templates: %w", err)
	}

	return templates, nil
}

// DeleteTemplate removes one of the owner's templates.
func (s *SQLiteStore) DeleteTemplate(ctx context.Context, id, ownerID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM repayment_plan_templates WHERE id = ? AND user_id = ?`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("template %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func scanTemplate(row rowScanner) (*models.PlanTemplate, error) {
	tmpl := &models.PlanTemplate{}
	var creditors string
	if err := row.Scan(&tmpl.ID, &tmpl.OwnerID, &tmpl.Name, &creditors,
		&tmpl.MonthlyAvailable, &tmpl.Months, &tmpl.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(creditors), &tmpl.Creditors); err != nil {
		return nil, fmt.Errorf("failed to decode creditors of template %s: %w", tmpl.ID, err)
	}
	return tmpl, nil
}
