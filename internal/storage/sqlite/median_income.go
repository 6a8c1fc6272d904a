package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/rehabplan/internal/models"
	"github.com/mmynk/rehabplan/internal/storage"
)

// ListMedianIncome returns the whole table, latest year first.
func (s *SQLiteStore) ListMedianIncome(ctx context.Context) ([]*models.MedianIncome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, year, household_size, amount, created_at
		 FROM standard_median_income ORDER BY year DESC, household_size ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list median income: %w", err)
	}
	defer rows.Close()

	var entries []*models.MedianIncome
	for rows.Next() {
		e := &models.MedianIncome{}
		if err := rows.Scan(&e.ID, &e.Year, &e.HouseholdSize, &e.Amount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan median income: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate median income: %w", err)
	}

	return entries, nil
}

// GetMedianIncome looks up the entry for one year and household size.
func (s *SQLiteStore) GetMedianIncome(ctx context.Context, year, householdSize int) (*models.MedianIncome, error) {
	e := &models.MedianIncome{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, year, household_size, amount, created_at
		 FROM standard_median_income WHERE year = ? AND household_size = ?`,
		year, householdSize,
	).Scan(&e.ID, &e.Year, &e.HouseholdSize, &e.Amount, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("median income %d/%d: %w", year, householdSize, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get median income: %w", err)
	}
	return e, nil
}

// UpsertMedianIncome inserts or updates the amounts for a year in one
// transaction.
func (s *SQLiteStore) UpsertMedianIncome(ctx context.Context, year int, items []models.MedianIncomeItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, item := range items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO standard_median_income (year, household_size, amount, created_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(year, household_size) DO UPDATE SET amount = excluded.amount`,
			year, item.HouseholdSize, item.Amount, now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert median income: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteMedianIncome removes one entry by ID.
func (s *SQLiteStore) DeleteMedianIncome(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM standard_median_income WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete median income: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("median income %d: %w", id, storage.ErrNotFound)
	}
	return nil
}
