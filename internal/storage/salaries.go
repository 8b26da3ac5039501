package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bilancio/internal/core"
)

func (r *SQLiteRepository) CreateSalary(ctx context.Context, rule core.SalaryRule) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO salaries (user_id, amount, payday, group_id) VALUES (?, ?, ?, ?)`,
		rule.UserID, rule.Amount.Cents, rule.Payday, rule.GroupID)
	if err != nil {
		return 0, fmt.Errorf("create salary: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create salary id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetSalary(ctx context.Context, id int64) (core.SalaryRule, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, amount, payday, group_id, last_paid FROM salaries WHERE id = ?`, id)
	rule, err := scanSalary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SalaryRule{}, fmt.Errorf("get salary %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.SalaryRule{}, fmt.Errorf("get salary %d: %w", id, err)
	}
	return rule, nil
}

func (r *SQLiteRepository) UpdateSalary(ctx context.Context, rule core.SalaryRule) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE salaries SET amount = ?, payday = ?, group_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`,
		rule.Amount.Cents, rule.Payday, rule.GroupID, rule.ID, rule.UserID)
	if err != nil {
		return fmt.Errorf("update salary %d: %w", rule.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update salary %d: %w", rule.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update salary %d: %w", rule.ID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteSalary(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM salaries WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete salary %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete salary %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete salary %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListSalariesByUser(ctx context.Context, userID int64) ([]core.SalaryRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount, payday, group_id, last_paid FROM salaries
		 WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list salaries: %w", err)
	}
	defer rows.Close()
	return collectSalaries(rows)
}

// ListSalariesDue returns every rule due on the given date: payday equal
// to its day-of-month, plus — when the date is the last day of its month —
// rules whose payday falls past the end of the month (payday 31 pays on
// Feb 28/29).
func (r *SQLiteRepository) ListSalariesDue(ctx context.Context, date time.Time) ([]core.SalaryRule, error) {
	day := date.Day()
	lastDay := core.MonthOf(date).LastDay()

	query := `SELECT id, user_id, amount, payday, group_id, last_paid FROM salaries WHERE payday = ?`
	args := []any{day}
	if day == lastDay {
		query = `SELECT id, user_id, amount, payday, group_id, last_paid FROM salaries WHERE payday >= ?`
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list due salaries: %w", err)
	}
	defer rows.Close()
	return collectSalaries(rows)
}

// SetSalaryLastPaid marks a rule as disbursed on the given date (manual
// run variant).
func (r *SQLiteRepository) SetSalaryLastPaid(ctx context.Context, id int64, date core.Date) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE salaries SET last_paid = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		date.ISO(), id)
	if err != nil {
		return fmt.Errorf("set salary %d last_paid: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSalary(row rowScanner) (core.SalaryRule, error) {
	var (
		rule     core.SalaryRule
		amount   int64
		lastPaid sql.NullString
	)
	if err := row.Scan(&rule.ID, &rule.UserID, &amount, &rule.Payday, &rule.GroupID, &lastPaid); err != nil {
		return core.SalaryRule{}, err
	}
	rule.Amount = core.Money{Cents: amount}
	if lastPaid.Valid {
		d, err := core.ParseDate(lastPaid.String)
		if err != nil {
			return core.SalaryRule{}, fmt.Errorf("parse last_paid %q: %w", lastPaid.String, err)
		}
		t := d.Time
		rule.LastPaid = &t
	}
	return rule, nil
}

func collectSalaries(rows *sql.Rows) ([]core.SalaryRule, error) {
	var rules []core.SalaryRule
	for rows.Next() {
		rule, err := scanSalary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan salary: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate salaries: %w", err)
	}
	return rules, nil
}
