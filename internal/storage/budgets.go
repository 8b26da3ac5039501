package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bilancio/internal/core"
)

// GetBudget returns the user's budget row for a month. A missing row is
// ErrNotFound, which the distribution job treats as "start from zero".
func (r *SQLiteRepository) GetBudget(ctx context.Context, userID int64, month core.Month) (core.Budget, error) {
	var (
		b      core.Budget
		amount int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, amount FROM budgets WHERE user_id = ? AND month = ?`,
		userID, month.String()).
		Scan(&b.ID, &b.UserID, &amount)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("get budget %d/%s: %w", userID, month, ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %d/%s: %w", userID, month, err)
	}
	b.Month = month
	b.Amount = core.Money{Cents: amount}
	return b, nil
}

func (r *SQLiteRepository) GetBudgetByID(ctx context.Context, id int64) (core.Budget, error) {
	var (
		b        core.Budget
		monthStr string
		amount   int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, month, amount FROM budgets WHERE id = ?`, id).
		Scan(&b.ID, &b.UserID, &monthStr, &amount)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("get budget %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %d: %w", id, err)
	}
	month, err := core.ParseMonth(monthStr)
	if err != nil {
		return core.Budget{}, fmt.Errorf("parse budget month %q: %w", monthStr, err)
	}
	b.Month = month
	b.Amount = core.Money{Cents: amount}
	return b, nil
}

// AddToBudget accumulates cents onto the (user, month) budget, creating
// the row when absent. The amount is never replaced, only added to.
func (r *SQLiteRepository) AddToBudget(ctx context.Context, userID int64, month core.Month, cents int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (user_id, month, amount) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, month) DO UPDATE SET amount = amount + excluded.amount`,
		userID, month.String(), cents)
	if err != nil {
		return fmt.Errorf("add to budget %d/%s: %w", userID, month, err)
	}
	return nil
}

// SetBudget replaces the budget amount for (user, month); used by the
// budget CRUD, not by the distribution job.
func (r *SQLiteRepository) SetBudget(ctx context.Context, userID int64, month core.Month, cents int64) (int64, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (user_id, month, amount) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, month) DO UPDATE SET amount = excluded.amount`,
		userID, month.String(), cents)
	if err != nil {
		return 0, fmt.Errorf("set budget %d/%s: %w", userID, month, err)
	}
	b, err := r.GetBudget(ctx, userID, month)
	if err != nil {
		return 0, err
	}
	return b.ID, nil
}

func (r *SQLiteRepository) ListBudgetsByUser(ctx context.Context, userID int64) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, month, amount FROM budgets WHERE user_id = ? ORDER BY month DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var (
			b        core.Budget
			monthStr string
			amount   int64
		)
		if err := rows.Scan(&b.ID, &b.UserID, &monthStr, &amount); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		month, err := core.ParseMonth(monthStr)
		if err != nil {
			return nil, fmt.Errorf("parse budget month %q: %w", monthStr, err)
		}
		b.Month = month
		b.Amount = core.Money{Cents: amount}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return budgets, nil
}

// ReplaceBudgetCategories swaps the per-category split of a budget in one
// transaction.
func (r *SQLiteRepository) ReplaceBudgetCategories(ctx context.Context, budgetID int64, split []core.BudgetCategory) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace split: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM budget_categories WHERE budget_id = ?`, budgetID); err != nil {
		return fmt.Errorf("clear budget split: %w", err)
	}
	for _, bc := range split {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO budget_categories (budget_id, category_id, amount) VALUES (?, ?, ?)`,
			budgetID, bc.CategoryID, bc.Amount.Cents); err != nil {
			return fmt.Errorf("insert budget split: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace split: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListBudgetCategories(ctx context.Context, budgetID int64) ([]core.BudgetCategory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, budget_id, category_id, amount FROM budget_categories WHERE budget_id = ? ORDER BY id`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list budget split: %w", err)
	}
	defer rows.Close()

	var split []core.BudgetCategory
	for rows.Next() {
		var (
			bc     core.BudgetCategory
			amount int64
		)
		if err := rows.Scan(&bc.ID, &bc.BudgetID, &bc.CategoryID, &amount); err != nil {
			return nil, fmt.Errorf("scan budget split: %w", err)
		}
		bc.Amount = core.Money{Cents: amount}
		split = append(split, bc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budget split: %w", err)
	}
	return split, nil
}

// GetGroupBudget mirrors GetBudget for a group.
func (r *SQLiteRepository) GetGroupBudget(ctx context.Context, groupID int64, month core.Month) (core.GroupBudget, error) {
	var (
		gb     core.GroupBudget
		amount int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, group_id, amount FROM group_budgets WHERE group_id = ? AND month = ?`,
		groupID, month.String()).
		Scan(&gb.ID, &gb.GroupID, &amount)
	if errors.Is(err, sql.ErrNoRows) {
		return core.GroupBudget{}, fmt.Errorf("get group budget %d/%s: %w", groupID, month, ErrNotFound)
	}
	if err != nil {
		return core.GroupBudget{}, fmt.Errorf("get group budget %d/%s: %w", groupID, month, err)
	}
	gb.Month = month
	gb.Amount = core.Money{Cents: amount}
	return gb, nil
}

// AddToGroupBudget accumulates cents onto the (group, month) budget,
// creating the row when absent.
func (r *SQLiteRepository) AddToGroupBudget(ctx context.Context, groupID int64, month core.Month, cents int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO group_budgets (group_id, month, amount) VALUES (?, ?, ?)
		 ON CONFLICT (group_id, month) DO UPDATE SET amount = amount + excluded.amount`,
		groupID, month.String(), cents)
	if err != nil {
		return fmt.Errorf("add to group budget %d/%s: %w", groupID, month, err)
	}
	return nil
}
