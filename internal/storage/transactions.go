package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bilancio/internal/core"
)

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, group_id, type, amount, category_id, date, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.UserID, tx.GroupID, string(tx.Type), tx.Amount.Cents, tx.CategoryID, tx.Date.ISO(), tx.Description)
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id, userID int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, group_id, type, amount, category_id, date, description
		 FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return tx, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET group_id = ?, type = ?, amount = ?, category_id = ?, date = ?, description = ?
		 WHERE id = ? AND user_id = ?`,
		tx.GroupID, string(tx.Type), tx.Amount.Cents, tx.CategoryID, tx.Date.ISO(), tx.Description,
		tx.ID, tx.UserID)
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", tx.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update transaction %d: %w", tx.ID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("delete transaction %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListTransactionsByMonth returns the user's transactions inside the month
// window, newest first.
func (r *SQLiteRepository) ListTransactionsByMonth(ctx context.Context, userID int64, month core.Month) ([]core.Transaction, error) {
	first, last := month.Window()
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, group_id, type, amount, category_id, date, description
		 FROM transactions
		 WHERE user_id = ? AND date BETWEEN ? AND ?
		 ORDER BY date DESC, id DESC`,
		userID, first.ISO(), last.ISO())
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (r *SQLiteRepository) ListTransactionsByGroup(ctx context.Context, groupID int64, month core.Month) ([]core.Transaction, error) {
	first, last := month.Window()
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, group_id, type, amount, category_id, date, description
		 FROM transactions
		 WHERE group_id = ? AND date BETWEEN ? AND ?
		 ORDER BY date DESC, id DESC`,
		groupID, first.ISO(), last.ISO())
	if err != nil {
		return nil, fmt.Errorf("list group transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx      core.Transaction
		groupID sql.NullInt64
		txType  string
		amount  int64
		dateStr string
	)
	if err := row.Scan(&tx.ID, &tx.UserID, &groupID, &txType, &amount, &tx.CategoryID, &dateStr, &tx.Description); err != nil {
		return core.Transaction{}, err
	}
	if groupID.Valid {
		tx.GroupID = &groupID.Int64
	}
	tx.Type = core.TransactionType(txType)
	tx.Amount = core.Money{Cents: amount}
	date, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction date %q: %w", dateStr, err)
	}
	tx.Date = date
	return tx, nil
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// CreateSalaryAddition records a disbursed salary. The (user, date) unique
// constraint makes a repeat insert fail, which callers should avoid by
// checking SalaryAdditionExists first.
func (r *SQLiteRepository) CreateSalaryAddition(ctx context.Context, userID int64, amount core.Money, date core.Date) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO salary_additions (user_id, amount, date) VALUES (?, ?, ?)`,
		userID, amount.Cents, date.ISO())
	if err != nil {
		return 0, fmt.Errorf("create salary addition: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("salary addition id: %w", err)
	}
	return id, nil
}

// SalaryAdditionExists reports whether a salary was already disbursed to
// the user on the given date.
func (r *SQLiteRepository) SalaryAdditionExists(ctx context.Context, userID int64, date core.Date) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM salary_additions WHERE user_id = ? AND date = ?`,
		userID, date.ISO()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check salary addition: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) ListSalaryAdditionsByUser(ctx context.Context, userID int64) ([]core.SalaryAddition, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount, date FROM salary_additions WHERE user_id = ? ORDER BY date DESC, id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list salary additions: %w", err)
	}
	defer rows.Close()

	var adds []core.SalaryAddition
	for rows.Next() {
		var (
			a       core.SalaryAddition
			amount  int64
			dateStr string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &amount, &dateStr); err != nil {
			return nil, fmt.Errorf("scan salary addition: %w", err)
		}
		a.Amount = core.Money{Cents: amount}
		date, err := core.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("parse salary addition date %q: %w", dateStr, err)
		}
		a.Date = date
		adds = append(adds, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate salary additions: %w", err)
	}
	return adds, nil
}
