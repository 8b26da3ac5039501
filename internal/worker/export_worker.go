package worker

import (
	"context"
	"fmt"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/sheets"
)

// ExportStore is the read surface the export worker needs; satisfied by
// *storage.SQLiteRepository.
type ExportStore interface {
	GetTransaction(ctx context.Context, id, userID int64) (core.Transaction, error)
	GetUser(ctx context.Context, id int64) (core.User, error)
	GetCategory(ctx context.Context, id int64) (core.Category, error)
}

// ExportWorker mirrors recorded ledger rows to the external statement. It
// consumes ledger events and fetches the full rows from the database, so
// the statement is eventually consistent with local state.
type ExportWorker struct {
	store    ExportStore
	appender sheets.StatementAppender
	logger   *log.Logger
}

func NewExportWorker(store ExportStore, appender sheets.StatementAppender, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ExportWorker{
		store:    store,
		appender: appender,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleLedgerEvent exports one recorded transaction. Returning an error
// puts the message back on the queue.
func (w *ExportWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	tx, err := w.store.GetTransaction(ctx, msg.TransactionID, msg.UserID)
	if err != nil {
		return fmt.Errorf("get transaction %d: %w", msg.TransactionID, err)
	}

	user, err := w.store.GetUser(ctx, tx.UserID)
	if err != nil {
		return fmt.Errorf("get user %d: %w", tx.UserID, err)
	}

	category, err := w.store.GetCategory(ctx, tx.CategoryID)
	if err != nil {
		return fmt.Errorf("get category %d: %w", tx.CategoryID, err)
	}

	entry := sheets.StatementEntry{
		Date:        tx.Date.ISO(),
		Username:    user.Username,
		Type:        string(tx.Type),
		Category:    category.Name,
		Amount:      tx.Amount.Units(),
		Description: tx.Description,
		Event:       msg.Event,
	}

	ref, err := w.appender.Append(ctx, entry)
	if err != nil {
		return fmt.Errorf("append statement row: %w", err)
	}

	w.logger.InfoContext(ctx, "exported transaction",
		log.FieldOperation, log.OpExport,
		"transaction_id", tx.ID,
		log.FieldUserID, tx.UserID,
		"row_ref", ref)

	return nil
}
