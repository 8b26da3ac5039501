package services

import (
	"context"
	"errors"
	"fmt"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/storage"
)

// LedgerService orchestrates transaction writes across SQLite and AMQP.
// Publishing is best effort: the local write is the source of truth.
type LedgerService struct {
	storage   *storage.SQLiteRepository
	publisher Publisher
	logger    *log.Logger
}

func NewLedgerService(repo *storage.SQLiteRepository, publisher Publisher, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LedgerService{
		storage:   repo,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentLedger),
	}
}

// CreateTransaction validates and saves a transaction, then notifies the
// export queue.
func (s *LedgerService) CreateTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, err
	}
	if tx.GroupID != nil {
		ok, err := s.storage.IsGroupMember(ctx, *tx.GroupID, tx.UserID)
		if err != nil {
			return 0, fmt.Errorf("check group membership: %w", err)
		}
		if !ok {
			return 0, fmt.Errorf("user %d is not a member of group %d", tx.UserID, *tx.GroupID)
		}
	}

	id, err := s.storage.CreateTransaction(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("save transaction: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishLedgerEvent(ctx, amqp.NewTransactionRecordedMessage(id, tx.UserID)); err != nil {
			s.logger.ErrorContext(ctx, "publish transaction event failed",
				"transaction_id", id, log.FieldError, err)
		}
	}

	return id, nil
}

func (s *LedgerService) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	return s.storage.UpdateTransaction(ctx, tx)
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id, userID int64) error {
	return s.storage.DeleteTransaction(ctx, id, userID)
}

// MonthSummary builds the monthly income/expense/budget report for a user.
func (s *LedgerService) MonthSummary(ctx context.Context, userID int64, month core.Month) (core.MonthSummary, error) {
	var budget int64
	if b, err := s.storage.GetBudget(ctx, userID, month); err == nil {
		budget = b.Amount.Cents
	} else if !errors.Is(err, storage.ErrNotFound) {
		return core.MonthSummary{}, fmt.Errorf("get budget: %w", err)
	}

	txs, err := s.storage.ListTransactionsByMonth(ctx, userID, month)
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("list transactions: %w", err)
	}

	names, err := s.storage.CategoryNames(ctx)
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("category names: %w", err)
	}

	return core.Summarize(month, core.Money{Cents: budget}, txs, names), nil
}

// Close closes both the storage and the publisher connection.
func (s *LedgerService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if closer, ok := s.publisher.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}
	return nil
}
