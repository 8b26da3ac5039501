package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/storage"
)

// Outcome status for a single salary rule.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Store is the storage surface the distributor needs. It is satisfied by
// *storage.SQLiteRepository.
type Store interface {
	ListSalariesDue(ctx context.Context, date time.Time) ([]core.SalaryRule, error)
	SalaryAdditionExists(ctx context.Context, userID int64, date core.Date) (bool, error)
	GetBudget(ctx context.Context, userID int64, month core.Month) (core.Budget, error)
	AddToBudget(ctx context.Context, userID int64, month core.Month, cents int64) error
	ListUserMemberships(ctx context.Context, userID int64) ([]int64, error)
	AddToGroupBudget(ctx context.Context, groupID int64, month core.Month, cents int64) error
	GetCategoryByName(ctx context.Context, name string, typ core.TransactionType) (core.Category, error)
	CreateTransaction(ctx context.Context, tx core.Transaction) (int64, error)
	CreateSalaryAddition(ctx context.Context, userID int64, amount core.Money, date core.Date) (int64, error)
	SetSalaryLastPaid(ctx context.Context, id int64, date core.Date) error
}

// Publisher pushes ledger events to the export queue. Nil-safe: a missing
// publisher just skips the event.
type Publisher interface {
	PublishLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error
}

// GroupError is one failed group budget update inside an otherwise
// processed rule.
type GroupError struct {
	GroupID int64  `json:"groupId"`
	Error   string `json:"error"`
}

// RuleOutcome is the result of processing one salary rule. A failed group
// update does not fail the rule.
type RuleOutcome struct {
	SalaryID    int64        `json:"salaryId"`
	UserID      int64        `json:"userId"`
	AmountCents int64        `json:"amountCents"`
	Status      string       `json:"status"`
	FailedStep  string       `json:"failedStep,omitempty"`
	Error       string       `json:"error,omitempty"`
	GroupErrors []GroupError `json:"groupErrors,omitempty"`
}

// RunResult is the full report of one distribution run.
type RunResult struct {
	Date      core.Date
	Processed int
	Skipped   int
	Failed    int
	Outcomes  []RuleOutcome
}

// Distributor runs the salary distribution job: it finds every salary rule
// due on a date and for each one tops up the monthly budgets, books an
// income transaction and records the disbursement.
type Distributor struct {
	store     Store
	publisher Publisher
	workers   int
	logger    *log.Logger
}

func NewDistributor(store Store, publisher Publisher, workers int, logger *log.Logger) *Distributor {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Distributor{
		store:     store,
		publisher: publisher,
		workers:   workers,
		logger:    logger.WithComponent(log.ComponentDistributor),
	}
}

// Run processes every salary rule due on target. Rules are handled
// concurrently and in isolation: one rule failing, or one of its group
// updates failing, never stops the others. The returned error is non-nil
// only when the due rules could not be looked up at all.
//
// When markPaid is set each disbursed rule's last_paid is updated; manual
// and dry-run style triggers use this, the scheduled worker relies on the
// per-date disbursement records instead.
func (d *Distributor) Run(ctx context.Context, target time.Time, markPaid bool) (*RunResult, error) {
	date := core.Date{Time: target}

	rules, err := d.store.ListSalariesDue(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("list due salaries: %w", err)
	}

	d.logger.InfoContext(ctx, "distribution run started",
		log.FieldOperation, log.OpDistribute,
		log.FieldRunDate, date.ISO(),
		"due_rules", len(rules))

	outcomes := make([]RuleOutcome, len(rules))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for i, rule := range rules {
		g.Go(func() error {
			outcomes[i] = d.processRule(gctx, rule, date, markPaid)
			return nil
		})
	}
	g.Wait()

	result := &RunResult{Date: date, Outcomes: outcomes}
	for _, o := range outcomes {
		switch o.Status {
		case StatusSuccess:
			result.Processed++
		case StatusSkipped:
			result.Skipped++
		case StatusFailed:
			result.Failed++
		}
	}

	d.logger.InfoContext(ctx, "distribution run complete",
		log.FieldOperation, log.OpDistribute,
		log.FieldRunDate, date.ISO(),
		"processed", result.Processed,
		"skipped", result.Skipped,
		"failed", result.Failed)

	return result, nil
}

func (d *Distributor) processRule(ctx context.Context, rule core.SalaryRule, date core.Date, markPaid bool) RuleOutcome {
	outcome := RuleOutcome{
		SalaryID:    rule.ID,
		UserID:      rule.UserID,
		AmountCents: rule.Amount.Cents,
		Status:      StatusSuccess,
	}
	fail := func(step string, err error) RuleOutcome {
		outcome.Status = StatusFailed
		outcome.FailedStep = step
		outcome.Error = err.Error()
		d.logger.ErrorContext(ctx, "salary rule failed",
			log.FieldSalaryID, rule.ID,
			log.FieldUserID, rule.UserID,
			"step", step,
			log.FieldError, err)
		return outcome
	}

	// One disbursement per user per date.
	exists, err := d.store.SalaryAdditionExists(ctx, rule.UserID, date)
	if err != nil {
		return fail("idempotency_check", err)
	}
	if exists {
		outcome.Status = StatusSkipped
		d.logger.InfoContext(ctx, "salary already disbursed",
			log.FieldSalaryID, rule.ID,
			log.FieldUserID, rule.UserID,
			log.FieldRunDate, date.ISO())
		return outcome
	}

	month := core.MonthOf(date.Time)

	// A missing budget row means the month starts from zero.
	var before int64
	if budget, err := d.store.GetBudget(ctx, rule.UserID, month); err == nil {
		before = budget.Amount.Cents
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fail("budget_fetch", err)
	}

	if err := d.store.AddToBudget(ctx, rule.UserID, month, rule.Amount.Cents); err != nil {
		return fail("budget_update", err)
	}

	// Group budget updates are isolated per group; failures are reported
	// but never undo the personal budget or stop the rule.
	groupIDs, err := d.store.ListUserMemberships(ctx, rule.UserID)
	if err != nil {
		outcome.GroupErrors = append(outcome.GroupErrors, GroupError{Error: fmt.Sprintf("list memberships: %v", err)})
	}
	for _, groupID := range groupIDs {
		if err := d.store.AddToGroupBudget(ctx, groupID, month, rule.Amount.Cents); err != nil {
			outcome.GroupErrors = append(outcome.GroupErrors, GroupError{GroupID: groupID, Error: err.Error()})
			d.logger.ErrorContext(ctx, "group budget update failed",
				log.FieldSalaryID, rule.ID,
				log.FieldGroupID, groupID,
				log.FieldError, err)
		}
	}

	category, err := d.store.GetCategoryByName(ctx, core.SalaryCategory, core.Income)
	if err != nil {
		return fail("category_lookup", err)
	}

	// The income booking is personal even for group-linked rules.
	txID, err := d.store.CreateTransaction(ctx, core.Transaction{
		UserID:      rule.UserID,
		Type:        core.Income,
		Amount:      rule.Amount,
		CategoryID:  category.ID,
		Date:        date,
		Description: core.SalaryDescription,
	})
	if err != nil {
		return fail("transaction", err)
	}

	if _, err := d.store.CreateSalaryAddition(ctx, rule.UserID, rule.Amount, date); err != nil {
		return fail("disbursement_record", err)
	}

	if markPaid {
		if err := d.store.SetSalaryLastPaid(ctx, rule.ID, date); err != nil {
			// The disbursement itself went through.
			d.logger.ErrorContext(ctx, "update last_paid failed",
				log.FieldSalaryID, rule.ID,
				log.FieldError, err)
		}
	}

	if d.publisher != nil {
		if err := d.publisher.PublishLedgerEvent(ctx, amqp.NewSalaryDisbursedMessage(txID, rule.UserID)); err != nil {
			d.logger.ErrorContext(ctx, "publish salary event failed",
				log.FieldSalaryID, rule.ID,
				log.FieldError, err)
		}
	}

	d.logger.InfoContext(ctx, "salary disbursed",
		log.FieldSalaryID, rule.ID,
		log.FieldUserID, rule.UserID,
		log.FieldAmountCents, rule.Amount.Cents,
		log.FieldMonth, month.String(),
		"previous_budget_cents", before,
		"groups", len(groupIDs))

	return outcome
}
