package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/storage"
)

func newTestStore(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func createUser(t *testing.T, repo *storage.SQLiteRepository, username string) int64 {
	t.Helper()
	id, err := repo.CreateUser(context.Background(), username, "hash", username)
	if err != nil {
		t.Fatalf("CreateUser(%q) error = %v", username, err)
	}
	return id
}

func createSalary(t *testing.T, repo *storage.SQLiteRepository, userID int64, cents int64, payday int) int64 {
	t.Helper()
	id, err := repo.CreateSalary(context.Background(), core.SalaryRule{
		UserID: userID,
		Amount: core.Money{Cents: cents},
		Payday: payday,
	})
	if err != nil {
		t.Fatalf("CreateSalary() error = %v", err)
	}
	return id
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEventMessage
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, msg *amqp.LedgerEventMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, msg)
	return nil
}

// failingGroupStore wraps a Store and fails group budget updates for one
// group id.
type failingGroupStore struct {
	Store
	failGroupID int64
}

func (s *failingGroupStore) AddToGroupBudget(ctx context.Context, groupID int64, month core.Month, cents int64) error {
	if groupID == s.failGroupID {
		return errors.New("simulated group budget failure")
	}
	return s.Store.AddToGroupBudget(ctx, groupID, month, cents)
}

func TestRunDisbursesDueSalary(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	pub := &recordingPublisher{}

	userID := createUser(t, repo, "alice")
	salaryID := createSalary(t, repo, userID, 300000, 25)

	d := NewDistributor(repo, pub, 4, nil)
	target := time.Date(2024, 6, 25, 0, 0, 0, 0, time.UTC)

	result, err := d.Run(ctx, target, false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Processed != 1 || result.Failed != 0 || result.Skipped != 0 {
		t.Fatalf("result = %+v, want 1 processed", result)
	}
	if result.Outcomes[0].SalaryID != salaryID || result.Outcomes[0].Status != StatusSuccess {
		t.Errorf("outcome = %+v", result.Outcomes[0])
	}

	// Personal budget topped up for the run's month.
	budget, err := repo.GetBudget(ctx, userID, core.Month{Year: 2024, Month: 6})
	if err != nil {
		t.Fatalf("GetBudget() error = %v", err)
	}
	if budget.Amount.Cents != 300000 {
		t.Errorf("budget = %d, want 300000", budget.Amount.Cents)
	}

	// Income transaction booked under the fixed salary category.
	txs, err := repo.ListTransactionsByMonth(ctx, userID, core.Month{Year: 2024, Month: 6})
	if err != nil {
		t.Fatalf("ListTransactionsByMonth() error = %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("transactions = %d, want 1", len(txs))
	}
	tx := txs[0]
	if tx.Type != core.Income || tx.Amount.Cents != 300000 || tx.Description != core.SalaryDescription {
		t.Errorf("transaction = %+v", tx)
	}
	if tx.GroupID != nil {
		t.Errorf("transaction GroupID = %v, want nil", tx.GroupID)
	}
	if tx.Date.ISO() != "2024-06-25" {
		t.Errorf("transaction date = %s, want 2024-06-25", tx.Date.ISO())
	}
	cat, err := repo.GetCategory(ctx, tx.CategoryID)
	if err != nil {
		t.Fatalf("GetCategory() error = %v", err)
	}
	if cat.Name != core.SalaryCategory || cat.Type != core.Income {
		t.Errorf("category = %+v", cat)
	}

	// Disbursement recorded.
	exists, err := repo.SalaryAdditionExists(ctx, userID, core.NewDate(2024, 6, 25))
	if err != nil || !exists {
		t.Errorf("SalaryAdditionExists() = %v, %v, want true", exists, err)
	}

	// Event published best effort.
	if len(pub.events) != 1 || pub.events[0].Event != amqp.EventSalaryDisbursed {
		t.Errorf("events = %+v", pub.events)
	}

	// last_paid untouched without markPaid.
	rule, err := repo.GetSalary(ctx, salaryID)
	if err != nil {
		t.Fatalf("GetSalary() error = %v", err)
	}
	if rule.LastPaid != nil {
		t.Errorf("LastPaid = %v, want nil", rule.LastPaid)
	}
}

func TestRunNoRulesDue(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	userID := createUser(t, repo, "alice")
	createSalary(t, repo, userID, 300000, 25)

	d := NewDistributor(repo, nil, 4, nil)
	result, err := d.Run(ctx, time.Date(2024, 6, 26, 0, 0, 0, 0, time.UTC), false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Outcomes) != 0 || result.Processed != 0 {
		t.Fatalf("result = %+v, want no outcomes", result)
	}

	if _, err := repo.GetBudget(ctx, userID, core.Month{Year: 2024, Month: 6}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetBudget() error = %v, want ErrNotFound", err)
	}
	txs, err := repo.ListTransactionsByMonth(ctx, userID, core.Month{Year: 2024, Month: 6})
	if err != nil {
		t.Fatalf("ListTransactionsByMonth() error = %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("transactions = %d, want 0", len(txs))
	}
}

func TestRunGroupFailureIsIsolated(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	userID := createUser(t, repo, "alice")
	createSalary(t, repo, userID, 300000, 25)

	g1, err := repo.CreateGroup(ctx, "gruppo uno", userID)
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	g2, err := repo.CreateGroup(ctx, "gruppo due", userID)
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}

	store := &failingGroupStore{Store: repo, failGroupID: g2}
	d := NewDistributor(store, nil, 4, nil)

	result, err := d.Run(ctx, time.Date(2024, 6, 25, 0, 0, 0, 0, time.UTC), false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Processed != 1 {
		t.Fatalf("result = %+v, want 1 processed", result)
	}

	outcome := result.Outcomes[0]
	if outcome.Status != StatusSuccess {
		t.Errorf("status = %q, want success despite group failure", outcome.Status)
	}
	if len(outcome.GroupErrors) != 1 || outcome.GroupErrors[0].GroupID != g2 {
		t.Fatalf("group errors = %+v, want one for group %d", outcome.GroupErrors, g2)
	}

	month := core.Month{Year: 2024, Month: 6}

	// The healthy group got its share.
	gb, err := repo.GetGroupBudget(ctx, g1, month)
	if err != nil {
		t.Fatalf("GetGroupBudget(g1) error = %v", err)
	}
	if gb.Amount.Cents != 300000 {
		t.Errorf("g1 budget = %d, want 300000", gb.Amount.Cents)
	}

	// The failing group was left untouched.
	if _, err := repo.GetGroupBudget(ctx, g2, month); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetGroupBudget(g2) error = %v, want ErrNotFound", err)
	}

	// Personal side still completed.
	budget, err := repo.GetBudget(ctx, userID, month)
	if err != nil {
		t.Fatalf("GetBudget() error = %v", err)
	}
	if budget.Amount.Cents != 300000 {
		t.Errorf("personal budget = %d, want 300000", budget.Amount.Cents)
	}
	txs, err := repo.ListTransactionsByMonth(ctx, userID, month)
	if err != nil || len(txs) != 1 {
		t.Errorf("transactions = %v, %v, want 1", txs, err)
	}
}

func TestRunIsIdempotentPerDate(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	userID := createUser(t, repo, "alice")
	createSalary(t, repo, userID, 300000, 25)

	d := NewDistributor(repo, nil, 4, nil)
	target := time.Date(2024, 6, 25, 0, 0, 0, 0, time.UTC)

	if _, err := d.Run(ctx, target, false); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	result, err := d.Run(ctx, target, false)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if result.Skipped != 1 || result.Processed != 0 {
		t.Fatalf("second run = %+v, want 1 skipped", result)
	}

	// No double top-up, no duplicate transaction.
	budget, err := repo.GetBudget(ctx, userID, core.Month{Year: 2024, Month: 6})
	if err != nil {
		t.Fatalf("GetBudget() error = %v", err)
	}
	if budget.Amount.Cents != 300000 {
		t.Errorf("budget after rerun = %d, want 300000", budget.Amount.Cents)
	}
	txs, err := repo.ListTransactionsByMonth(ctx, userID, core.Month{Year: 2024, Month: 6})
	if err != nil || len(txs) != 1 {
		t.Errorf("transactions = %v, %v, want 1", txs, err)
	}
}

func TestRunMarkPaidSetsLastPaid(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	userID := createUser(t, repo, "alice")
	salaryID := createSalary(t, repo, userID, 300000, 25)

	d := NewDistributor(repo, nil, 4, nil)
	if _, err := d.Run(ctx, time.Date(2024, 6, 25, 0, 0, 0, 0, time.UTC), true); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	rule, err := repo.GetSalary(ctx, salaryID)
	if err != nil {
		t.Fatalf("GetSalary() error = %v", err)
	}
	if rule.LastPaid == nil || rule.LastPaid.Format("2006-01-02") != "2024-06-25" {
		t.Errorf("LastPaid = %v, want 2024-06-25", rule.LastPaid)
	}
}

func TestRunProcessesAllDueRules(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, repo, "alice")
	bob := createUser(t, repo, "bob")
	carol := createUser(t, repo, "carol")
	createSalary(t, repo, alice, 100000, 25)
	createSalary(t, repo, bob, 200000, 25)
	createSalary(t, repo, carol, 300000, 10) // not due

	d := NewDistributor(repo, nil, 2, nil)
	result, err := d.Run(ctx, time.Date(2024, 6, 25, 0, 0, 0, 0, time.UTC), false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Processed != 2 || len(result.Outcomes) != 2 {
		t.Fatalf("result = %+v, want exactly the two due rules", result)
	}

	seen := map[int64]bool{}
	for _, o := range result.Outcomes {
		seen[o.UserID] = true
	}
	if !seen[alice] || !seen[bob] || seen[carol] {
		t.Errorf("processed users = %v", seen)
	}
}
