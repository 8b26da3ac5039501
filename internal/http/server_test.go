package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"bilancio/internal/auth"
	"bilancio/internal/config"
	"bilancio/internal/services"
	"bilancio/internal/storage"
)

const testJWTSecret = "unit-test-secret-0123456789"

func newTestServer(t *testing.T) (*Server, *storage.SQLiteRepository) {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	cfg := &config.Config{
		Port:       "0",
		JWTSecret:  testJWTSecret,
		SessionTTL: time.Hour,
	}
	ledger := services.NewLedgerService(repo, nil, nil)
	distributor := services.NewDistributor(repo, nil, 2, nil)
	sessions := auth.NewSessionProvider(repo, cfg.SessionTTL)

	srv := NewServer(cfg, repo, ledger, distributor, sessions, nil)
	t.Cleanup(func() {
		srv.rateLimiter.stop()
		srv.cacheManager.Stop()
	})
	return srv, repo
}

func doRequest(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

// registerAndLogin creates a user and returns a valid bearer token.
func registerAndLogin(t *testing.T, srv *Server, username string) string {
	t.Helper()

	rec := doRequest(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username":    username,
		"password":    "hunter2hunter2",
		"displayName": username,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d: %s", username, rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": "hunter2hunter2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d: %s", username, rec.Code, rec.Body.String())
	}
	return decodeBody[loginResponse](t, rec).Token
}

func expenseCategoryID(t *testing.T, srv *Server, token string) int64 {
	t.Helper()
	rec := doRequest(t, srv, http.MethodGet, "/api/categories", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list categories: status %d", rec.Code)
	}
	for _, c := range decodeBody[[]categoryResponse](t, rec) {
		if c.Type == "expense" {
			return c.ID
		}
	}
	t.Fatal("no expense category seeded")
	return 0
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doRequest(t, srv, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d", path, rec.Code)
		}
	}
}

func TestRegisterLoginMe(t *testing.T) {
	srv, _ := newTestServer(t)

	token := registerAndLogin(t, srv, "alice")

	rec := doRequest(t, srv, http.MethodGet, "/api/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: status %d: %s", rec.Code, rec.Body.String())
	}
	me := decodeBody[userResponse](t, rec)
	if me.Username != "alice" {
		t.Errorf("username = %q, want alice", me.Username)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/me", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("me without token: status %d, want 401", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice",
		"password": "wrong-password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("login with wrong password: status %d, want 401", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice",
		"password": "hunter2hunter2",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register: status %d, want 409", rec.Code)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	srv, _ := newTestServer(t)

	token := registerAndLogin(t, srv, "bob")

	rec := doRequest(t, srv, http.MethodPost, "/api/auth/logout", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: status %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/me", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("me after logout: status %d, want 401", rec.Code)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	token := registerAndLogin(t, srv, "carol")
	catID := expenseCategoryID(t, srv, token)

	rec := doRequest(t, srv, http.MethodPost, "/api/transactions", token, map[string]any{
		"type":        "expense",
		"amount":      "40.00",
		"categoryId":  catID,
		"date":        "2024-06-10",
		"description": "weekly shop",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[transactionResponse](t, rec)
	if created.AmountCents != 4000 {
		t.Errorf("amountCents = %d, want 4000", created.AmountCents)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/transactions?year=2024&month=6", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	if got := decodeBody[[]transactionResponse](t, rec); len(got) != 1 {
		t.Fatalf("list returned %d transactions, want 1", len(got))
	}

	rec = doRequest(t, srv, http.MethodPut, fmt.Sprintf("/api/transactions/%d", created.ID), token, map[string]any{
		"type":        "expense",
		"amount":      "55.50",
		"categoryId":  catID,
		"date":        "2024-06-11",
		"description": "weekly shop plus extras",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[transactionResponse](t, rec); got.AmountCents != 5550 {
		t.Errorf("updated amountCents = %d, want 5550", got.AmountCents)
	}

	rec = doRequest(t, srv, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", created.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", created.ID), token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("double delete: status %d, want 404", rec.Code)
	}
}

func TestTransactionValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	token := registerAndLogin(t, srv, "dave")
	catID := expenseCategoryID(t, srv, token)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"bad amount", map[string]any{"type": "expense", "amount": "nope", "categoryId": catID, "date": "2024-06-10"}},
		{"zero amount", map[string]any{"type": "expense", "amount": "0.00", "categoryId": catID, "date": "2024-06-10"}},
		{"bad type", map[string]any{"type": "transfer", "amount": "10.00", "categoryId": catID, "date": "2024-06-10"}},
		{"bad date", map[string]any{"type": "expense", "amount": "10.00", "categoryId": catID, "date": "June 10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodPost, "/api/transactions", token, tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("status %d, want 422: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestMonthSummaryReflectsWrites(t *testing.T) {
	srv, _ := newTestServer(t)

	token := registerAndLogin(t, srv, "erin")
	catID := expenseCategoryID(t, srv, token)

	rec := doRequest(t, srv, http.MethodPost, "/api/budgets", token, map[string]any{
		"year": 2024, "month": 6, "amount": "1000.00",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("set budget: status %d: %s", rec.Code, rec.Body.String())
	}

	// Prime the cache before the write.
	rec = doRequest(t, srv, http.MethodGet, "/api/summary/monthly?year=2024&month=6", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: status %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/transactions", token, map[string]any{
		"type": "expense", "amount": "400.00", "categoryId": catID, "date": "2024-06-15",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction: status %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/summary/monthly?year=2024&month=6", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary after write: status %d", rec.Code)
	}
	sum := decodeBody[summaryResponse](t, rec)
	if sum.Expense != "400.00" {
		t.Errorf("expense = %q, want 400.00", sum.Expense)
	}
	if sum.Remaining != "600.00" {
		t.Errorf("remaining = %q, want 600.00", sum.Remaining)
	}
	if len(sum.ByCategory) != 1 {
		t.Errorf("byCategory has %d buckets, want 1", len(sum.ByCategory))
	}
}

func TestGroupMembershipAndInvitations(t *testing.T) {
	srv, _ := newTestServer(t)

	ownerToken := registerAndLogin(t, srv, "owner")
	memberToken := registerAndLogin(t, srv, "member")
	invitedToken := registerAndLogin(t, srv, "invited")

	rec := doRequest(t, srv, http.MethodPost, "/api/groups", ownerToken, map[string]string{"name": "household"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create group: status %d: %s", rec.Code, rec.Body.String())
	}
	group := decodeBody[groupResponse](t, rec)

	// Non-members cannot see the group.
	rec = doRequest(t, srv, http.MethodGet, fmt.Sprintf("/api/groups/%d", group.ID), memberToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("outsider get group: status %d, want 403", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/me", memberToken, nil)
	memberID := decodeBody[userResponse](t, rec).ID

	rec = doRequest(t, srv, http.MethodPost, fmt.Sprintf("/api/groups/%d/members", group.ID), ownerToken, map[string]any{"userId": memberID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add member: status %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodGet, fmt.Sprintf("/api/groups/%d", group.ID), memberToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("member get group: status %d", rec.Code)
	}
	if detail := decodeBody[groupDetailResponse](t, rec); len(detail.Members) != 2 {
		t.Errorf("group has %d members, want 2", len(detail.Members))
	}

	// Member mutations stay owner-only.
	rec = doRequest(t, srv, http.MethodPost, fmt.Sprintf("/api/groups/%d/members", group.ID), memberToken, map[string]any{"userId": 999})
	if rec.Code != http.StatusForbidden {
		t.Errorf("member adds member: status %d, want 403", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, fmt.Sprintf("/api/groups/%d/budget?year=2024&month=6", group.ID), memberToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("group budget: status %d", rec.Code)
	}
	if gb := decodeBody[groupBudgetResponse](t, rec); gb.Amount != "0.00" {
		t.Errorf("empty group budget = %q, want 0.00", gb.Amount)
	}

	rec = doRequest(t, srv, http.MethodPost, fmt.Sprintf("/api/groups/%d/invitations", group.ID), ownerToken, map[string]string{"email": "invited@example.com"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create invitation: status %d: %s", rec.Code, rec.Body.String())
	}
	inv := decodeBody[invitationResponse](t, rec)

	rec = doRequest(t, srv, http.MethodPost, "/api/invitations/accept", invitedToken, map[string]string{"token": inv.Token})
	if rec.Code != http.StatusOK {
		t.Fatalf("accept invitation: status %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/invitations/accept", invitedToken, map[string]string{"token": inv.Token})
	if rec.Code != http.StatusNotFound {
		t.Errorf("second accept: status %d, want 404", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, fmt.Sprintf("/api/groups/%d", group.ID), invitedToken, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("invited member get group: status %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, fmt.Sprintf("/api/groups/%d/invitations", group.ID), ownerToken, map[string]string{"email": "late@example.com"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create second invitation: status %d", rec.Code)
	}
	second := decodeBody[invitationResponse](t, rec)

	rec = doRequest(t, srv, http.MethodGet, fmt.Sprintf("/api/groups/%d/invitations", group.ID), ownerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list invitations: status %d", rec.Code)
	}
	if invs := decodeBody[[]invitationResponse](t, rec); len(invs) != 2 {
		t.Errorf("listed %d invitations, want 2", len(invs))
	}

	rec = doRequest(t, srv, http.MethodGet, fmt.Sprintf("/api/groups/%d/invitations", group.ID), memberToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("member lists invitations: status %d, want 403", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodDelete, fmt.Sprintf("/api/groups/%d/invitations/%d", group.ID, second.ID), ownerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("revoke invitation: status %d", rec.Code)
	}
	rec = doRequest(t, srv, http.MethodPost, "/api/invitations/accept", memberToken, map[string]string{"token": second.Token})
	if rec.Code != http.StatusNotFound {
		t.Errorf("accept revoked invitation: status %d, want 404", rec.Code)
	}

	// A member may leave but cannot remove the owner.
	rec = doRequest(t, srv, http.MethodDelete, fmt.Sprintf("/api/groups/%d/members/%d", group.ID, group.OwnerID), memberToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("member removes owner: status %d, want 403", rec.Code)
	}
	rec = doRequest(t, srv, http.MethodDelete, fmt.Sprintf("/api/groups/%d/members/%d", group.ID, memberID), memberToken, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("member leaves: status %d", rec.Code)
	}
}

func TestGroupTransactions(t *testing.T) {
	srv, _ := newTestServer(t)

	ownerToken := registerAndLogin(t, srv, "kara")
	memberToken := registerAndLogin(t, srv, "liam")
	catID := expenseCategoryID(t, srv, ownerToken)

	rec := doRequest(t, srv, http.MethodPost, "/api/groups", ownerToken, map[string]string{"name": "flatmates"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create group: status %d", rec.Code)
	}
	group := decodeBody[groupResponse](t, rec)

	rec = doRequest(t, srv, http.MethodGet, "/api/me", memberToken, nil)
	memberID := decodeBody[userResponse](t, rec).ID
	rec = doRequest(t, srv, http.MethodPost, fmt.Sprintf("/api/groups/%d/members", group.ID), ownerToken, map[string]any{"userId": memberID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add member: status %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/transactions", ownerToken, map[string]any{
		"type": "expense", "amount": "60.00", "categoryId": catID, "date": "2024-06-20", "description": "shared groceries", "groupId": group.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create group transaction: status %d: %s", rec.Code, rec.Body.String())
	}

	// Any member sees the shared ledger.
	rec = doRequest(t, srv, http.MethodGet, fmt.Sprintf("/api/groups/%d/transactions?year=2024&month=6", group.ID), memberToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list group transactions: status %d", rec.Code)
	}
	txs := decodeBody[[]transactionResponse](t, rec)
	if len(txs) != 1 || txs[0].AmountCents != 6000 {
		t.Fatalf("group transactions = %+v", txs)
	}

	outsiderToken := registerAndLogin(t, srv, "mona")
	rec = doRequest(t, srv, http.MethodGet, fmt.Sprintf("/api/groups/%d/transactions", group.ID), outsiderToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("outsider lists group transactions: status %d, want 403", rec.Code)
	}

	// Booking against a group the caller is not in is rejected.
	rec = doRequest(t, srv, http.MethodPost, "/api/transactions", outsiderToken, map[string]any{
		"type": "expense", "amount": "10.00", "categoryId": catID, "date": "2024-06-21", "groupId": group.ID,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("outsider group transaction: status %d, want 422", rec.Code)
	}
}

func TestSalaryDistributionEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	token := registerAndLogin(t, srv, "frank")

	rec := doRequest(t, srv, http.MethodPost, "/api/salaries", token, map[string]any{
		"amount": "3000.00",
		"payday": 25,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create salary: status %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/jobs/salary-distribution?date=2024-06-25", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("distribution run: status %d: %s", rec.Code, rec.Body.String())
	}
	run := decodeBody[distributionResponse](t, rec)
	if run.Summary != "1 processed, 0 failed, 0 skipped" {
		t.Errorf("summary = %q", run.Summary)
	}
	if len(run.Details) != 1 || run.Details[0].Status != services.StatusSuccess {
		t.Fatalf("details = %+v", run.Details)
	}

	// A rerun for the same date is a no-op.
	rec = doRequest(t, srv, http.MethodGet, "/api/jobs/salary-distribution?date=2024-06-25", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("rerun: status %d", rec.Code)
	}
	if rerun := decodeBody[distributionResponse](t, rec); rerun.Summary != "0 processed, 0 failed, 1 skipped" {
		t.Errorf("rerun summary = %q", rerun.Summary)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/summary/monthly?year=2024&month=6", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: status %d", rec.Code)
	}
	sum := decodeBody[summaryResponse](t, rec)
	if sum.Income != "3000.00" {
		t.Errorf("income = %q, want 3000.00", sum.Income)
	}
	if sum.Budget != "3000.00" {
		t.Errorf("budget = %q, want 3000.00", sum.Budget)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/jobs/salary-distribution?date=bogus", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad date: status %d, want 400", rec.Code)
	}
}

func TestSalaryDistributionTestEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	token := registerAndLogin(t, srv, "grace")

	rec := doRequest(t, srv, http.MethodPost, "/api/salaries", token, map[string]any{
		"amount": "2500.00",
		"payday": 12,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create salary: status %d", rec.Code)
	}
	ruleID := decodeBody[salaryResponse](t, rec).ID

	rec = doRequest(t, srv, http.MethodGet, "/api/jobs/salary-distribution/test?date=2024-07-12", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("test run: status %d: %s", rec.Code, rec.Body.String())
	}
	out := decodeBody[distributionTestResponse](t, rec)
	if !out.Success {
		t.Error("success = false")
	}
	if out.TestDate != "2024-07-12" {
		t.Errorf("testDate = %q", out.TestDate)
	}
	if len(out.ProcessedSalaries) != 1 || out.ProcessedSalaries[0].SalaryID != ruleID {
		t.Fatalf("processedSalaries = %+v", out.ProcessedSalaries)
	}

	// The test run stamps last_paid on the rule.
	rec = doRequest(t, srv, http.MethodGet, "/api/salaries", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list salaries: status %d", rec.Code)
	}
	rules := decodeBody[[]salaryResponse](t, rec)
	if len(rules) != 1 || rules[0].LastPaid != "2024-07-12" {
		t.Errorf("lastPaid = %+v", rules)
	}
}

func TestExportXLSX(t *testing.T) {
	srv, _ := newTestServer(t)

	token := registerAndLogin(t, srv, "henry")
	catID := expenseCategoryID(t, srv, token)

	rec := doRequest(t, srv, http.MethodPost, "/api/transactions", token, map[string]any{
		"type": "expense", "amount": "12.34", "categoryId": catID, "date": "2024-06-02", "description": "bus ticket",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction: status %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/export/xlsx?year=2024&month=6", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: status %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("content type = %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Error("empty export body")
	}
}

func TestBudgetCategorySplitEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	token := registerAndLogin(t, srv, "iris")
	catID := expenseCategoryID(t, srv, token)

	rec := doRequest(t, srv, http.MethodPost, "/api/budgets", token, map[string]any{
		"year": 2024, "month": 6, "amount": "900.00",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("set budget: status %d", rec.Code)
	}
	budget := decodeBody[budgetResponse](t, rec)

	rec = doRequest(t, srv, http.MethodPut, fmt.Sprintf("/api/budgets/%d", budget.ID), token, map[string]any{"amount": "950.00"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update budget: status %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[budgetResponse](t, rec); got.AmountCents != 95000 {
		t.Errorf("updated amountCents = %d, want 95000", got.AmountCents)
	}

	rec = doRequest(t, srv, http.MethodPut, fmt.Sprintf("/api/budgets/%d/categories", budget.ID), token, map[string]any{
		"categories": []map[string]any{{"categoryId": catID, "amount": "300.00"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("replace split: status %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodGet, fmt.Sprintf("/api/budgets/%d/categories", budget.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list split: status %d", rec.Code)
	}

	// Another user cannot touch this budget's split.
	otherToken := registerAndLogin(t, srv, "judy")
	rec = doRequest(t, srv, http.MethodPut, fmt.Sprintf("/api/budgets/%d/categories", budget.ID), otherToken, map[string]any{
		"categories": []map[string]any{{"categoryId": catID, "amount": "300.00"}},
	})
	if rec.Code != http.StatusForbidden && rec.Code != http.StatusNotFound {
		t.Errorf("foreign split update: status %d, want 403 or 404", rec.Code)
	}
}
