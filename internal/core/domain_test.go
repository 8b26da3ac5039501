package core

import (
	"testing"
	"time"
)

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Cents: -5}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Type:        Expense,
		Amount:      Money{Cents: 100},
		CategoryID:  1,
		Date:        NewDate(2024, 6, 25),
		Description: "groceries",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Type: "transfer", Amount: Money{Cents: 1}, CategoryID: 1, Date: NewDate(2024, 6, 25), Description: "a"},
		{Type: Income, Amount: Money{Cents: 0}, CategoryID: 1, Date: NewDate(2024, 6, 25), Description: "a"},
		{Type: Income, Amount: Money{Cents: 1}, CategoryID: 1, Date: Date{}, Description: "a"},
		{Type: Income, Amount: Money{Cents: 1}, CategoryID: 1, Date: NewDate(2024, 6, 25), Description: "   "},
		{Type: Income, Amount: Money{Cents: 1}, CategoryID: 0, Date: NewDate(2024, 6, 25), Description: "a"},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestSalaryRuleValidate(t *testing.T) {
	cases := []struct {
		rule SalaryRule
		ok   bool
	}{
		{SalaryRule{Amount: Money{Cents: 300000}, Payday: 25}, true},
		{SalaryRule{Amount: Money{Cents: 300000}, Payday: 1}, true},
		{SalaryRule{Amount: Money{Cents: 300000}, Payday: 31}, true},
		{SalaryRule{Amount: Money{Cents: 300000}, Payday: 0}, false},
		{SalaryRule{Amount: Money{Cents: 300000}, Payday: 32}, false},
		{SalaryRule{Amount: Money{Cents: 0}, Payday: 15}, false},
	}
	for i, tc := range cases {
		err := tc.rule.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestSalaryRuleDueOn(t *testing.T) {
	day := func(y, m, d int) time.Time { return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC) }

	r := SalaryRule{Amount: Money{Cents: 1}, Payday: 25}
	if !r.DueOn(day(2024, 6, 25)) {
		t.Fatalf("payday 25 should be due on the 25th")
	}
	if r.DueOn(day(2024, 6, 26)) {
		t.Fatalf("payday 25 should not be due on the 26th")
	}

	// Short month clamping: payday 31 fires on the last day of February.
	r31 := SalaryRule{Amount: Money{Cents: 1}, Payday: 31}
	if !r31.DueOn(day(2024, 2, 29)) {
		t.Fatalf("payday 31 should clamp to Feb 29 in a leap year")
	}
	if !r31.DueOn(day(2023, 2, 28)) {
		t.Fatalf("payday 31 should clamp to Feb 28")
	}
	if r31.DueOn(day(2024, 2, 28)) {
		t.Fatalf("payday 31 should not fire on Feb 28 of a leap year")
	}
	if !r31.DueOn(day(2024, 1, 31)) {
		t.Fatalf("payday 31 should fire on Jan 31")
	}
}

func TestMonth(t *testing.T) {
	m := Month{Year: 2024, Month: 6}
	if got := m.String(); got != "2024-06-01" {
		t.Fatalf("expected 2024-06-01, got %s", got)
	}
	if got := m.LastDay(); got != 30 {
		t.Fatalf("expected 30, got %d", got)
	}
	first, last := m.Window()
	if first.ISO() != "2024-06-01" || last.ISO() != "2024-06-30" {
		t.Fatalf("unexpected window %s..%s", first.ISO(), last.ISO())
	}

	feb := Month{Year: 2024, Month: 2}
	if got := feb.LastDay(); got != 29 {
		t.Fatalf("expected 29, got %d", got)
	}

	parsed, err := ParseMonth("2024-06-01")
	if err != nil || parsed != m {
		t.Fatalf("parse month: %v %v", parsed, err)
	}
	if _, err := ParseMonth("2024-6"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestMonthValidate(t *testing.T) {
	if err := (Month{Year: 2024, Month: 6}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	for _, m := range []Month{{2024, 0}, {2024, 13}, {0, 1}} {
		if err := m.Validate(); err == nil {
			t.Fatalf("expected error for %+v", m)
		}
	}
}

func TestGroupValidate(t *testing.T) {
	if err := (Group{Name: "famiglia"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Group{Name: "  "}).Validate(); err == nil {
		t.Fatalf("expected error for blank name")
	}
}
