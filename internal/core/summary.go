package core

import "sort"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthSummary is the aggregated view of a user's month: income and
// expense totals, expense buckets per category, and what is left of the
// monthly budget.
type MonthSummary struct {
	Year       int
	Month      int // 1-12
	Income     Money
	Expense    Money
	Budget     Money
	Remaining  Money
	ByCategory []CategoryAmount
}

// Summarize reduces a month's transactions into totals, buckets expenses
// by category name, and computes remaining = max(0, budget - expense).
// Transactions are assumed to already be scoped to the month window.
func Summarize(month Month, budget Money, txs []Transaction, categoryNames map[int64]string) MonthSummary {
	sum := MonthSummary{
		Year:   month.Year,
		Month:  month.Month,
		Budget: budget,
	}

	buckets := make(map[string]int64)
	for _, tx := range txs {
		switch tx.Type {
		case Income:
			sum.Income.Cents += tx.Amount.Cents
		case Expense:
			sum.Expense.Cents += tx.Amount.Cents
			name := categoryNames[tx.CategoryID]
			if name == "" {
				name = "uncategorized"
			}
			buckets[name] += tx.Amount.Cents
		}
	}

	remaining := budget.Cents - sum.Expense.Cents
	if remaining < 0 {
		remaining = 0
	}
	sum.Remaining = Money{Cents: remaining}

	for name, cents := range buckets {
		sum.ByCategory = append(sum.ByCategory, CategoryAmount{Name: name, Amount: Money{Cents: cents}})
	}
	// Largest bucket first; name as tie-breaker for a stable order.
	sort.Slice(sum.ByCategory, func(i, j int) bool {
		if sum.ByCategory[i].Amount.Cents != sum.ByCategory[j].Amount.Cents {
			return sum.ByCategory[i].Amount.Cents > sum.ByCategory[j].Amount.Cents
		}
		return sum.ByCategory[i].Name < sum.ByCategory[j].Name
	})

	return sum
}
