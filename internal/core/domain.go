package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// SalaryCategory is the fixed income category salary disbursements are
// booked under. It is seeded by the migrations and must not be deleted.
const SalaryCategory = "salary"

// SalaryDescription is the ledger description used for disbursed salaries.
const SalaryDescription = "salary"

type (
	TransactionType string

	Date struct {
		time.Time
	}

	// Money is an amount in minor currency units (cents).
	Money struct {
		Cents int64
	}

	// Month identifies a budget month. It is persisted as the
	// first-of-month date (YYYY-MM-01).
	Month struct {
		Year  int
		Month int // 1-12
	}

	User struct {
		ID          int64
		Username    string
		DisplayName string
	}

	Category struct {
		ID   int64
		Name string
		Type TransactionType
	}

	Transaction struct {
		ID          int64
		UserID      int64
		GroupID     *int64
		Type        TransactionType
		Amount      Money
		CategoryID  int64
		Date        Date
		Description string
	}

	// SalaryRule configures a recurring salary payment for a user.
	SalaryRule struct {
		ID       int64
		UserID   int64
		Amount   Money
		Payday   int // day of month, 1-31
		GroupID  *int64
		LastPaid *time.Time
	}

	// Budget is the per-user, per-month running total of money available
	// to spend. The distribution job only ever adds to it.
	Budget struct {
		ID     int64
		UserID int64
		Month  Month
		Amount Money
	}

	// BudgetCategory is one slice of a budget's per-category split.
	BudgetCategory struct {
		ID         int64
		BudgetID   int64
		CategoryID int64
		Amount     Money
	}

	Group struct {
		ID      int64
		Name    string
		OwnerID int64
	}

	GroupMember struct {
		GroupID int64
		UserID  int64
		Role    string // owner / member
	}

	GroupBudget struct {
		ID      int64
		GroupID int64
		Month   Month
		Amount  Money
	}

	// SalaryAddition is an append-only audit row marking a disbursed
	// salary; one per (user, date).
	SalaryAddition struct {
		ID     int64
		UserID int64
		Amount Money
		Date   Date
	}

	Invitation struct {
		ID      int64
		GroupID int64
		Email   string
		Token   string
		Status  string // pending / accepted / revoked
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidPayday    = errors.New("invalid payday")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyName        = errors.New("empty name")
)

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidType
	}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// ISO returns the date formatted as YYYY-MM-DD.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// MonthOf returns the budget month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: int(t.Month())}
}

func (m Month) Validate() error {
	if m.Month < 1 || m.Month > 12 {
		return ErrInvalidMonth
	}
	if m.Year < 1970 || m.Year > 9999 {
		return ErrInvalidMonth
	}
	return nil
}

// FirstDay returns the first-of-month date, the persisted representation.
func (m Month) FirstDay() Date {
	return NewDate(m.Year, m.Month, 1)
}

// LastDay returns the number of days in the month.
func (m Month) LastDay() int {
	return time.Date(m.Year, time.Month(m.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Window returns the inclusive [first, last] day bounds of the month.
func (m Month) Window() (Date, Date) {
	return m.FirstDay(), NewDate(m.Year, m.Month, m.LastDay())
}

// String formats the month as its first-of-month date (YYYY-MM-01).
func (m Month) String() string {
	return m.FirstDay().ISO()
}

// ParseMonth accepts a first-of-month date string (YYYY-MM-01); the day
// component is ignored.
func ParseMonth(s string) (Month, error) {
	d, err := ParseDate(s)
	if err != nil {
		return Month{}, err
	}
	return MonthOf(d.Time), nil
}

func (tx Transaction) Validate() error {
	if err := tx.Type.Validate(); err != nil {
		return err
	}
	if err := tx.Amount.Validate(); err != nil {
		return err
	}
	if err := tx.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(tx.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(tx.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if tx.CategoryID <= 0 {
		return errors.New("missing category")
	}
	return nil
}

func (r SalaryRule) Validate() error {
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if r.Payday < 1 || r.Payday > 31 {
		return ErrInvalidPayday
	}
	return nil
}

// DueOn reports whether the rule is due on the given date. Matching is by
// day-of-month; paydays past the end of a short month fire on its last day
// (payday 31 pays on Feb 28/29).
func (r SalaryRule) DueOn(t time.Time) bool {
	day := t.Day()
	if r.Payday == day {
		return true
	}
	lastDay := MonthOf(t).LastDay()
	return day == lastDay && r.Payday > lastDay
}

func (b Budget) Validate() error {
	if err := b.Month.Validate(); err != nil {
		return err
	}
	if b.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (g Group) Validate() error {
	if len(strings.TrimSpace(g.Name)) == 0 {
		return ErrEmptyName
	}
	if len(g.Name) > 100 {
		return errors.New("group name too long (max 100 characters)")
	}
	return nil
}
