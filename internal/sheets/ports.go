package sheets

import "context"

// StatementEntry is one ledger row shaped for the export spreadsheet.
type StatementEntry struct {
	Date        string // YYYY-MM-DD
	Username    string
	Type        string // income / expense
	Category    string
	Amount      float64 // major currency units
	Description string
	Event       string
}

// StatementAppender writes ledger rows to an external statement. Outbound
// port for the export worker.
type StatementAppender interface {
	Append(ctx context.Context, entry StatementEntry) (rowRef string, err error)
}
