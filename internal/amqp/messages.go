package amqp

import (
	"encoding/json"
	"time"
)

// Event kinds carried on the ledger queue.
const (
	EventTransactionRecorded = "transaction_recorded"
	EventSalaryDisbursed     = "salary_disbursed"
)

// LedgerEventMessage is a lightweight notification that something landed in
// the ledger. It carries only ids; the worker fetches the full rows from
// the database before exporting.
type LedgerEventMessage struct {
	Event         string    `json:"event"`
	TransactionID int64     `json:"transactionId,omitempty"`
	UserID        int64     `json:"userId"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionRecordedMessage(transactionID, userID int64) *LedgerEventMessage {
	return &LedgerEventMessage{
		Event:         EventTransactionRecorded,
		TransactionID: transactionID,
		UserID:        userID,
		Timestamp:     time.Now(),
	}
}

func NewSalaryDisbursedMessage(transactionID, userID int64) *LedgerEventMessage {
	return &LedgerEventMessage{
		Event:         EventSalaryDisbursed,
		TransactionID: transactionID,
		UserID:        userID,
		Timestamp:     time.Now(),
	}
}

func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
