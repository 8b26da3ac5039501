package http

import (
	"errors"
	"net/http"

	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/storage"
)

type transactionRequest struct {
	Type        string `json:"type"`
	Amount      string `json:"amount"` // decimal, e.g. "12.34"
	CategoryID  int64  `json:"categoryId"`
	Date        string `json:"date"` // YYYY-MM-DD
	Description string `json:"description"`
	GroupID     *int64 `json:"groupId,omitempty"`
}

type transactionResponse struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amountCents"`
	CategoryID  int64  `json:"categoryId"`
	Date        string `json:"date"`
	Description string `json:"description"`
	GroupID     *int64 `json:"groupId,omitempty"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		Type:        string(tx.Type),
		Amount:      tx.Amount.String(),
		AmountCents: tx.Amount.Cents,
		CategoryID:  tx.CategoryID,
		Date:        tx.Date.ISO(),
		Description: tx.Description,
		GroupID:     tx.GroupID,
	}
}

func (r transactionRequest) toCore(userID int64) (core.Transaction, error) {
	cents, err := core.ParseDecimalToCents(r.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		UserID:      userID,
		GroupID:     r.GroupID,
		Type:        core.TransactionType(r.Type),
		Amount:      core.Money{Cents: cents},
		CategoryID:  r.CategoryID,
		Date:        date,
		Description: sanitizeInput(r.Description),
	}, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs, err := s.repo.ListTransactionsByMonth(r.Context(), userFromContext(r.Context()), month)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "list transactions", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "list transactions")
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := userFromContext(r.Context())
	tx, err := req.toCore(userID)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.ledger.CreateTransaction(r.Context(), tx)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	tx.ID = id

	s.invalidateSummary(userID, core.MonthOf(tx.Date.Time))
	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := userFromContext(r.Context())
	tx, err := req.toCore(userID)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	tx.ID = id

	// Fetch the old row first so both months are invalidated on a date
	// change.
	old, err := s.repo.GetTransaction(r.Context(), id, userID)
	if err != nil {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}

	if err := s.ledger.UpdateTransaction(r.Context(), tx); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.invalidateSummary(userID, core.MonthOf(old.Date.Time))
	s.invalidateSummary(userID, core.MonthOf(tx.Date.Time))
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := userFromContext(r.Context())
	old, err := s.repo.GetTransaction(r.Context(), id, userID)
	if err != nil {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}

	if err := s.ledger.DeleteTransaction(r.Context(), id, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "delete transaction")
		return
	}

	s.invalidateSummary(userID, core.MonthOf(old.Date.Time))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type summaryResponse struct {
	Year       int              `json:"year"`
	Month      int              `json:"month"`
	Income     string           `json:"income"`
	Expense    string           `json:"expense"`
	Budget     string           `json:"budget"`
	Remaining  string           `json:"remaining"`
	ByCategory []categoryBucket `json:"byCategory"`
}

type categoryBucket struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

func toSummaryResponse(sum core.MonthSummary) summaryResponse {
	out := summaryResponse{
		Year:       sum.Year,
		Month:      sum.Month,
		Income:     sum.Income.String(),
		Expense:    sum.Expense.String(),
		Budget:     sum.Budget.String(),
		Remaining:  sum.Remaining.String(),
		ByCategory: make([]categoryBucket, 0, len(sum.ByCategory)),
	}
	for _, b := range sum.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryBucket{Name: b.Name, Amount: b.Amount.String()})
	}
	return out
}

func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := userFromContext(r.Context())
	key := s.summaryCacheKey(userID, month)

	if sum, ok := s.summaryCache.Get(key); ok {
		writeJSON(w, http.StatusOK, toSummaryResponse(sum))
		return
	}

	sum, err := s.ledger.MonthSummary(r.Context(), userID, month)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "month summary", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "compute summary")
		return
	}

	s.summaryCache.Set(key, sum)
	writeJSON(w, http.StatusOK, toSummaryResponse(sum))
}

type categoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.repo.ListCategories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list categories")
		return
	}
	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryResponse{ID: c.ID, Name: c.Name, Type: string(c.Type)})
	}
	writeJSON(w, http.StatusOK, out)
}
