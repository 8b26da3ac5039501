package http

import (
	"net/http"

	"bilancio/internal/core"
	"bilancio/internal/log"
)

type budgetResponse struct {
	ID          int64  `json:"id"`
	Year        int    `json:"year"`
	Month       int    `json:"month"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amountCents"`
}

func toBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{
		ID:          b.ID,
		Year:        b.Month.Year,
		Month:       b.Month.Month,
		Amount:      b.Amount.String(),
		AmountCents: b.Amount.Cents,
	}
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.repo.ListBudgetsByUser(r.Context(), userFromContext(r.Context()))
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "list budgets", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "list budgets")
		return
	}
	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

type setBudgetRequest struct {
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Amount string `json:"amount"`
}

// handleSetBudget creates or replaces the budget for a month.
func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req setBudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	month := core.Month{Year: req.Year, Month: req.Month}
	if err := month.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	userID := userFromContext(r.Context())
	id, err := s.repo.SetBudget(r.Context(), userID, month, cents)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "set budget")
		return
	}

	s.invalidateSummary(userID, month)
	writeJSON(w, http.StatusOK, budgetResponse{
		ID:          id,
		Year:        month.Year,
		Month:       month.Month,
		Amount:      core.Money{Cents: cents}.String(),
		AmountCents: cents,
	})
}

type updateBudgetRequest struct {
	Amount string `json:"amount"`
}

// handleUpdateBudget replaces the amount of an existing budget row.
func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	budgetID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := userFromContext(r.Context())
	budget, err := s.repo.GetBudgetByID(r.Context(), budgetID)
	if err != nil || budget.UserID != userID {
		writeError(w, http.StatusNotFound, "budget not found")
		return
	}

	var req updateBudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if _, err := s.repo.SetBudget(r.Context(), userID, budget.Month, cents); err != nil {
		writeError(w, http.StatusInternalServerError, "update budget")
		return
	}

	s.invalidateSummary(userID, budget.Month)
	writeJSON(w, http.StatusOK, budgetResponse{
		ID:          budgetID,
		Year:        budget.Month.Year,
		Month:       budget.Month.Month,
		Amount:      core.Money{Cents: cents}.String(),
		AmountCents: cents,
	})
}

type budgetCategoryItem struct {
	CategoryID int64  `json:"categoryId"`
	Amount     string `json:"amount"`
}

type replaceBudgetCategoriesRequest struct {
	Categories []budgetCategoryItem `json:"categories"`
}

// handleReplaceBudgetCategories swaps a budget's per-category split. The
// budget must belong to the caller.
func (s *Server) handleReplaceBudgetCategories(w http.ResponseWriter, r *http.Request) {
	budgetID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	budget, err := s.repo.GetBudgetByID(r.Context(), budgetID)
	if err != nil || budget.UserID != userFromContext(r.Context()) {
		writeError(w, http.StatusNotFound, "budget not found")
		return
	}

	var req replaceBudgetCategoriesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	split := make([]core.BudgetCategory, 0, len(req.Categories))
	for _, item := range req.Categories {
		cents, err := core.ParseDecimalToCents(item.Amount)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if _, err := s.repo.GetCategory(r.Context(), item.CategoryID); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "unknown category")
			return
		}
		split = append(split, core.BudgetCategory{
			BudgetID:   budgetID,
			CategoryID: item.CategoryID,
			Amount:     core.Money{Cents: cents},
		})
	}

	if err := s.repo.ReplaceBudgetCategories(r.Context(), budgetID, split); err != nil {
		writeError(w, http.StatusInternalServerError, "replace budget categories")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type budgetCategoryResponse struct {
	ID         int64  `json:"id"`
	CategoryID int64  `json:"categoryId"`
	Amount     string `json:"amount"`
}

func (s *Server) handleListBudgetCategories(w http.ResponseWriter, r *http.Request) {
	budgetID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	budget, err := s.repo.GetBudgetByID(r.Context(), budgetID)
	if err != nil || budget.UserID != userFromContext(r.Context()) {
		writeError(w, http.StatusNotFound, "budget not found")
		return
	}

	split, err := s.repo.ListBudgetCategories(r.Context(), budgetID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list budget categories")
		return
	}
	out := make([]budgetCategoryResponse, 0, len(split))
	for _, bc := range split {
		out = append(out, budgetCategoryResponse{ID: bc.ID, CategoryID: bc.CategoryID, Amount: bc.Amount.String()})
	}
	writeJSON(w, http.StatusOK, out)
}
