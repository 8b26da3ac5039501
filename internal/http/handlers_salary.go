package http

import (
	"errors"
	"net/http"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

type salaryRequest struct {
	Amount  string `json:"amount"`
	Payday  int    `json:"payday"`
	GroupID *int64 `json:"groupId,omitempty"`
}

type salaryResponse struct {
	ID          int64  `json:"id"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amountCents"`
	Payday      int    `json:"payday"`
	GroupID     *int64 `json:"groupId,omitempty"`
	LastPaid    string `json:"lastPaid,omitempty"`
}

func toSalaryResponse(rule core.SalaryRule) salaryResponse {
	out := salaryResponse{
		ID:          rule.ID,
		Amount:      rule.Amount.String(),
		AmountCents: rule.Amount.Cents,
		Payday:      rule.Payday,
		GroupID:     rule.GroupID,
	}
	if rule.LastPaid != nil {
		out.LastPaid = rule.LastPaid.Format("2006-01-02")
	}
	return out
}

func (s *Server) salaryFromRequest(r *http.Request, req salaryRequest) (core.SalaryRule, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.SalaryRule{}, err
	}
	rule := core.SalaryRule{
		UserID:  userFromContext(r.Context()),
		Amount:  core.Money{Cents: cents},
		Payday:  req.Payday,
		GroupID: req.GroupID,
	}
	if err := rule.Validate(); err != nil {
		return core.SalaryRule{}, err
	}
	if rule.GroupID != nil {
		ok, err := s.repo.IsGroupMember(r.Context(), *rule.GroupID, rule.UserID)
		if err != nil {
			return core.SalaryRule{}, err
		}
		if !ok {
			return core.SalaryRule{}, errors.New("not a member of the linked group")
		}
	}
	return rule, nil
}

func (s *Server) handleListSalaries(w http.ResponseWriter, r *http.Request) {
	rules, err := s.repo.ListSalariesByUser(r.Context(), userFromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list salaries")
		return
	}
	out := make([]salaryResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toSalaryResponse(rule))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSalary(w http.ResponseWriter, r *http.Request) {
	var req salaryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rule, err := s.salaryFromRequest(r, req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.repo.CreateSalary(r.Context(), rule)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create salary")
		return
	}
	rule.ID = id
	writeJSON(w, http.StatusCreated, toSalaryResponse(rule))
}

func (s *Server) handleUpdateSalary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req salaryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rule, err := s.salaryFromRequest(r, req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	rule.ID = id

	if err := s.repo.UpdateSalary(r.Context(), rule); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "salary not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "update salary")
		return
	}
	writeJSON(w, http.StatusOK, toSalaryResponse(rule))
}

func (s *Server) handleDeleteSalary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.repo.DeleteSalary(r.Context(), id, userFromContext(r.Context())); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "salary not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "delete salary")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
