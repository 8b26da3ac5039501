package http

import (
	"fmt"
	"net/http"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/services"
)

// parseDateQuery reads an optional ?date=YYYY-MM-DD parameter, falling
// back to the current day.
func parseDateQuery(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return time.Now(), nil
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	return d.Time, nil
}

type distributionResponse struct {
	Summary string                 `json:"summary"`
	Details []services.RuleOutcome `json:"details"`
}

func (s *Server) handleDistributionRun(w http.ResponseWriter, r *http.Request) {
	target, err := parseDateQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.distributor.Run(r.Context(), target, false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, distributionResponse{
		Summary: fmt.Sprintf("%d processed, %d failed, %d skipped",
			result.Processed, result.Failed, result.Skipped),
		Details: result.Outcomes,
	})
}

type distributionTestResponse struct {
	Success           bool                   `json:"success"`
	TestDate          string                 `json:"testDate"`
	ProcessedSalaries []services.RuleOutcome `json:"processedSalaries"`
}

// handleDistributionTest runs a distribution for an arbitrary date and
// stamps last_paid on the processed rules, so a rule can be exercised
// once outside its normal schedule.
func (s *Server) handleDistributionTest(w http.ResponseWriter, r *http.Request) {
	target, err := parseDateQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.distributor.Run(r.Context(), target, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, distributionTestResponse{
		Success:           true,
		TestDate:          result.Date.ISO(),
		ProcessedSalaries: result.Outcomes,
	})
}
