package http

import (
	"fmt"
	"net/http"

	"github.com/xuri/excelize/v2"
)

// handleExportXLSX writes the caller's transactions for a month as a
// spreadsheet download.
func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	userID := userFromContext(r.Context())

	month, err := parseMonthQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs, err := s.repo.ListTransactionsByMonth(r.Context(), userID, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list transactions")
		return
	}
	names, err := s.repo.CategoryNames(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list categories")
		return
	}

	f := excelize.NewFile()
	sheetName := "Transactions"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create sheet")
		return
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Date", "Type", "Category", "Amount", "Description", "Group"}
	for i, h := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, h)
	}

	for idx, tx := range txs {
		row := idx + 2
		group := ""
		if tx.GroupID != nil {
			group = fmt.Sprintf("%d", *tx.GroupID)
		}
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), tx.Date.ISO())
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), string(tx.Type))
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), names[tx.CategoryID])
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), tx.Amount.String())
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), tx.Description)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), group)
	}

	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "C", 14)
	f.SetColWidth(sheetName, "D", "D", 12)
	f.SetColWidth(sheetName, "E", "E", 30)
	f.SetColWidth(sheetName, "F", "F", 8)

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("transactions_%s.xlsx", month.String())))

	if err := f.Write(w); err != nil {
		s.logger.Error("write export", "error", err)
	}
}
