package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"fxledger/internal/budget"
	"fxledger/internal/core"
	"fxledger/internal/importer"
	"fxledger/internal/ledger"
	"fxledger/internal/log"
	"fxledger/internal/rates"
)

type recordRequest struct {
	OwnerKey string          `json:"owner_key"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Category string          `json:"category"`
	Kind     string          `json:"kind"`
	Date     core.Date       `json:"date"`
}

type listResponse struct {
	OwnerKey     string             `json:"owner_key"`
	Transactions []core.Transaction `json:"transactions"`
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := s.deps.Ledger.Record(r.Context(), core.Entry{
		OwnerKey:   req.OwnerKey,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Category:   req.Category,
		Kind:       core.Kind(req.Kind),
		OccurredOn: req.Date,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var opts []ledger.ListOption
	switch sort := strings.TrimSpace(q.Get("sort")); sort {
	case "":
	case "date":
		opts = append(opts, ledger.SortByDate())
	default:
		writeError(w, r, core.NewValidationError("sort", fmt.Sprintf("must be \"date\" or empty, got %q", sort)))
		return
	}

	owner := q.Get("owner")
	rows, err := s.deps.Ledger.ListByOwner(r.Context(), owner, opts...)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rows == nil {
		rows = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, listResponse{OwnerKey: strings.TrimSpace(owner), Transactions: rows})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxImportBody)
	report, err := importer.Import(r.Context(), s.deps.Ledger, r.URL.Query().Get("owner"), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if report.Written > 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, report)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	owner := strings.TrimSpace(r.URL.Query().Get("owner"))
	rows, err := s.deps.Ledger.ListByOwner(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "transactions-"+owner+".csv"))
	if err := importer.Export(w, rows); err != nil {
		// Headers are already sent; the client sees a truncated body.
		slog.ErrorContext(r.Context(), "Export failed",
			log.FieldComponent, log.ComponentHTTP,
			log.FieldOperation, log.OpExport,
			log.FieldOwner, owner,
			log.FieldError, err)
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period, err := PeriodParams(q, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.deps.Ledger.MonthlySummary(r.Context(), q.Get("owner"), period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := optionalAmount(q, "amount", decimal.NewFromInt(1))
	if err != nil {
		writeError(w, r, err)
		return
	}
	to := q.Get("to")
	if strings.TrimSpace(to) == "" {
		to = s.deps.Ledger.BaseCurrency()
	}
	conv, err := rates.Convert(r.Context(), s.deps.Ledger.Rates(), amount, q.Get("from"), to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req budget.SetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.deps.Budgets.Set(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	asOf, err := optionalDate(q, "as_of")
	if err != nil {
		writeError(w, r, err)
		return
	}
	statuses, err := s.deps.Budgets.Status(r.Context(), q.Get("owner"), asOf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"budgets": statuses})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": s.deps.Tools.Tools()})
}

func (s *Server) handleInvokeTool(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		writeError(w, r, core.NewValidationError("body", err.Error()))
		return
	}
	if len(raw) > 0 && !json.Valid(raw) {
		writeError(w, r, core.NewValidationError("body", "must be JSON"))
		return
	}
	out, err := s.deps.Tools.Invoke(r.Context(), r.PathValue("name"), raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": out})
}
