package http

import (
	"bytes"
	"fmt"
	"net/http"
	"sync/atomic"

	"finpilot/internal/core"
	"finpilot/internal/export"
	"finpilot/internal/services"
	"finpilot/internal/store"
)

// StatsResponse keeps the balance beside the totals rather than inside them.
type StatsResponse struct {
	Totals struct {
		Income  core.Money `json:"income"`
		Expense core.Money `json:"expense"`
	} `json:"totals"`
	Balance core.Money `json:"balance"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in services.CreateTransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, "create_transaction", err)
		return
	}
	in.Category = sanitizeInput(in.Category)
	in.Note = sanitizeInput(in.Note)

	t, err := s.svc.Transactions.Create(r.Context(), s.owner(r, in.UserID), in)
	if err != nil {
		writeError(w, r, "create_transaction", err)
		return
	}
	atomic.AddInt64(&s.appMetrics.transactionsCreated, 1)
	writeJSON(w, http.StatusCreated, t)
}

// filter parses the shared transaction query parameters, answering 400
// itself when they are malformed.
func (s *Server) filter(w http.ResponseWriter, r *http.Request, op string) (store.TransactionFilter, bool) {
	q := r.URL.Query()
	f, err := ParseTransactionFilter(q, s.owner(r, q.Get("userId")), s.now())
	if err != nil {
		writeError(w, r, op, err)
		return store.TransactionFilter{}, false
	}
	return f, true
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, ok := s.filter(w, r, "list_transactions")
	if !ok {
		return
	}
	txs, err := s.svc.Transactions.List(r.Context(), f)
	if err != nil {
		writeError(w, r, "list_transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	f, ok := s.filter(w, r, "stats")
	if !ok {
		return
	}
	totals, err := s.svc.Transactions.Stats(r.Context(), f)
	if err != nil {
		writeError(w, r, "stats", err)
		return
	}
	var resp StatsResponse
	resp.Totals.Income = totals.Income
	resp.Totals.Expense = totals.Expense
	resp.Balance = totals.Balance
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	f, ok := s.filter(w, r, "summary")
	if !ok {
		return
	}
	g, err := core.ParseGranularity(r.URL.Query().Get("group"))
	if err != nil {
		writeError(w, r, "summary", err)
		return
	}
	points, err := s.svc.Transactions.Summary(r.Context(), f, g)
	if err != nil {
		writeError(w, r, "summary", err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleBuckets(w http.ResponseWriter, r *http.Request) {
	f, ok := s.filter(w, r, "buckets")
	if !ok {
		return
	}
	spend, err := s.svc.Transactions.Buckets(r.Context(), f)
	if err != nil {
		writeError(w, r, "buckets", err)
		return
	}
	writeJSON(w, http.StatusOK, spend)
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	f, ok := s.filter(w, r, "trace")
	if !ok {
		return
	}
	q := r.URL.Query()
	src, err := services.ParseTraceSource(q.Get("source"))
	if err != nil {
		writeError(w, r, "trace", err)
		return
	}
	g, err := core.ParseGranularity(q.Get("group"))
	if err != nil {
		writeError(w, r, "trace", err)
		return
	}
	points, err := s.svc.Transactions.Trace(r.Context(), f, src, g)
	if err != nil {
		writeError(w, r, "trace", err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// handleExportLedger renders the filtered transactions as an XML statement.
// The document is built in memory so a failure can still become a JSON error.
func (s *Server) handleExportLedger(w http.ResponseWriter, r *http.Request) {
	f, ok := s.filter(w, r, "export_ledger")
	if !ok {
		return
	}
	txs, err := s.svc.Transactions.Ledger(r.Context(), f)
	if err != nil {
		writeError(w, r, "export_ledger", err)
		return
	}

	var buf bytes.Buffer
	err = export.WriteLedger(&buf, export.Statement{
		UserID:       f.UserID,
		Range:        f.Range,
		GeneratedAt:  s.now().UTC(),
		Transactions: txs,
	})
	if err != nil {
		writeError(w, r, "export_ledger", err)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "ledger-"+f.UserID+".xml"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
