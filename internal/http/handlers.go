package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/log"

	"github.com/shopspring/decimal"
)

type appMetrics struct {
	started          time.Time
	added            int64
	deleted          int64
	edited           int64
	validationErrors int64
	staleRejections  int64
	reportsServed    int64
	reportCacheHits  int64
}

func newAppMetrics() *appMetrics {
	return &appMetrics{started: time.Now()}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	c, err := criteriaFromQuery(r.URL.Query())
	errMsg := ""
	if err != nil {
		c = ledger.Criteria{}
		errMsg = validationMessage(err)
	}
	p, err := s.project(r, s.ledger.Snapshot(), c, core.DefaultDraft())
	if err != nil {
		s.renderFailed(w, r, err)
		return
	}
	p.Error = errMsg
	s.respond(w, r, NewHTMXResponse(), "index.html", p)
}

// handleLedgerPartial applies a filter: only the ledger section is
// re-rendered, the entry form keeps whatever the user typed.
func (s *Server) handleLedgerPartial(w http.ResponseWriter, r *http.Request) {
	c, err := criteriaFromQuery(r.URL.Query())
	if err != nil {
		UnprocessableEntityError(validationMessage(err)).Write(w)
		return
	}
	p, err := s.project(r, s.ledger.Snapshot(), c, core.DefaultDraft())
	if err != nil {
		s.renderFailed(w, r, err)
		return
	}
	s.respond(w, r, NewHTMXResponse(), "refresh", p)
}

func (s *Server) renderFailed(w http.ResponseWriter, r *http.Request, err error) {
	log.FromContext(r.Context()).LogError(r.Context(), "Projecting ledger failed", err, log.OpRender, nil)
	InternalServerError("Could not render the ledger").Write(w)
}

type (
	apiTransaction struct {
		Index    int             `json:"index"`
		Name     string          `json:"name"`
		Category string          `json:"category"`
		Date     string          `json:"date"`
		Amount   decimal.Decimal `json:"amount"`
	}

	apiSummary struct {
		Income  decimal.Decimal `json:"income"`
		Expense decimal.Decimal `json:"expense"`
		Balance decimal.Decimal `json:"balance"`
	}

	apiLedger struct {
		Version      uint64           `json:"version"`
		Total        int              `json:"total"`
		Transactions []apiTransaction `json:"transactions"`
		Summary      apiSummary       `json:"summary"`
	}
)

// handleAPITransactions returns the (optionally filtered) list with the
// whole-ledger summary.
func (s *Server) handleAPITransactions(w http.ResponseWriter, r *http.Request) {
	c, err := criteriaFromQuery(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": validationMessage(err)})
		return
	}
	snap := s.ledger.Snapshot()
	entries := ledger.FilterIndexed(snap.Transactions, c)
	sum := ledger.Summarize(snap.Transactions)

	out := apiLedger{
		Version:      snap.Version,
		Total:        len(snap.Transactions),
		Transactions: make([]apiTransaction, len(entries)),
		Summary:      apiSummary{Income: sum.Income, Expense: sum.Expense, Balance: sum.Balance},
	}
	for i, e := range entries {
		out.Transactions[i] = apiTransaction{
			Index:    e.Index,
			Name:     e.Transaction.Name,
			Category: e.Transaction.Category.String(),
			Date:     e.Transaction.Date,
			Amount:   e.Transaction.Amount,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		http.NotFound(w, r)
		return
	}
	c, err := criteriaFromQuery(r.URL.Query())
	if err != nil {
		http.Error(w, validationMessage(err), http.StatusUnprocessableEntity)
		return
	}
	snap := s.ledger.Snapshot()
	pdf, hit, err := s.reports.Build(snap, c)
	if err != nil {
		log.FromContext(r.Context()).LogError(r.Context(), "Report generation failed", err, log.OpRender,
			log.NewFields().WithComponent(log.ComponentReport))
		http.Error(w, "could not build report", http.StatusInternalServerError)
		return
	}
	atomic.AddInt64(&s.appMetrics.reportsServed, 1)
	cacheStatus := "MISS"
	if hit {
		atomic.AddInt64(&s.appMetrics.reportCacheHits, 1)
		cacheStatus = "HIT"
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="ledger-v%d.pdf"`, snap.Version))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.Header().Set("X-Cache", cacheStatus)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.started).Round(time.Second).String(),
	})
}

// handleReady checks templates and the storage backend.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.ping == nil:
		checks["storage"] = "not_checked"
	default:
		if err := s.ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Storage readiness check failed",
				log.FieldError, err)
			checks["storage"] = fmt.Sprintf("failed: %v", err)
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.traceMiddleware.GetMetrics()
	limitMetrics := s.rateLimiter.GetMetrics()
	snap := s.ledger.Snapshot()
	m := s.appMetrics

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_client_errors_total", "counter", "Responses with a 4xx status", traceMetrics.ClientErrors)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_average_response_seconds", "gauge", "Mean response time", traceMetrics.AverageResponseTime.Seconds())
	metric("ledger_transactions", "gauge", "Transactions currently in the ledger", len(snap.Transactions))
	metric("ledger_version", "gauge", "Current snapshot version", snap.Version)
	metric("ledger_added_total", "counter", "Transactions added", atomic.LoadInt64(&m.added))
	metric("ledger_deleted_total", "counter", "Transactions deleted", atomic.LoadInt64(&m.deleted))
	metric("ledger_edited_total", "counter", "Transactions loaded for editing", atomic.LoadInt64(&m.edited))
	metric("ledger_validation_errors_total", "counter", "Submissions rejected by validation", atomic.LoadInt64(&m.validationErrors))
	metric("ledger_stale_rejections_total", "counter", "Row actions refused for an outdated version", atomic.LoadInt64(&m.staleRejections))
	metric("reports_served_total", "counter", "PDF statements served", atomic.LoadInt64(&m.reportsServed))
	metric("report_cache_hits_total", "counter", "PDF statements served from cache", atomic.LoadInt64(&m.reportCacheHits))
	metric("rate_limit_hits_total", "counter", "Requests refused by the rate limiter", limitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", limitMetrics.ClientCount)
	metric("forwarded_header_rejections_total", "counter", "Forwarding headers without a valid IP", s.clientIP.Rejected())
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(m.started).Seconds()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
