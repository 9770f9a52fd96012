package http

import (
	"errors"
	"net/http"
	"sync/atomic"

	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/log"
)

const staleMessage = "The ledger changed since this page was loaded, reload and try again"

// parseMutation reads the body and the filter it carries. On failure the
// error response has already been written.
func (s *Server) parseMutation(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, ledger.Criteria, bool) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Unreadable request body",
			log.FieldOperation, log.OpParse,
			log.FieldError, err)
		BadRequestError("Malformed request").Write(w)
		return nil, ledger.Criteria{}, false
	}
	c, err := p.Criteria()
	if err != nil {
		// A broken filter never blocks a mutation; show everything.
		c = ledger.Criteria{}
	}
	return p, c, true
}

// writeMutation renders the state after a mutation. htmx gets the ledger
// section plus an out-of-band form; a plain form post gets the whole page.
func (s *Server) writeMutation(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, snap ledger.Snapshot, c ledger.Criteria, draft core.Draft) {
	p, err := s.project(r, snap, c, draft)
	if err != nil {
		s.renderFailed(w, r, err)
		return
	}
	if !isHTMX(r) {
		s.respond(w, r, b, "index.html", p)
		return
	}
	p.OOB = true
	s.respond(w, r, b, "mutation", p)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	p, c, ok := s.parseMutation(w, r)
	if !ok {
		return
	}
	draft := p.Draft()
	t, err := draft.Transaction()
	if err != nil {
		atomic.AddInt64(&s.appMetrics.validationErrors, 1)
		logger.InfoContext(ctx, "Transaction rejected",
			log.FieldOperation, log.OpValidate,
			log.FieldError, err)
		UnprocessableEntityError(validationMessage(err)).Write(w)
		return
	}

	snap, err := s.ledger.Add(ctx, t)
	if err != nil {
		logger.LogError(ctx, "Adding transaction failed", err, log.OpCreate, nil)
		InternalServerError("The transaction could not be saved").Write(w)
		return
	}
	atomic.AddInt64(&s.appMetrics.added, 1)

	b := NewHTMXResponse().
		TriggerLedgerChanged(string(ledger.OpAdd), snap.Version).
		TriggerFormReset().
		TriggerSuccessNotification("Transaction saved")
	s.writeMutation(w, r, b, snap, c, core.DefaultDraft())
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, c, ok := s.parseMutation(w, r)
	if !ok {
		return
	}
	ref, err := p.Ref()
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	snap, removed, err := s.ledger.Delete(ctx, ref)
	if !s.mutationOK(w, r, err, log.OpDelete) {
		return
	}
	b := NewHTMXResponse()
	if removed {
		atomic.AddInt64(&s.appMetrics.deleted, 1)
		b.TriggerLedgerChanged(string(ledger.OpDelete), snap.Version)
	}
	pg, err := s.project(r, snap, c, core.DefaultDraft())
	if err != nil {
		s.renderFailed(w, r, err)
		return
	}
	if !isHTMX(r) {
		s.respond(w, r, b, "index.html", pg)
		return
	}
	// The entry form is left alone so a half-typed draft survives.
	s.respond(w, r, b, "refresh", pg)
}

// handleEditTransaction removes the row and hands it back as a draft. The
// record is re-added, at the end, when the form is submitted.
func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, c, ok := s.parseMutation(w, r)
	if !ok {
		return
	}
	ref, err := p.Ref()
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	draft, snap, loaded, err := s.ledger.Edit(ctx, ref)
	if !s.mutationOK(w, r, err, log.OpUpdate) {
		return
	}
	b := NewHTMXResponse()
	if !loaded {
		draft = core.DefaultDraft()
	} else {
		atomic.AddInt64(&s.appMetrics.edited, 1)
		b.TriggerLedgerChanged(string(ledger.OpEdit), snap.Version)
	}
	s.writeMutation(w, r, b, snap, c, draft)
}

// mutationOK writes the error response for a non-nil err and reports
// whether the handler may continue.
func (s *Server) mutationOK(w http.ResponseWriter, r *http.Request, err error, op string) bool {
	if err == nil {
		return true
	}
	logger := log.FromContext(r.Context())
	if errors.Is(err, ledger.ErrStaleVersion) {
		atomic.AddInt64(&s.appMetrics.staleRejections, 1)
		logger.InfoContext(r.Context(), "Row action refused, page is outdated",
			log.FieldOperation, op,
			log.FieldVersion, s.ledger.Snapshot().Version)
		ConflictError(staleMessage).Write(w)
		return false
	}
	logger.LogError(r.Context(), "Ledger mutation failed", err, op, nil)
	InternalServerError("The change could not be saved").Write(w)
	return false
}

func (s *Server) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	next := themeFromRequest(r).Toggle()
	setThemeCookie(w, next)
	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	NewHTMXResponse().Refresh().Status(http.StatusNoContent).Write(w)
}
