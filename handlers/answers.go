// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/danielhkuo/sealed-poll/auth"
	"github.com/danielhkuo/sealed-poll/cliparse"
	"github.com/danielhkuo/sealed-poll/db"
	"github.com/danielhkuo/sealed-poll/identity"
	"github.com/danielhkuo/sealed-poll/ledger"
	"github.com/danielhkuo/sealed-poll/middleware"
	"github.com/danielhkuo/sealed-poll/models"
)

// Journal receives a receipt for every new answer. *db.Journal implements it.
type Journal interface {
	Record(ctx context.Context, poll string, r db.Receipt) (string, error)
}

type AnswerHandler struct {
	registry *ledger.Registry
	verifier identity.Verifier
	journal  Journal
	cfg      cliparse.Config
	pending  *pendingOrders
}

// NewAnswerHandler creates the answer handler. verifier and journal may be nil.
func NewAnswerHandler(registry *ledger.Registry, verifier identity.Verifier, journal Journal, cfg cliparse.Config) *AnswerHandler {
	return &AnswerHandler{
		registry: registry,
		verifier: verifier,
		journal:  journal,
		cfg:      cfg,
		pending:  newPendingOrders(time.Now),
	}
}

// Auth handles POST /polls/{name}/auth
// Validates the chosen option and starts identity verification when a
// provider is configured.
func (h *AnswerHandler) Auth(w http.ResponseWriter, r *http.Request) {
	l, ok := getLedger(w, r, h.registry)
	if !ok {
		return
	}

	var req models.AuthRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.IdentitySecret == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "identity_secret is required")
		return
	}
	option, ok := validOption(w, l, req.Option)
	if !ok {
		return
	}

	resp := models.AuthResponse{
		Option:     option,
		OptionText: l.Options()[option],
	}

	if h.verifier != nil {
		orderRef, err := h.verifier.InitAuth(r.Context(), req.IdentitySecret, middleware.GetClientIP(r))
		if err != nil {
			slog.Error("failed to start identity verification", "poll", l.Name(), "error", err)
			middleware.ErrorResponse(w, http.StatusBadGateway, "Identity provider unavailable")
			return
		}
		h.pending.add(orderRef, l.Name(), l.AK(req.IdentitySecret))
		resp.OrderRef = orderRef
		resp.VerificationRequired = true
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// Submit handles POST /polls/{name}/answers
// A new answer is 201 Created. A repeat submission by the same identity is
// 200 OK with the original answer and already_answered set.
func (h *AnswerHandler) Submit(w http.ResponseWriter, r *http.Request) {
	l, ok := getLedger(w, r, h.registry)
	if !ok {
		return
	}

	var req models.SubmitAnswerRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.IdentitySecret == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "identity_secret is required")
		return
	}
	option, ok := validOption(w, l, req.Option)
	if !ok {
		return
	}
	if h.cfg.RequirePersonalCode && req.PersonalCode == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "personal_code is required")
		return
	}

	if !h.checkIdentity(w, r, l, req.OrderRef, req.IdentitySecret) {
		return
	}

	answer, err := l.SubmitAnswer(req.IdentitySecret, option, req.PersonalCode)
	switch {
	case errors.Is(err, ledger.ErrInvalidOption):
		middleware.ErrorResponse(w, http.StatusBadRequest, "option out of range")
		return
	case errors.Is(err, ledger.ErrPersistence):
		slog.Error("failed to persist answer", "poll", l.Name(), "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record answer")
		return
	case err != nil:
		slog.Error("failed to submit answer", "poll", l.Name(), "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record answer")
		return
	}

	if req.OrderRef != "" {
		h.pending.remove(req.OrderRef)
	}

	resp := answerResponse(l.Name(), answer)

	if answer.IsPrior {
		slog.Info("repeat answer", "poll", l.Name(), "ak", answer.AK)
		middleware.JSONResponse(w, http.StatusOK, resp)
		return
	}

	// Mirror to the journal; the ledger file is already the source of truth
	if h.journal != nil {
		receiptID, err := h.journal.Record(r.Context(), l.Name(), receiptFor(answer))
		if err != nil {
			slog.Warn("failed to journal answer", "poll", l.Name(), "ak", answer.AK, "error", err)
			// Non-fatal: the answer is sealed in the ledger
		} else {
			resp.ReceiptID = receiptID
		}
	}

	slog.Info("answer recorded", "poll", l.Name(), "ak", answer.AK, "protected", answer.PO != "", "seal", answer.Seal)

	middleware.JSONResponse(w, http.StatusCreated, resp)
}

// Lookup handles POST /polls/{name}/lookup
// Returns the answer an identity gave. Protected answers are resolved only
// with the matching personal code.
func (h *AnswerHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	l, ok := getLedger(w, r, h.registry)
	if !ok {
		return
	}

	var req models.LookupRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.IdentitySecret == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "identity_secret is required")
		return
	}

	if !h.checkIdentity(w, r, l, req.OrderRef, req.IdentitySecret) {
		return
	}

	answer, found := l.LookupAnswer(req.IdentitySecret, req.PersonalCode)
	if !found {
		middleware.ErrorResponse(w, http.StatusNotFound, "No answer recorded")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, answerResponse(l.Name(), answer))
}

// GetAnswer handles GET /polls/{name}/answers/{ak}
// Lets a voter confirm that their anonymous key is in the log. It reveals no
// more than the published ledger file.
func (h *AnswerHandler) GetAnswer(w http.ResponseWriter, r *http.Request) {
	l, ok := getLedger(w, r, h.registry)
	if !ok {
		return
	}

	ak := r.PathValue("ak")
	if err := auth.ValidateKey(ak); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid anonymous key")
		return
	}

	answer, found := l.LookupAK(ak, "")
	if !found {
		middleware.ErrorResponse(w, http.StatusNotFound, "No answer recorded")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, answerResponse(l.Name(), answer))
}

// checkIdentity runs the verification gate when a provider is configured.
// It writes the error response and returns false when the caller is not verified.
func (h *AnswerHandler) checkIdentity(w http.ResponseWriter, r *http.Request, l *ledger.Ledger, orderRef, identitySecret string) bool {
	if h.verifier == nil {
		return true
	}

	if orderRef == "" {
		middleware.ErrorResponse(w, http.StatusForbidden, "order_ref is required")
		return false
	}
	if !h.pending.matches(orderRef, l.Name(), l.AK(identitySecret)) {
		middleware.ErrorResponse(w, http.StatusForbidden, "Identity verification failed")
		return false
	}

	verified, err := h.verifier.CheckAuth(r.Context(), orderRef)
	if err != nil {
		slog.Warn("identity verification error", "poll", l.Name(), "error", err)
	}
	if err != nil || !verified {
		middleware.ErrorResponse(w, http.StatusForbidden, "Identity verification failed")
		return false
	}
	return true
}

func validOption(w http.ResponseWriter, l *ledger.Ledger, option *int) (int, bool) {
	if option == nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "option is required")
		return 0, false
	}
	if *option < 0 || *option >= len(l.Options()) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "option out of range")
		return 0, false
	}
	return *option, true
}

func answerResponse(poll string, a ledger.Answer) models.AnswerResponse {
	resp := models.AnswerResponse{
		Poll:            poll,
		AnonymousKey:    a.AK,
		AnsweredAt:      a.Timestamp,
		Protected:       a.PO != "",
		AlreadyAnswered: a.IsPrior,
		Seal:            a.Seal,
	}
	if a.Resolved {
		ix := a.OptionIndex
		resp.Option = &ix
		resp.OptionText = a.Option
	}
	return resp
}

func receiptFor(a ledger.Answer) db.Receipt {
	choice := a.PO
	if choice == "" {
		choice = strconv.Itoa(a.OptionIndex)
	}
	return db.Receipt{
		AK:         a.AK,
		AnsweredAt: a.Timestamp,
		Choice:     choice,
		Seal:       a.Seal,
	}
}
