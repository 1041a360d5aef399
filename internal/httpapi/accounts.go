package httpapi

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/tinoosan/firmledger/internal/service/account"
)

// postAccount handles POST /v1/accounts.
func (s *Server) postAccount(w http.ResponseWriter, r *http.Request) {
	var req postAccountRequest
	if !s.bindJSON(w, r, &req) {
		return
	}
	in := account.CreateInput{
		HolderName:    req.HolderName,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		RoutingCode:   req.RoutingCode,
		Currency:      req.Currency,
	}
	if req.OpeningBalance != "" {
		d, err := decimal.Parse(req.OpeningBalance)
		if err != nil {
			unprocessable(w, "invalid opening_balance", "validation_error")
			return
		}
		in.OpeningBalance = d
	}
	if req.OpeningDate != nil {
		in.OpeningDate = *req.OpeningDate
	}
	if err := s.deps.Accounts.ValidateCreate(in); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	a, err := s.deps.Accounts.Create(r.Context(), in)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toAccountResponse(a))
}

// listAccounts handles GET /v1/accounts. Inactive accounts are included with ?include_inactive=true.
func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	accs, err := s.deps.Accounts.List(r.Context(), includeInactive)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	out := make([]accountResponse, 0, len(accs))
	for _, a := range accs {
		out = append(out, toAccountResponse(a))
	}
	toJSON(w, http.StatusOK, map[string]any{"accounts": out})
}

func accountID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid account id")
		return uuid.Nil, false
	}
	return id, true
}

// getAccount handles GET /v1/accounts/{id}.
func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	a, err := s.deps.Accounts.Get(r.Context(), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(a))
}

// deactivateAccount handles DELETE /v1/accounts/{id} by soft-deactivating (active=false).
func (s *Server) deactivateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	if _, err := s.deps.Accounts.Deactivate(r.Context(), id); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// verifyAccount handles GET /v1/accounts/{id}/verify.
func (s *Server) verifyAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	check, err := s.deps.Accounts.VerifyBalance(r.Context(), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toBalanceCheckResponse(check))
}
