package httpapi

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/tinoosan/firmledger/internal/ledger"
	"github.com/tinoosan/firmledger/internal/service/posting"
)

// postTransaction handles POST /v1/transactions.
func (s *Server) postTransaction(w http.ResponseWriter, r *http.Request) {
	var req postTransactionRequest
	if !s.bindJSON(w, r, &req) {
		return
	}
	in, msg := toPostingInput(req)
	if msg != "" {
		unprocessable(w, msg, "validation_error")
		return
	}
	if err := s.deps.Posting.Validate(in); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	t, err := s.deps.Posting.PostWithRetry(r.Context(), in, s.deps.PostingRetries+1)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toTransactionResponse(t))
}

func toPostingInput(req postTransactionRequest) (posting.Input, string) {
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return posting.Input{}, "invalid account_id"
	}
	amount, err := decimal.Parse(req.Amount)
	if err != nil {
		return posting.Input{}, "invalid amount"
	}
	typ, err := ledger.ParseTransactionType(req.Type)
	if err != nil {
		return posting.Input{}, "invalid type"
	}
	in := posting.Input{
		AccountID:   accountID,
		Amount:      amount,
		Type:        typ,
		Date:        req.Date,
		Description: req.Description,
		Reference:   req.Reference,
	}
	if req.ProjectID != nil {
		pid, err := uuid.Parse(*req.ProjectID)
		if err != nil {
			return posting.Input{}, "invalid project_id"
		}
		in.ProjectID = &pid
	}
	return in, ""
}

// listTransactions handles GET /v1/transactions?month=&year=.
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	month, err := strconv.Atoi(q.Get("month"))
	if err != nil {
		badRequest(w, "month is required")
		return
	}
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		badRequest(w, "year is required")
		return
	}
	p, err := ledger.NewPeriod(month, year)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	txs, err := s.deps.Posting.List(r.Context(), p)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	toJSON(w, http.StatusOK, map[string]any{"transactions": out})
}
