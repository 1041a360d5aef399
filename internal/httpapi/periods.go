package httpapi

import (
	"context"
	"net/http"
	"strconv"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tinoosan/firmledger/internal/errs"
	"github.com/tinoosan/firmledger/internal/ledger"
)

type ctxKey string

const ctxKeyPeriod ctxKey = "period"

// periodParams parses {year}/{month} and stores the validated period in the request context.
func periodParams(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		year, err := strconv.Atoi(chi.URLParam(r, "year"))
		if err != nil {
			badRequest(w, "invalid year")
			return
		}
		month, err := strconv.Atoi(chi.URLParam(r, "month"))
		if err != nil {
			badRequest(w, "invalid month")
			return
		}
		p, err := ledger.NewPeriod(month, year)
		if err != nil {
			unprocessable(w, errs.Message(err), "validation_error")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyPeriod, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func periodFrom(r *http.Request) ledger.Period {
	p, _ := r.Context().Value(ctxKeyPeriod).(ledger.Period)
	return p
}

// periodTotals handles GET /v1/periods/{year}/{month}/totals.
func (s *Server) periodTotals(w http.ResponseWriter, r *http.Request) {
	t, err := s.deps.Reports.Totals(r.Context(), periodFrom(r))
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toTotalsResponse(t))
}

// netIncome handles GET /v1/periods/{year}/{month}/net-income.
func (s *Server) netIncome(w http.ResponseWriter, r *http.Request) {
	p := periodFrom(r)
	net, err := s.deps.Reports.NetIncome(r.Context(), p)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, map[string]any{"month": p.Month, "year": p.Year, "net_income": ledger.FormatAmount(net)})
}

// monthlyReport handles GET /v1/periods/{year}/{month}/report.
func (s *Server) monthlyReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.deps.Statements.Monthly(r.Context(), periodFrom(r))
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toReportResponse(rep))
}

// partnerIncomes handles GET /v1/periods/{year}/{month}/partner-incomes.
func (s *Server) partnerIncomes(w http.ResponseWriter, r *http.Request) {
	incomes, err := s.deps.Partners.Incomes(r.Context(), periodFrom(r))
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, map[string]any{"partners": toPartnerIncomeResponses(incomes)})
}

// settlementPreview handles GET /v1/periods/{year}/{month}/partners/{id}/preview.
func (s *Server) settlementPreview(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid partner id")
		return
	}
	p := periodFrom(r)
	inc, err := s.deps.Partners.Income(r.Context(), id, p)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, map[string]any{
		"partner_id":        id,
		"partner_name":      inc.PartnerName,
		"month":             p.Month,
		"year":              p.Year,
		"expected_income":   ledger.FormatAmount(inc.Expected),
		"actual_income":     ledger.FormatAmount(inc.Actual),
		"settlement_amount": ledger.FormatAmount(inc.Settlement),
		"projects_managed":  inc.ProjectsManaged,
	})
}

// processSettlements handles POST /v1/periods/{year}/{month}/settlements.
// Re-running it for a processed period returns 200 with nothing created.
func (s *Server) processSettlements(w http.ResponseWriter, r *http.Request) {
	p := periodFrom(r)
	res, err := s.deps.Settlements.Process(r.Context(), p)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	status := http.StatusOK
	if len(res.Created) > 0 {
		status = http.StatusCreated
	}
	toJSON(w, status, processSettlementsResponse{
		Month:   p.Month,
		Year:    p.Year,
		Created: toSettlementResponses(res.Created),
		Skipped: res.Skipped,
	})
}

// listSettlements handles GET /v1/periods/{year}/{month}/settlements.
func (s *Server) listSettlements(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Settlements.List(r.Context(), periodFrom(r))
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, map[string]any{"settlements": toSettlementResponses(list)})
}
