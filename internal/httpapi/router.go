// Package httpapi exposes the ledger services over HTTP. Handlers stay thin
// and delegate every business rule to the service layer.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/tinoosan/firmledger/internal/service/account"
	"github.com/tinoosan/firmledger/internal/service/partner"
	"github.com/tinoosan/firmledger/internal/service/posting"
	"github.com/tinoosan/firmledger/internal/service/report"
	"github.com/tinoosan/firmledger/internal/service/settlement"
	"github.com/tinoosan/firmledger/internal/service/statement"
)

// Deps are the services the API delegates to.
type Deps struct {
	Posting     posting.Service
	Accounts    account.Service
	Reports     report.Service
	Partners    partner.Service
	Settlements settlement.Service
	Statements  statement.Service
	// Ready reports whether the backing store is reachable. Nil means always ready.
	Ready func(ctx context.Context) error
	// PostingRetries is the number of extra attempts after a version conflict.
	PostingRetries int
}

// Server wires handlers and middleware using Chi.
type Server struct {
	deps     Deps
	validate *validator.Validate
	log      *slog.Logger
	rt       *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
func New(deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)

	s := &Server{
		deps:     deps,
		validate: newValidator(),
		log:      logger,
		rt:       r,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

func (s *Server) routes() {
	// Transactions
	s.rt.Post("/v1/transactions", s.postTransaction)
	s.rt.Get("/v1/transactions", s.listTransactions)
	// Accounts
	s.rt.Post("/v1/accounts", s.postAccount)
	s.rt.Get("/v1/accounts", s.listAccounts)
	s.rt.Get("/v1/accounts/{id}", s.getAccount)
	s.rt.Delete("/v1/accounts/{id}", s.deactivateAccount)
	s.rt.Get("/v1/accounts/{id}/verify", s.verifyAccount)
	// Periods
	s.rt.Route("/v1/periods/{year}/{month}", func(r chi.Router) {
		r.Use(periodParams)
		r.Get("/totals", s.periodTotals)
		r.Get("/net-income", s.netIncome)
		r.Get("/report", s.monthlyReport)
		r.Get("/partner-incomes", s.partnerIncomes)
		r.Get("/partners/{id}/preview", s.settlementPreview)
		r.Post("/settlements", s.processSettlements)
		r.Get("/settlements", s.listSettlements)
	})
	// Dictionary
	s.rt.Get("/v1/dictionary", s.getDictionary)
	// Health and metrics (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Handle("/metrics", metricsHandler())
}
