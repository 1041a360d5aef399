package httpapi

import (
	"net/http"

	"github.com/tinoosan/firmledger/internal/dictionary"
)

// getDictionary handles GET /v1/dictionary.
func (s *Server) getDictionary(w http.ResponseWriter, r *http.Request) {
	toJSON(w, http.StatusOK, struct {
		TransactionTypes  []dictionary.Entry `json:"transaction_types"`
		ExpenseCategories []dictionary.Entry `json:"expense_categories"`
	}{
		TransactionTypes:  dictionary.TransactionTypes(),
		ExpenseCategories: dictionary.ExpenseCategories(),
	})
}
