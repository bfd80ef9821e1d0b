package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openalpha/cdp-chain/api/types"
)

// AccountHandler handles ledger balance HTTP requests
type AccountHandler struct {
	service types.AccountService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(service types.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// Mount registers the account routes under r
func (h *AccountHandler) Mount(r chi.Router) {
	r.Get("/accounts/{address}", h.getBalances)
	r.Post("/accounts/fund", h.fund)
}

// getBalances handles GET /v1/accounts/{address}
func (h *AccountHandler) getBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.service.GetBalances(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

// fund handles POST /v1/accounts/fund
func (h *AccountHandler) fund(w http.ResponseWriter, r *http.Request) {
	var req types.FundRequest
	caller, ok := decodeAs(w, r, &req)
	if !ok {
		return
	}
	req.Authority = caller
	balances, err := h.service.Fund(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balances)
}
