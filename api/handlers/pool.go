package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openalpha/cdp-chain/api/types"
)

// PoolHandler handles stability pool HTTP requests
type PoolHandler struct {
	service types.PoolService
}

// NewPoolHandler creates a new pool handler
func NewPoolHandler(service types.PoolService) *PoolHandler {
	return &PoolHandler{service: service}
}

// Mount registers the pool routes under r
func (h *PoolHandler) Mount(r chi.Router) {
	r.Route("/pool", func(r chi.Router) {
		r.Get("/", h.getPoolState)
		r.Post("/deposit", h.deposit)
		r.Post("/withdraw", h.withdraw)
		r.Post("/rewards", h.grantReward)

		r.Route("/entries/{depositor}", func(r chi.Router) {
			r.Get("/", h.getEntry)
			r.Delete("/", h.closeEntry)
			r.Post("/claim", h.claimReward)
		})
	})
}

// getPoolState handles GET /v1/pool
func (h *PoolHandler) getPoolState(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.GetPoolState(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"pool": state})
}

// deposit handles POST /v1/pool/deposit
func (h *PoolHandler) deposit(w http.ResponseWriter, r *http.Request) {
	var req types.DepositRequest
	caller, ok := decodeAs(w, r, &req)
	if !ok {
		return
	}
	req.Depositor = caller
	entry, err := h.service.Deposit(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entry": entry})
}

// withdraw handles POST /v1/pool/withdraw
func (h *PoolHandler) withdraw(w http.ResponseWriter, r *http.Request) {
	var req types.WithdrawRequest
	caller, ok := decodeAs(w, r, &req)
	if !ok {
		return
	}
	req.Depositor = caller
	entry, err := h.service.WithdrawDeposit(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entry": entry})
}

// grantReward handles POST /v1/pool/rewards
func (h *PoolHandler) grantReward(w http.ResponseWriter, r *http.Request) {
	var req types.GrantRewardRequest
	caller, ok := decodeAs(w, r, &req)
	if !ok {
		return
	}
	req.Authority = caller
	entry, err := h.service.GrantReward(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entry": entry})
}

// getEntry handles GET /v1/pool/entries/{depositor}
func (h *PoolHandler) getEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.GetEntry(r.Context(), chi.URLParam(r, "depositor"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entry": entry})
}

// claimReward handles POST /v1/pool/entries/{depositor}/claim
func (h *PoolHandler) claimReward(w http.ResponseWriter, r *http.Request) {
	depositor, ok := h.ownEntry(w, r)
	if !ok {
		return
	}
	claimed, err := h.service.ClaimReward(r.Context(), depositor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"claimed": claimed})
}

// closeEntry handles DELETE /v1/pool/entries/{depositor}
func (h *PoolHandler) closeEntry(w http.ResponseWriter, r *http.Request) {
	depositor, ok := h.ownEntry(w, r)
	if !ok {
		return
	}
	if err := h.service.CloseEntry(r.Context(), depositor); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownEntry resolves the {depositor} path segment, which must be the caller
func (h *PoolHandler) ownEntry(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller, ok := callerOf(w, r)
	if !ok {
		return "", false
	}
	depositor := chi.URLParam(r, "depositor")
	if depositor != caller {
		writeError(w, http.StatusForbidden, "forbidden", "entries can only be changed by their depositor")
		return "", false
	}
	return depositor, true
}
