package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openalpha/cdp-chain/api/types"
)

const defaultListLimit = 100

// TroveHandler handles trove and liquidation HTTP requests
type TroveHandler struct {
	service types.TroveService
}

// NewTroveHandler creates a new trove handler
func NewTroveHandler(service types.TroveService) *TroveHandler {
	return &TroveHandler{service: service}
}

// Mount registers the trove routes under r
func (h *TroveHandler) Mount(r chi.Router) {
	r.Route("/troves", func(r chi.Router) {
		r.Get("/", h.listTroves)
		r.Post("/", h.openTrove)
		r.Get("/at-risk", h.listAtRisk)

		r.Route("/{troveID}", func(r chi.Router) {
			r.Get("/", h.getTrove)
			r.Get("/health", h.getHealth)
			r.Post("/increase", h.increaseTrove)
			r.Post("/collateral", h.addCollateral)
			r.Post("/repay", h.repay)
			r.Post("/withdraw", h.withdrawCollateral)
			r.Post("/redeem", h.redeem)
			r.Post("/close", h.closeTrove)
			r.Post("/receive", h.receiveTrove)
			r.Post("/liquidate", h.liquidate)
		})
	})
	r.Get("/liquidations", h.listLiquidations)
}

// listTroves handles GET /v1/troves
func (h *TroveHandler) listTroves(w http.ResponseWriter, r *http.Request) {
	troves, err := h.service.ListTroves(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"troves": troves,
		"total":  len(troves),
	})
}

// openTrove handles POST /v1/troves
func (h *TroveHandler) openTrove(w http.ResponseWriter, r *http.Request) {
	var req types.OpenTroveRequest
	caller, ok := decodeAs(w, r, &req)
	if !ok {
		return
	}
	req.Owner = caller
	trove, err := h.service.OpenTrove(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"trove": trove})
}

// getTrove handles GET /v1/troves/{troveID}
func (h *TroveHandler) getTrove(w http.ResponseWriter, r *http.Request) {
	trove, err := h.service.GetTrove(r.Context(), chi.URLParam(r, "troveID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trove": trove})
}

// getHealth handles GET /v1/troves/{troveID}/health
func (h *TroveHandler) getHealth(w http.ResponseWriter, r *http.Request) {
	health, err := h.service.GetTroveHealth(r.Context(), chi.URLParam(r, "troveID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"health": health})
}

// listAtRisk handles GET /v1/troves/at-risk?limit=N
func (h *TroveHandler) listAtRisk(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, defaultListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_limit", err.Error())
		return
	}
	entries, err := h.service.ListAtRisk(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"troves": entries,
		"total":  len(entries),
	})
}

// increaseTrove handles POST /v1/troves/{troveID}/increase
func (h *TroveHandler) increaseTrove(w http.ResponseWriter, r *http.Request) {
	var req types.IncreaseTroveRequest
	caller, ok := decodeAs(w, r, &req)
	if !ok {
		return
	}
	req.Owner = caller
	trove, err := h.service.IncreaseTrove(r.Context(), chi.URLParam(r, "troveID"), &req)
	h.writeTrove(w, trove, err)
}

// addCollateral handles POST /v1/troves/{troveID}/collateral
func (h *TroveHandler) addCollateral(w http.ResponseWriter, r *http.Request) {
	var req types.AmountRequest
	caller, ok := decodeAs(w, r, &req)
	if !ok {
		return
	}
	req.Caller = caller
	trove, err := h.service.AddCollateral(r.Context(), chi.URLParam(r, "troveID"), &req)
	h.writeTrove(w, trove, err)
}

// repay handles POST /v1/troves/{troveID}/repay
func (h *TroveHandler) repay(w http.ResponseWriter, r *http.Request) {
	var req types.AmountRequest
	caller, ok := decodeAs(w, r, &req)
	if !ok {
		return
	}
	req.Caller = caller
	trove, err := h.service.Repay(r.Context(), chi.URLParam(r, "troveID"), &req)
	h.writeTrove(w, trove, err)
}

// withdrawCollateral handles POST /v1/troves/{troveID}/withdraw
func (h *TroveHandler) withdrawCollateral(w http.ResponseWriter, r *http.Request) {
	var req types.AmountRequest
	caller, ok := decodeAs(w, r, &req)
	if !ok {
		return
	}
	req.Caller = caller
	trove, err := h.service.WithdrawCollateral(r.Context(), chi.URLParam(r, "troveID"), &req)
	h.writeTrove(w, trove, err)
}

// redeem handles POST /v1/troves/{troveID}/redeem
func (h *TroveHandler) redeem(w http.ResponseWriter, r *http.Request) {
	var req types.RedeemRequest
	caller, ok := decodeAs(w, r, &req)
	if !ok {
		return
	}
	req.Authority = caller
	trove, err := h.service.Redeem(r.Context(), chi.URLParam(r, "troveID"), &req)
	h.writeTrove(w, trove, err)
}

// receiveTrove handles POST /v1/troves/{troveID}/receive
func (h *TroveHandler) receiveTrove(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOf(w, r)
	if !ok {
		return
	}
	req := types.AuthorityRequest{Authority: caller}
	trove, err := h.service.ReceiveTrove(r.Context(), chi.URLParam(r, "troveID"), &req)
	h.writeTrove(w, trove, err)
}

// closeTrove handles POST /v1/troves/{troveID}/close
func (h *TroveHandler) closeTrove(w http.ResponseWriter, r *http.Request) {
	var req types.CloseTroveRequest
	caller, ok := decodeAs(w, r, &req)
	if !ok {
		return
	}
	req.Owner = caller
	resp, err := h.service.CloseTrove(r.Context(), chi.URLParam(r, "troveID"), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// liquidate handles POST /v1/troves/{troveID}/liquidate
func (h *TroveHandler) liquidate(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOf(w, r)
	if !ok {
		return
	}
	req := types.AuthorityRequest{Authority: caller}
	liquidation, err := h.service.Liquidate(r.Context(), chi.URLParam(r, "troveID"), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"liquidation": liquidation})
}

// listLiquidations handles GET /v1/liquidations?limit=N
func (h *TroveHandler) listLiquidations(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, defaultListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_limit", err.Error())
		return
	}
	liquidations, err := h.service.ListLiquidations(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	stats, err := h.service.GetLiquidationStats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"liquidations": liquidations,
		"total":        len(liquidations),
		"stats":        stats,
	})
}

func (h *TroveHandler) writeTrove(w http.ResponseWriter, trove *types.Trove, err error) {
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trove": trove})
}
