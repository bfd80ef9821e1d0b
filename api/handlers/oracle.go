package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openalpha/cdp-chain/api/types"
)

// OracleHandler handles price feed HTTP requests
type OracleHandler struct {
	service types.OracleService
}

// NewOracleHandler creates a new oracle handler
func NewOracleHandler(service types.OracleService) *OracleHandler {
	return &OracleHandler{service: service}
}

// Mount registers the oracle routes under r
func (h *OracleHandler) Mount(r chi.Router) {
	r.Get("/price", h.getPrice)
	r.Post("/price", h.publishPrice)
}

// getPrice handles GET /v1/price
func (h *OracleHandler) getPrice(w http.ResponseWriter, r *http.Request) {
	price, err := h.service.GetPrice(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"price": price})
}

// publishPrice handles POST /v1/price
func (h *OracleHandler) publishPrice(w http.ResponseWriter, r *http.Request) {
	var req types.PublishPriceRequest
	caller, ok := decodeAs(w, r, &req)
	if !ok {
		return
	}
	req.Authority = caller
	price, err := h.service.PublishPrice(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"price": price})
}
