package handlers

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"

	"cosmossdk.io/errors"

	"github.com/openalpha/cdp-chain/api/middleware"
	"github.com/openalpha/cdp-chain/pkg/ledger"
	pooltypes "github.com/openalpha/cdp-chain/x/stabilitypool/types"
	trovetypes "github.com/openalpha/cdp-chain/x/trove/types"
)

const maxBodyBytes = 1 << 20 // 1 MiB

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

// statusByError maps registered module errors to HTTP statuses. Registered
// errors not listed here are rejected requests and map to 422.
var statusByError = []struct {
	status int
	errs   []error
}{
	{http.StatusNotFound, []error{
		trovetypes.ErrNotInitialized,
		trovetypes.ErrLiquidationNotFound,
		pooltypes.ErrEntryNotFound,
	}},
	{http.StatusForbidden, []error{
		trovetypes.ErrOnlyOwner,
		trovetypes.ErrUnauthorized,
		pooltypes.ErrUnauthorized,
		ledger.ErrUnauthorized,
	}},
	{http.StatusBadRequest, []error{
		trovetypes.ErrInvalidAmount,
		trovetypes.ErrInvalidAddress,
		pooltypes.ErrInvalidAmount,
		pooltypes.ErrInvalidAddress,
		ledger.ErrInvalidAmount,
	}},
	{http.StatusConflict, []error{
		trovetypes.ErrAlreadyInitialized,
		trovetypes.ErrAlreadyLiquidated,
		trovetypes.ErrNotReceived,
		trovetypes.ErrExpectedAmountMismatch,
		pooltypes.ErrEntryNotEmpty,
	}},
	{http.StatusServiceUnavailable, []error{
		trovetypes.ErrOracleUnavailable,
		trovetypes.ErrStalePrice,
	}},
}

// writeServiceError writes err with a status derived from its registered error.
// The error code is "<codespace>_<code>" so clients can match on it.
func writeServiceError(w http.ResponseWriter, err error) {
	var registered *errors.Error
	if !stderrors.As(err, &registered) {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	code := fmt.Sprintf("%s_%d", registered.Codespace(), registered.ABCICode())
	for _, group := range statusByError {
		if errors.IsOf(err, group.errs...) {
			writeError(w, group.status, code, err.Error())
			return
		}
	}
	writeError(w, http.StatusUnprocessableEntity, code, err.Error())
}

// decodeBody decodes a JSON request body into dst, writing a 400 on failure
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	return true
}

// queryLimit parses the "limit" query parameter, defaulting to def
func queryLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return limit, nil
}

// callerOf returns the authenticated caller, writing a 401 when there is none
func callerOf(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing caller identity")
	}
	return caller, ok
}

// decodeAs decodes the body into dst after resolving the caller
func decodeAs(w http.ResponseWriter, r *http.Request, dst interface{}) (string, bool) {
	caller, ok := callerOf(w, r)
	if !ok {
		return "", false
	}
	return caller, decodeBody(w, r, dst)
}
