package httpapi

import (
	"net/http"
	"strings"

	"mopesa.org/internal/transfer"
)

func (a *API) handleCashIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req transfer.CashInInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.AgentCode) == "" || strings.TrimSpace(req.UserPhoneNumber) == "" {
		writeError(w, r, http.StatusBadRequest, "agentCode and userPhoneNumber are required")
		return
	}
	req.IdempotencyKey = idempotencyKey(w, r, req.IdempotencyKey)

	res, err := a.transfers.CashIn(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (a *API) handleP2P(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	userID := callerID(r)
	if userID == "" {
		writeError(w, r, http.StatusUnauthorized, "missing X-User-Id")
		return
	}
	var req transfer.P2PInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.ToPhoneNumber) == "" {
		writeError(w, r, http.StatusBadRequest, "toPhoneNumber is required")
		return
	}
	req.FromUserID = userID
	req.IdempotencyKey = idempotencyKey(w, r, req.IdempotencyKey)

	res, err := a.transfers.P2P(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (a *API) handlePocketTransfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	userID := callerID(r)
	if userID == "" {
		writeError(w, r, http.StatusUnauthorized, "missing X-User-Id")
		return
	}
	var req transfer.PocketTransferInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.FromAccountID == "" || req.ToAccountID == "" {
		writeError(w, r, http.StatusBadRequest, "fromAccountId and toAccountId are required")
		return
	}
	req.FromUserID = userID
	req.IdempotencyKey = idempotencyKey(w, r, req.IdempotencyKey)

	res, err := a.transfers.PocketTransfer(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (a *API) handleMerchantPay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	userID := callerID(r)
	if userID == "" {
		writeError(w, r, http.StatusUnauthorized, "missing X-User-Id")
		return
	}
	var req transfer.MerchantPayInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.MerchantAccountID == "" {
		writeError(w, r, http.StatusBadRequest, "merchantAccountId is required")
		return
	}
	req.FromUserID = userID
	req.IdempotencyKey = idempotencyKey(w, r, req.IdempotencyKey)

	res, err := a.transfers.MerchantPay(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// idempotencyKey merges the Idempotency-Key header with the body field and
// echoes the effective key back to the client.
func idempotencyKey(w http.ResponseWriter, r *http.Request, bodyKey string) string {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key == "" {
		key = strings.TrimSpace(bodyKey)
	}
	if key != "" {
		w.Header().Set("Idempotency-Key", key)
	}
	return key
}
