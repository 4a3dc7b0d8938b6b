package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"mopesa.org/internal/history"
	"mopesa.org/internal/ledger"
)

type createPocketRequest struct {
	Type string `json:"type"`
}

func (a *API) handleAccountsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listAccounts(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet)
	}
}

func (a *API) handlePockets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createPocket(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost)
	}
}

// handleAccountResource routes /v1/accounts/{id}/balance and
// /v1/accounts/{id}/transactions.
func (a *API) handleAccountResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/accounts/")
	if path == "" || strings.Count(path, "/") != 1 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	id, rest, _ := strings.Cut(path, "/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "account not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	switch rest {
	case "balance":
		a.getBalance(w, r, id)
	case "transactions":
		a.getHistory(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) listAccounts(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r)
	if userID == "" {
		writeError(w, r, http.StatusUnauthorized, "missing X-User-Id")
		return
	}
	accounts, err := a.accounts.ListWithBalances(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

func (a *API) createPocket(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r)
	if userID == "" {
		writeError(w, r, http.StatusUnauthorized, "missing X-User-Id")
		return
	}
	var req createPocketRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	t := ledger.AccountType(strings.ToUpper(strings.TrimSpace(req.Type)))
	if !ledger.IsPocket(t) {
		writeError(w, r, http.StatusBadRequest, "type must be SAVINGS or SCHOOL_FEES")
		return
	}

	acc, err := a.accounts.CreatePocket(r.Context(), userID, t)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	a.audit(r.Context(), "account.pocket.create", map[string]string{
		"account_id":   acc.ID,
		"account_type": string(acc.Type),
	})

	w.Header().Set("Location", "/v1/accounts/"+acc.ID+"/balance")
	writeJSON(w, http.StatusCreated, acc)
}

func (a *API) getBalance(w http.ResponseWriter, r *http.Request, id string) {
	userID := callerID(r)
	if userID == "" {
		writeError(w, r, http.StatusUnauthorized, "missing X-User-Id")
		return
	}
	bal, err := a.accounts.Balance(r.Context(), id, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bal)
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("accountId"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "accountId is required")
		return
	}
	a.getHistory(w, r, id)
}

func (a *API) getHistory(w http.ResponseWriter, r *http.Request, id string) {
	userID := callerID(r)
	if userID == "" {
		writeError(w, r, http.StatusUnauthorized, "missing X-User-Id")
		return
	}

	q := history.Query{
		AccountID: id,
		UserID:    userID,
		FromDate:  r.URL.Query().Get("fromDate"),
		ToDate:    r.URL.Query().Get("toDate"),
		Type:      r.URL.Query().Get("type"),
	}
	var err error
	if q.Limit, err = parseIntParam(r, "limit"); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if q.Offset, err = parseIntParam(r, "offset"); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := a.statements.Get(r.Context(), q)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func parseIntParam(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return v, nil
}
