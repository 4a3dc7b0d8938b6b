package httpapi

import (
	"net/http"

	"mopesa.org/internal/directory"
)

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req directory.RegisterInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := a.dir.Register(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	a.audit(r.Context(), "user.register", map[string]string{
		"user_id":         res.User.ID,
		"main_account_id": res.MainAccountID,
	})

	w.Header().Set("Location", "/v1/accounts/"+res.MainAccountID+"/balance")
	writeJSON(w, http.StatusCreated, res)
}

func (a *API) handleMerchants(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req directory.OnboardMerchantInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := a.dir.OnboardMerchant(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	a.audit(r.Context(), "merchant.onboard", map[string]string{
		"user_id":    res.UserID,
		"account_id": res.AccountID,
		"category":   res.CategoryCode,
	})

	writeJSON(w, http.StatusCreated, res)
}
