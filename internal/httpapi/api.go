// Package httpapi is the HTTP surface of the wallet. Handlers validate and
// translate; the services own the semantics and every handler error maps to
// a stable status code so clients can branch on it.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"mopesa.org/internal/account"
	"mopesa.org/internal/audit"
	"mopesa.org/internal/directory"
	"mopesa.org/internal/history"
	"mopesa.org/internal/ledger"
	"mopesa.org/internal/obs"
	"mopesa.org/internal/transfer"
)

// ReadyProbe reports whether the backing store can serve traffic.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

type API struct {
	mux        *http.ServeMux
	accounts   *account.Service
	transfers  *transfer.Service
	dir        *directory.Service
	statements *history.Service
	readyProbe ReadyProbe
	log        *zap.Logger
	version    string
}

func New(
	accounts *account.Service,
	transfers *transfer.Service,
	dir *directory.Service,
	statements *history.Service,
	rp ReadyProbe,
	log *zap.Logger,
	version string,
) *API {
	a := &API{
		mux:        http.NewServeMux(),
		accounts:   accounts,
		transfers:  transfers,
		dir:        dir,
		statements: statements,
		readyProbe: rp,
		log:        log,
		version:    version,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/users/register", a.handleRegister)
	a.mux.HandleFunc("/v1/merchants", a.handleMerchants)

	a.mux.HandleFunc("/v1/accounts", a.handleAccountsCollection)
	a.mux.HandleFunc("/v1/accounts/pockets", a.handlePockets)
	a.mux.HandleFunc("/v1/accounts/", a.handleAccountResource)

	a.mux.HandleFunc("/v1/transactions/history", a.handleHistory)
	a.mux.HandleFunc("/v1/transactions/cash-in", a.handleCashIn)
	a.mux.HandleFunc("/v1/transactions/p2p", a.handleP2P)
	a.mux.HandleFunc("/v1/transactions/pocket-transfer", a.handlePocketTransfer)
	a.mux.HandleFunc("/v1/transactions/merchant", a.handleMerchantPay)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler wires the full middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = obs.Instrument(h)
	h = Logging(a.log, h)
	h = RequestID(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, 50, 25)
	h = SecurityHeaders(h)
	return h
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "mopesa-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "mopesa-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func (a *API) audit(ctx context.Context, event string, fields map[string]string) {
	if a.log == nil {
		return
	}
	audit.Event(ctx, a.log, event, fields)
}

// --- helpers ---

// callerID reads the authenticated user from the gateway-set header.
// Verification happens upstream; an absent header is an unauthenticated
// request.
func callerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-Id"))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleServiceError maps domain errors onto HTTP status codes. 404 covers
// both missing and foreign resources, so ownership cannot be probed.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, directory.ErrInvalidInput),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrUnbalancedPostings),
		errors.Is(err, ledger.ErrTooFewPostings),
		errors.Is(err, history.ErrBadFilter):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, directory.ErrUserNotFound),
		errors.Is(err, directory.ErrAgentNotFound),
		errors.Is(err, directory.ErrCategoryNotFound),
		errors.Is(err, directory.ErrMerchantNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrDuplicatePocket),
		errors.Is(err, ledger.ErrSelfTransfer),
		errors.Is(err, directory.ErrPhoneTaken),
		errors.Is(err, directory.ErrMerchantExists),
		errors.Is(err, ledger.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrInsufficientBalance):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ledger.ErrUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
