package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"go.uber.org/zap"

	"mopesa.org/internal/account"
	"mopesa.org/internal/directory"
	"mopesa.org/internal/history"
	"mopesa.org/internal/ledger"
	"mopesa.org/internal/money"
	"mopesa.org/internal/transfer"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	l := ledger.NewInMemory()
	dir := directory.NewInMemory(l)

	dir.AddAgent("AGENT001", "Kigali Central Agent")
	dir.AddCategory("GROCERY", "Groceries")

	agent, err := dir.ActiveAgentByCode(context.Background(), "AGENT001")
	if err != nil {
		t.Fatalf("agent lookup: %v", err)
	}
	sink := l.AddAccount("", ledger.TypeSystemCash)
	if _, err := l.ApplyPostings(context.Background(), ledger.ApplyInput{
		Type: ledger.TxFloatIssue,
		Postings: []ledger.Posting{
			{AccountID: sink.ID, Amount: money.FromInt(-10_000_000)},
			{AccountID: agent.FloatAccountID, Amount: money.FromInt(10_000_000)},
		},
	}); err != nil {
		t.Fatalf("fund float: %v", err)
	}

	log := zap.NewNop()
	api := New(
		account.NewService(l, l),
		transfer.NewService(l, l, dir, nil, nil, log),
		directory.NewService(dir, l, nil, log),
		history.NewService(l, l),
		ReadyProbe{},
		log,
		"test",
	)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

func (c *apiClient) register(phone, name string) (userID, mainAccountID string) {
	c.t.Helper()
	resp := c.post("/v1/users/register", map[string]any{
		"phoneNumber": phone,
		"fullName":    name,
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("unexpected register status: %d", resp.StatusCode)
	}
	payload := decode[map[string]any](c.t, resp)
	user := payload["user"].(map[string]any)
	return user["id"].(string), payload["mainAccountId"].(string)
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func asUser(id string) map[string]string {
	return map[string]string{"X-User-Id": id}
}

func TestAPIWalletFlow(t *testing.T) {
	api := newTestAPI(t)

	aliceID, aliceMain := api.register("0788111222", "Alice Uwimana")
	bobID, bobMain := api.register("0788333444", "Bob Mugisha")

	// Agent deposits cash into Alice's wallet, idempotently.
	headers := map[string]string{"Idempotency-Key": "dep-1"}
	req := map[string]any{
		"agentCode":       "AGENT001",
		"userPhoneNumber": "078 811 1222",
		"amount":          5000,
	}
	resp := api.post("/v1/transactions/cash-in", req, headers)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected cash-in status: %d", resp.StatusCode)
	}
	if resp.Header.Get("Idempotency-Key") != "dep-1" {
		t.Fatalf("missing idempotency header echo")
	}
	dep := decode[map[string]any](t, resp)
	if dep["newBalance"].(float64) != 5000 {
		t.Fatalf("unexpected balance after cash-in: %v", dep["newBalance"])
	}

	// Replaying the deposit returns the same transaction, no double credit.
	resp = api.post("/v1/transactions/cash-in", req, headers)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected replay status: %d", resp.StatusCode)
	}
	dep2 := decode[map[string]any](t, resp)
	if dep2["transactionId"] != dep["transactionId"] {
		t.Fatalf("replay returned different transaction id")
	}

	// Alice sends Bob 1000.
	resp = api.post("/v1/transactions/p2p", map[string]any{
		"toPhoneNumber": "0788333444",
		"amount":        1000,
	}, asUser(aliceID))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected p2p status: %d", resp.StatusCode)
	}

	resp = api.get("/v1/accounts/"+aliceMain+"/balance", nil, asUser(aliceID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected balance status: %d", resp.StatusCode)
	}
	balA := decode[map[string]any](t, resp)
	if balA["balance"].(float64) != 4000 {
		t.Fatalf("unexpected balance for Alice: %v", balA["balance"])
	}

	resp = api.get("/v1/accounts/"+bobMain+"/balance", nil, asUser(bobID))
	balB := decode[map[string]any](t, resp)
	if balB["balance"].(float64) != 1000 {
		t.Fatalf("unexpected balance for Bob: %v", balB["balance"])
	}

	// A transfer beyond the balance changes nothing.
	resp = api.post("/v1/transactions/p2p", map[string]any{
		"toPhoneNumber": "0788333444",
		"amount":        1000000,
	}, asUser(aliceID))
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	resp = api.get("/v1/accounts/"+aliceMain+"/balance", nil, asUser(aliceID))
	balA = decode[map[string]any](t, resp)
	if balA["balance"].(float64) != 4000 {
		t.Fatalf("failed transfer moved money: %v", balA["balance"])
	}

	// Statement shows the deposit and the transfer.
	resp = api.get("/v1/transactions/history", url.Values{"accountId": []string{aliceMain}}, asUser(aliceID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected history status: %d", resp.StatusCode)
	}
	stmt := decode[map[string]any](t, resp)
	if stmt["count"].(float64) != 2 {
		t.Fatalf("unexpected statement count: %v", stmt["count"])
	}
}

func TestAPIPocketLifecycle(t *testing.T) {
	api := newTestAPI(t)

	aliceID, aliceMain := api.register("0788111222", "Alice Uwimana")
	resp := api.post("/v1/transactions/cash-in", map[string]any{
		"agentCode":       "AGENT001",
		"userPhoneNumber": "0788111222",
		"amount":          3000,
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected cash-in status: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.post("/v1/accounts/pockets", map[string]any{"type": "SAVINGS"}, asUser(aliceID))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected pocket status: %d", resp.StatusCode)
	}
	pocket := decode[map[string]any](t, resp)
	pocketID := pocket["id"].(string)

	// Second pocket of the same type is rejected.
	resp = api.post("/v1/accounts/pockets", map[string]any{"type": "SAVINGS"}, asUser(aliceID))
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.post("/v1/transactions/pocket-transfer", map[string]any{
		"fromAccountId": aliceMain,
		"toAccountId":   pocketID,
		"amount":        1200,
	}, asUser(aliceID))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected pocket-transfer status: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.get("/v1/accounts", nil, asUser(aliceID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected list status: %d", resp.StatusCode)
	}
	list := decode[map[string]any](t, resp)
	if list["count"].(float64) != 2 {
		t.Fatalf("expected 2 accounts, got %v", list["count"])
	}
}

func TestAPIMerchantFlow(t *testing.T) {
	api := newTestAPI(t)

	aliceID, _ := api.register("0788111222", "Alice Uwimana")
	resp := api.post("/v1/transactions/cash-in", map[string]any{
		"agentCode":       "AGENT001",
		"userPhoneNumber": "0788111222",
		"amount":          5000,
	}, nil)
	resp.Body.Close()

	resp = api.post("/v1/merchants", map[string]any{
		"phoneNumber":  "0788999000",
		"businessName": "Duka Grocery",
		"categoryCode": "GROCERY",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected merchant status: %d", resp.StatusCode)
	}
	merchant := decode[map[string]any](t, resp)
	merchantAccount := merchant["accountId"].(string)

	resp = api.post("/v1/transactions/merchant", map[string]any{
		"merchantAccountId": merchantAccount,
		"amount":            2500,
	}, asUser(aliceID))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected payment status: %d", resp.StatusCode)
	}
	pay := decode[map[string]any](t, resp)
	if pay["category"] != "GROCERY" {
		t.Fatalf("unexpected category: %v", pay["category"])
	}
}

func TestAPIRequiresIdentity(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/v1/transactions/p2p", map[string]any{
		"toPhoneNumber": "0788333444",
		"amount":        100,
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	var errBody map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&errBody); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if errBody["error"] == "" {
		t.Fatalf("expected error message")
	}
}

func TestAPIRegisterValidation(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/v1/users/register", map[string]any{
		"phoneNumber": "123",
		"fullName":    "Too Short",
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	api.register("0788111222", "Alice Uwimana")
	resp = api.post("/v1/users/register", map[string]any{
		"phoneNumber": "078 811 1222",
		"fullName":    "Alice Again",
	}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate phone, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAPIUnknownAgent(t *testing.T) {
	api := newTestAPI(t)
	api.register("0788111222", "Alice Uwimana")

	resp := api.post("/v1/transactions/cash-in", map[string]any{
		"agentCode":       "NOPE",
		"userPhoneNumber": "0788111222",
		"amount":          1000,
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
