package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"
)

// Exercises a running API end to end: two fresh users, an agent deposit,
// a P2P transfer, then a conservation check over the resulting balances.
func main() {
	base := os.Getenv("MOPESA_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	agent := os.Getenv("MOPESA_SMOKE_AGENT")
	if agent == "" {
		agent = "AGENT001"
	}

	client := &http.Client{Timeout: 5 * time.Second}
	suffix := rand.New(rand.NewSource(time.Now().UnixNano())).Intn(1_000_000)
	phoneA := fmt.Sprintf("0788%06d", suffix)
	phoneB := fmt.Sprintf("0789%06d", suffix)

	userA, mainA := register(client, base, phoneA, "Smoke User A")
	userB, mainB := register(client, base, phoneB, "Smoke User B")

	post(client, base+"/v1/transactions/cash-in", "", map[string]any{
		"agentCode":       agent,
		"userPhoneNumber": phoneA,
		"amount":          1000,
		"idempotencyKey":  fmt.Sprintf("smoke-dep-%d", suffix),
	})
	post(client, base+"/v1/transactions/p2p", userA, map[string]any{
		"toPhoneNumber": phoneB,
		"amount":        420,
	})

	balA := balance(client, base, userA, mainA)
	balB := balance(client, base, userB, mainB)

	if balA+balB != 1000 {
		log.Fatalf("conservation failed: %v + %v != 1000", balA, balB)
	}
	if balA != 580 || balB != 420 {
		log.Fatalf("unexpected balances: A=%v B=%v", balA, balB)
	}

	fmt.Printf("wallet smoke test passed: accounts=%s,%s\n", mainA, mainB)
}

func register(client *http.Client, base, phone, name string) (userID, mainAccountID string) {
	body := post(client, base+"/v1/users/register", "", map[string]any{
		"phoneNumber": phone,
		"fullName":    name,
	})
	var res struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		MainAccountID string `json:"mainAccountId"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		log.Fatalf("decode register response: %v", err)
	}
	return res.User.ID, res.MainAccountID
}

func post(client *http.Client, url, userID string, payload map[string]any) []byte {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("marshal payload: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		log.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	if resp.StatusCode >= 300 {
		log.Fatalf("POST %s: status %d: %s", url, resp.StatusCode, buf.String())
	}
	return buf.Bytes()
}

func balance(client *http.Client, base, userID, accountID string) float64 {
	req, err := http.NewRequest(http.MethodGet, base+"/v1/accounts/"+accountID+"/balance", nil)
	if err != nil {
		log.Fatalf("new request: %v", err)
	}
	req.Header.Set("X-User-Id", userID)
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("GET balance: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("GET balance: status %d", resp.StatusCode)
	}
	var res struct {
		Balance float64 `json:"balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		log.Fatalf("decode balance: %v", err)
	}
	return res.Balance
}
