package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                 "/",
		"/metrics":                         "/metrics",
		"/v1/accounts":                     "/v1/accounts",
		"/v1/accounts/pockets":             "/v1/accounts/pockets",
		"/v1/accounts/abc":                 "/v1/accounts/:id",
		"/v1/accounts/abc/balance":         "/v1/accounts/:id/balance",
		"/v1/accounts/abc/transactions":    "/v1/accounts/:id/transactions",
		"/v1/accounts/abc/extra":           "/v1/accounts/abc/extra",
		"/v1/transactions/p2p":             "/v1/transactions/p2p",
		"/v1/transactions/history?limit=5": "/v1/transactions/history",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
