package audit

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestEventCarriesContext(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-123")
	ctx = WithUserID(ctx, "user-42")

	Event(ctx, log, "transfer.p2p", map[string]string{"transaction_id": "tx-1"})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["audit_event"] != "transfer.p2p" {
		t.Fatalf("unexpected event: %v", fields["audit_event"])
	}
	if fields["request_id"] != "req-123" {
		t.Fatalf("unexpected request id: %v", fields["request_id"])
	}
	if fields["user_id"] != "user-42" {
		t.Fatalf("unexpected user id: %v", fields["user_id"])
	}
	if fields["transaction_id"] != "tx-1" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func TestEventWithoutContextIdentifiers(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	Event(context.Background(), log, "transfer.cash_in", nil)

	fields := logs.All()[0].ContextMap()
	if _, present := fields["request_id"]; present {
		t.Fatal("request_id should be absent")
	}
	if _, present := fields["user_id"]; present {
		t.Fatal("user_id should be absent")
	}
}
