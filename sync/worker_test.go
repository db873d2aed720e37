package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vaspnet/go-offchain/core"
	"github.com/vaspnet/go-offchain/jws"
	"github.com/vaspnet/go-offchain/store/memory"
)

type fakeSender struct {
	sent    []core.Command
	failIDs map[string]bool
}

func (s *fakeSender) SendCommand(_ context.Context, cmd core.Command, _ jws.SignFn) (core.CommandResponseObject, error) {
	typed, ok := cmd.(core.FundsPullPreApprovalCommand)
	if ok && s.failIDs[typed.FundPullPreApproval.FundsPullPreApprovalID] {
		return core.CommandResponseObject{}, errors.New("counterparty unreachable")
	}
	s.sent = append(s.sent, cmd)
	return core.ReplySuccess(typed.CorrelationID), nil
}

func noopSign([]byte) ([]byte, error) { return []byte("sig"), nil }

func unsentRecord(id string, role core.Role, at time.Time) core.PreApprovalRecord {
	return core.PreApprovalRecord{
		Object: core.FundPullPreApprovalObject{
			FundsPullPreApprovalID: id,
			Address:                "payer-id",
			BillerAddress:          "biller-id",
			Status:                 core.FundPullPreApprovalStatusValid,
			Scope: core.FundPullPreApprovalScope{
				Type:                core.FundPullPreApprovalTypeConsent,
				ExpirationTimestamp: 1900000000,
			},
		},
		Role:         role,
		OffchainSent: false,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
}

func TestSyncOnce_DeliversAndMarksSent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPreApprovalStore()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := store.Create(ctx, unsentRecord("fppa-1", core.RolePayer, base)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, unsentRecord("fppa-2", core.RolePayee, base.Add(time.Minute))); err != nil {
		t.Fatalf("create: %v", err)
	}

	sender := &fakeSender{}
	worker, err := NewWorker(Config{Store: store, Sender: sender, Sign: noopSign})
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}

	sent, err := worker.SyncOnce(ctx)
	if err != nil {
		t.Fatalf("sync once: %v", err)
	}
	if sent != 2 {
		t.Fatalf("expected 2 deliveries, got %d", sent)
	}

	payerCmd := sender.sent[0].(core.FundsPullPreApprovalCommand)
	if payerCmd.MyActorAddress != "payer-id" {
		t.Fatalf("payer record must send as the payer actor, got %q", payerCmd.MyActorAddress)
	}
	if payerCmd.Inbound {
		t.Fatalf("outbound command must not carry the inbound flag")
	}
	if payerCmd.CorrelationID == "" {
		t.Fatalf("expected a fresh correlation id")
	}
	payeeCmd := sender.sent[1].(core.FundsPullPreApprovalCommand)
	if payeeCmd.MyActorAddress != "biller-id" {
		t.Fatalf("payee record must send as the biller actor, got %q", payeeCmd.MyActorAddress)
	}

	unsent, err := store.ListUnsent(ctx)
	if err != nil {
		t.Fatalf("list unsent: %v", err)
	}
	if len(unsent) != 0 {
		t.Fatalf("expected drained queue, got %+v", unsent)
	}

	sent, err = worker.SyncOnce(ctx)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if sent != 0 {
		t.Fatalf("second pass must be a no-op, sent %d", sent)
	}
}

func TestSyncOnce_FailedDeliveryStaysQueued(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPreApprovalStore()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := store.Create(ctx, unsentRecord("fppa-3", core.RolePayer, base)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, unsentRecord("fppa-4", core.RolePayer, base.Add(time.Minute))); err != nil {
		t.Fatalf("create: %v", err)
	}

	sender := &fakeSender{failIDs: map[string]bool{"fppa-3": true}}
	worker, err := NewWorker(Config{Store: store, Sender: sender, Sign: noopSign})
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}

	sent, err := worker.SyncOnce(ctx)
	if err != nil {
		t.Fatalf("sync once: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected 1 delivery, got %d", sent)
	}

	unsent, err := store.ListUnsent(ctx)
	if err != nil {
		t.Fatalf("list unsent: %v", err)
	}
	if len(unsent) != 1 || unsent[0].ID() != "fppa-3" {
		t.Fatalf("failed record must stay queued, got %+v", unsent)
	}

	// The next pass retries the failure.
	sender.failIDs = nil
	sent, err = worker.SyncOnce(ctx)
	if err != nil {
		t.Fatalf("retry pass: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected retry delivery, got %d", sent)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	store := memory.NewPreApprovalStore()
	worker, err := NewWorker(Config{
		Store:    store,
		Sender:   &fakeSender{},
		Sign:     noopSign,
		Interval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := worker.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestNewWorker_RequiresCollaborators(t *testing.T) {
	if _, err := NewWorker(Config{Sender: &fakeSender{}, Sign: noopSign}); err == nil {
		t.Fatalf("expected error without store")
	}
	if _, err := NewWorker(Config{Store: memory.NewPreApprovalStore(), Sign: noopSign}); err == nil {
		t.Fatalf("expected error without sender")
	}
	if _, err := NewWorker(Config{Store: memory.NewPreApprovalStore(), Sender: &fakeSender{}}); err == nil {
		t.Fatalf("expected error without sign function")
	}
}
