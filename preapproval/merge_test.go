package preapproval

import (
	"context"
	"errors"
	"testing"

	"github.com/vaspnet/go-offchain/core"
)

var allStatuses = []core.FundPullPreApprovalStatus{
	core.FundPullPreApprovalStatusPending,
	core.FundPullPreApprovalStatusValid,
	core.FundPullPreApprovalStatusRejected,
	core.FundPullPreApprovalStatusClosed,
}

func TestMergeTable_CoversEveryCell(t *testing.T) {
	existingColumns := append([]core.FundPullPreApprovalStatus{statusAbsent}, allStatuses...)
	expected := len(existingColumns) * len(allStatuses) * 2
	if len(mergeTable) != expected {
		t.Fatalf("expected %d table cells, got %d", expected, len(mergeTable))
	}
	for _, role := range []core.Role{core.RolePayer, core.RolePayee} {
		for _, incoming := range allStatuses {
			for _, existing := range existingColumns {
				if _, ok := mergeTable[mergeKey{role: role, incoming: incoming, existing: existing}]; !ok {
					t.Fatalf("missing cell role=%s incoming=%s existing=%q", role, incoming, existing)
				}
			}
		}
	}
}

func TestMergeTable_PinnedCells(t *testing.T) {
	cases := []struct {
		role     core.Role
		incoming core.FundPullPreApprovalStatus
		existing core.FundPullPreApprovalStatus
		want     mergeOutcome
	}{
		{core.RolePayer, core.FundPullPreApprovalStatusPending, statusAbsent, outcomeCreate},
		{core.RolePayer, core.FundPullPreApprovalStatusPending, core.FundPullPreApprovalStatusPending, outcomeUpdate},
		{core.RolePayer, core.FundPullPreApprovalStatusValid, statusAbsent, outcomeInvalidStatus},
		{core.RolePayer, core.FundPullPreApprovalStatusRejected, statusAbsent, outcomeNotFound},
		{core.RolePayer, core.FundPullPreApprovalStatusClosed, statusAbsent, outcomeNotFound},
		{core.RolePayer, core.FundPullPreApprovalStatusClosed, core.FundPullPreApprovalStatusValid, outcomeUpdate},
		{core.RolePayee, core.FundPullPreApprovalStatusPending, statusAbsent, outcomeInvalidStatus},
		{core.RolePayee, core.FundPullPreApprovalStatusValid, statusAbsent, outcomeNotFound},
		{core.RolePayee, core.FundPullPreApprovalStatusValid, core.FundPullPreApprovalStatusPending, outcomeUpdate},
		{core.RolePayee, core.FundPullPreApprovalStatusClosed, core.FundPullPreApprovalStatusValid, outcomeUpdate},
		{core.RolePayee, core.FundPullPreApprovalStatusClosed, core.FundPullPreApprovalStatusClosed, outcomeInvalidStatus},
	}
	for _, tc := range cases {
		got := mergeTable[mergeKey{role: tc.role, incoming: tc.incoming, existing: tc.existing}]
		if got != tc.want {
			t.Fatalf("cell role=%s incoming=%s existing=%q: got %d, want %d",
				tc.role, tc.incoming, tc.existing, got, tc.want)
		}
	}
}

func inboundCommand(myActor string, object core.FundPullPreApprovalObject) core.FundsPullPreApprovalCommand {
	return core.FundsPullPreApprovalCommand{
		CorrelationID:       "cid-merge",
		MyActorAddress:      myActor,
		FundPullPreApproval: object,
		Inbound:             true,
	}
}

func TestApplyInbound_PayerPendingCreateThenScopeMerge(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)
	const id = "5fc49fa0-5f2a-4faa-b391-ac1652c57e4d"

	first := testObject(id, core.FundPullPreApprovalStatusPending)
	first.Scope.MaxCumulativeAmount = &core.ScopedCumulativeAmount{
		Unit:      core.TimeUnitWeek,
		Value:     1,
		MaxAmount: core.CurrencyAmount{Amount: 1000, Currency: "XUS"},
	}

	record, err := service.ApplyInbound(ctx, inboundCommand("payer-id", first))
	if err != nil {
		t.Fatalf("first inbound: %v", err)
	}
	if record.Object.Status != core.FundPullPreApprovalStatusPending {
		t.Fatalf("expected pending, got %q", record.Object.Status)
	}
	if record.Role != core.RolePayer {
		t.Fatalf("expected payer role, got %q", record.Role)
	}
	if !record.OffchainSent {
		t.Fatalf("inbound state must not re-enter the send queue")
	}

	second := testObject(id, core.FundPullPreApprovalStatusPending)
	second.Scope.MaxCumulativeAmount = &core.ScopedCumulativeAmount{
		Unit:      core.TimeUnitMonth,
		Value:     2,
		MaxAmount: core.CurrencyAmount{Amount: 1000, Currency: "XUS"},
	}

	record, err = service.ApplyInbound(ctx, inboundCommand("payer-id", second))
	if err != nil {
		t.Fatalf("second inbound: %v", err)
	}
	if record.Object.Status != core.FundPullPreApprovalStatusPending {
		t.Fatalf("status must remain pending, got %q", record.Object.Status)
	}
	cumulative := record.Object.Scope.MaxCumulativeAmount
	if cumulative == nil || cumulative.Unit != core.TimeUnitMonth || cumulative.Value != 2 {
		t.Fatalf("scope terms not merged: %+v", cumulative)
	}
}

func TestApplyInbound_PayerClosedWithoutRecordIsNotFound(t *testing.T) {
	service, _ := newTestService(t)
	object := testObject("fppa-none", core.FundPullPreApprovalStatusClosed)

	_, err := service.ApplyInbound(context.Background(), inboundCommand("payer-id", object))
	if !errors.Is(err, core.ErrPreApprovalNotFound) {
		t.Fatalf("expected not-found (not invalid-status), got %v", err)
	}
	if errors.Is(err, core.ErrInvalidPreApprovalStatus) {
		t.Fatalf("closed-without-record must not be invalid-status")
	}
}

func TestApplyInbound_PayeeValidOnPending(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService(t)
	seedRecord(t, store, "fppa-10", core.RolePayee, core.FundPullPreApprovalStatusPending)

	object := testObject("fppa-10", core.FundPullPreApprovalStatusValid)
	record, err := service.ApplyInbound(ctx, inboundCommand("biller-id", object))
	if err != nil {
		t.Fatalf("apply inbound: %v", err)
	}
	if record.Object.Status != core.FundPullPreApprovalStatusValid {
		t.Fatalf("expected valid, got %q", record.Object.Status)
	}
}

func TestApplyInbound_PayeeCannotReceivePending(t *testing.T) {
	service, _ := newTestService(t)
	object := testObject("fppa-11", core.FundPullPreApprovalStatusPending)

	_, err := service.ApplyInbound(context.Background(), inboundCommand("biller-id", object))
	if !errors.Is(err, core.ErrInvalidPreApprovalStatus) {
		t.Fatalf("expected invalid-status, got %v", err)
	}
	if code := core.ErrorCodeOf(err); code != core.ErrorCodeInvalidFieldValue {
		t.Fatalf("expected wire code %q, got %q", core.ErrorCodeInvalidFieldValue, code)
	}
}

func TestApplyInbound_PayerCloseOnValid(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService(t)
	seedRecord(t, store, "fppa-12", core.RolePayer, core.FundPullPreApprovalStatusValid)

	object := testObject("fppa-12", core.FundPullPreApprovalStatusClosed)
	record, err := service.ApplyInbound(ctx, inboundCommand("payer-id", object))
	if err != nil {
		t.Fatalf("apply inbound: %v", err)
	}
	if record.Object.Status != core.FundPullPreApprovalStatusClosed {
		t.Fatalf("expected closed, got %q", record.Object.Status)
	}

	// closed is terminal for inbound merges
	_, err = service.ApplyInbound(ctx, inboundCommand("payer-id", object))
	if !errors.Is(err, core.ErrInvalidPreApprovalStatus) {
		t.Fatalf("expected invalid-status on closed record, got %v", err)
	}
}

func TestApplyInbound_ConcurrentWithLocalAction(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService(t)
	seedRecord(t, store, "fppa-13", core.RolePayee, core.FundPullPreApprovalStatusPending)

	// Local close wins the race; the late inbound valid must see the
	// post-close state and be rejected by the table.
	if _, err := service.Close(ctx, "fppa-13"); err != nil {
		t.Fatalf("close: %v", err)
	}
	object := testObject("fppa-13", core.FundPullPreApprovalStatusValid)
	_, err := service.ApplyInbound(ctx, inboundCommand("biller-id", object))
	if !errors.Is(err, core.ErrInvalidPreApprovalStatus) {
		t.Fatalf("expected invalid-status after concurrent close, got %v", err)
	}

	record, err := store.Get(ctx, "fppa-13")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.Object.Status != core.FundPullPreApprovalStatusClosed {
		t.Fatalf("losing writer overwrote the record: %q", record.Object.Status)
	}
}
