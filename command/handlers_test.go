package command

import (
	"context"
	"errors"
	"testing"

	"github.com/vaspnet/go-offchain/core"
)

type fakeService struct {
	calls []string
	err   error
}

func (s *fakeService) record(name string) (core.PreApprovalRecord, error) {
	s.calls = append(s.calls, name)
	if s.err != nil {
		return core.PreApprovalRecord{}, s.err
	}
	return core.PreApprovalRecord{
		Object: core.FundPullPreApprovalObject{FundsPullPreApprovalID: "fppa-1"},
	}, nil
}

func (s *fakeService) CreateAndApprove(_ context.Context, _ core.FundPullPreApprovalObject) (core.PreApprovalRecord, error) {
	return s.record("create_and_approve")
}

func (s *fakeService) Approve(_ context.Context, _ string) (core.PreApprovalRecord, error) {
	return s.record("approve")
}

func (s *fakeService) Reject(_ context.Context, _ string) (core.PreApprovalRecord, error) {
	return s.record("reject")
}

func (s *fakeService) Close(_ context.Context, _ string) (core.PreApprovalRecord, error) {
	return s.record("close")
}

func TestHandlers_DelegateToService(t *testing.T) {
	ctx := context.Background()
	service := &fakeService{}

	if err := NewCreateAndApproveCommand(service).Execute(ctx, CreateAndApproveMessage{
		Object: core.FundPullPreApprovalObject{FundsPullPreApprovalID: "fppa-1"},
	}); err != nil {
		t.Fatalf("create and approve: %v", err)
	}
	if err := NewApproveCommand(service).Execute(ctx, ApproveMessage{ID: "fppa-1"}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := NewRejectCommand(service).Execute(ctx, RejectMessage{ID: "fppa-1"}); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := NewCloseCommand(service).Execute(ctx, CloseMessage{ID: "fppa-1"}); err != nil {
		t.Fatalf("close: %v", err)
	}

	want := []string{"create_and_approve", "approve", "reject", "close"}
	if len(service.calls) != len(want) {
		t.Fatalf("expected %d calls, got %v", len(want), service.calls)
	}
	for i, name := range want {
		if service.calls[i] != name {
			t.Fatalf("call %d: expected %q, got %q", i, name, service.calls[i])
		}
	}
}

func TestHandlers_PropagateServiceErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("store down")
	service := &fakeService{err: boom}

	if err := NewApproveCommand(service).Execute(ctx, ApproveMessage{ID: "fppa-1"}); !errors.Is(err, boom) {
		t.Fatalf("expected service error, got %v", err)
	}
}

func TestHandlers_RequireService(t *testing.T) {
	ctx := context.Background()
	if err := NewApproveCommand(nil).Execute(ctx, ApproveMessage{ID: "fppa-1"}); err == nil {
		t.Fatalf("expected dependency error")
	}
	var nilHandler *CloseCommand
	if err := nilHandler.Execute(ctx, CloseMessage{ID: "fppa-1"}); err == nil {
		t.Fatalf("expected dependency error on nil handler")
	}
}

func TestMessages_TypeAndValidate(t *testing.T) {
	cases := []struct {
		name     string
		typeName string
		valid    interface {
			Type() string
			Validate() error
		}
		invalid interface {
			Validate() error
		}
	}{
		{
			name:     "create_and_approve",
			typeName: TypeCreateAndApprove,
			valid: CreateAndApproveMessage{Object: core.FundPullPreApprovalObject{
				FundsPullPreApprovalID: "fppa-1",
				Address:                "payer-id",
				BillerAddress:          "biller-id",
			}},
			invalid: CreateAndApproveMessage{},
		},
		{name: "approve", typeName: TypeApprove, valid: ApproveMessage{ID: "fppa-1"}, invalid: ApproveMessage{ID: "  "}},
		{name: "reject", typeName: TypeReject, valid: RejectMessage{ID: "fppa-1"}, invalid: RejectMessage{}},
		{name: "close", typeName: TypeClose, valid: CloseMessage{ID: "fppa-1"}, invalid: CloseMessage{}},
	}
	for _, tc := range cases {
		if tc.valid.Type() != tc.typeName {
			t.Fatalf("%s: unexpected type %q", tc.name, tc.valid.Type())
		}
		if err := tc.valid.Validate(); err != nil {
			t.Fatalf("%s: valid message rejected: %v", tc.name, err)
		}
		if err := tc.invalid.Validate(); err == nil {
			t.Fatalf("%s: invalid message accepted", tc.name)
		}
	}
}

func TestCreateAndApproveMessage_RequiresActorAddresses(t *testing.T) {
	msg := CreateAndApproveMessage{Object: core.FundPullPreApprovalObject{
		FundsPullPreApprovalID: "fppa-1",
		Address:                "payer-id",
	}}
	if err := msg.Validate(); err == nil {
		t.Fatalf("expected missing biller address error")
	}
}
