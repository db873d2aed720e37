package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/vaspnet/go-offchain/core"
)

// MutatingService is the lifecycle surface the handlers drive; satisfied by
// preapproval.Service.
type MutatingService interface {
	CreateAndApprove(ctx context.Context, object core.FundPullPreApprovalObject) (core.PreApprovalRecord, error)
	Approve(ctx context.Context, id string) (core.PreApprovalRecord, error)
	Reject(ctx context.Context, id string) (core.PreApprovalRecord, error)
	Close(ctx context.Context, id string) (core.PreApprovalRecord, error)
}

type CreateAndApproveCommand struct {
	service MutatingService
}

func NewCreateAndApproveCommand(service MutatingService) *CreateAndApproveCommand {
	return &CreateAndApproveCommand{service: service}
}

func (c *CreateAndApproveCommand) Execute(ctx context.Context, msg CreateAndApproveMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: pre-approval service is required")
	}
	out, err := c.service.CreateAndApprove(ctx, msg.Object)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ApproveCommand struct {
	service MutatingService
}

func NewApproveCommand(service MutatingService) *ApproveCommand {
	return &ApproveCommand{service: service}
}

func (c *ApproveCommand) Execute(ctx context.Context, msg ApproveMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: pre-approval service is required")
	}
	out, err := c.service.Approve(ctx, msg.ID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RejectCommand struct {
	service MutatingService
}

func NewRejectCommand(service MutatingService) *RejectCommand {
	return &RejectCommand{service: service}
}

func (c *RejectCommand) Execute(ctx context.Context, msg RejectMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: pre-approval service is required")
	}
	out, err := c.service.Reject(ctx, msg.ID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CloseCommand struct {
	service MutatingService
}

func NewCloseCommand(service MutatingService) *CloseCommand {
	return &CloseCommand{service: service}
}

func (c *CloseCommand) Execute(ctx context.Context, msg CloseMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: pre-approval service is required")
	}
	out, err := c.service.Close(ctx, msg.ID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
