// Package command exposes the local pre-approval actions as dispatchable
// command messages, so callers (API surface, operator tooling) mutate
// lifecycle state through one bus instead of holding the service directly.
package command

import (
	"fmt"
	"strings"

	"github.com/vaspnet/go-offchain/core"
)

const (
	TypeCreateAndApprove = "offchain.command.preapproval.create_and_approve"
	TypeApprove          = "offchain.command.preapproval.approve"
	TypeReject           = "offchain.command.preapproval.reject"
	TypeClose            = "offchain.command.preapproval.close"
)

type CreateAndApproveMessage struct {
	Object core.FundPullPreApprovalObject
}

func (CreateAndApproveMessage) Type() string { return TypeCreateAndApprove }

func (m CreateAndApproveMessage) Validate() error {
	if strings.TrimSpace(m.Object.FundsPullPreApprovalID) == "" {
		return fmt.Errorf("command: funds pull pre-approval id is required")
	}
	if strings.TrimSpace(m.Object.Address) == "" {
		return fmt.Errorf("command: payer address is required")
	}
	if strings.TrimSpace(m.Object.BillerAddress) == "" {
		return fmt.Errorf("command: biller address is required")
	}
	return nil
}

type ApproveMessage struct {
	ID string
}

func (ApproveMessage) Type() string { return TypeApprove }

func (m ApproveMessage) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("command: funds pull pre-approval id is required")
	}
	return nil
}

type RejectMessage struct {
	ID string
}

func (RejectMessage) Type() string { return TypeReject }

func (m RejectMessage) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("command: funds pull pre-approval id is required")
	}
	return nil
}

type CloseMessage struct {
	ID string
}

func (CloseMessage) Type() string { return TypeClose }

func (m CloseMessage) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("command: funds pull pre-approval id is required")
	}
	return nil
}
