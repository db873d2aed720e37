package core

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// Command is the closed union over the two exchanged command variants. Only
// PaymentCommand and FundsPullPreApprovalCommand satisfy it; dispatch sites
// switch on the concrete type and treat any other value as a programming
// error.
type Command interface {
	CommandType() string
	CID() string
	MyAddress() string
	CounterpartyAddress() string
	NewRequest() (CommandRequestObject, error)

	isCommand()
}

type PaymentCommand struct {
	CorrelationID  string
	MyActorAddress string
	Payment        PaymentObject
	Inbound        bool
}

func (PaymentCommand) isCommand() {}

func (c PaymentCommand) CommandType() string { return CommandTypePayment }

func (c PaymentCommand) CID() string { return c.CorrelationID }

func (c PaymentCommand) MyAddress() string { return c.MyActorAddress }

func (c PaymentCommand) CounterpartyAddress() string {
	if c.MyActorAddress == c.Payment.Sender.Address {
		return c.Payment.Receiver.Address
	}
	return c.Payment.Sender.Address
}

func (c PaymentCommand) NewRequest() (CommandRequestObject, error) {
	payload, err := json.Marshal(PaymentCommandObject{
		ObjectType: ObjectTypePaymentCommand,
		Payment:    c.Payment,
	})
	if err != nil {
		return CommandRequestObject{}, fmt.Errorf("core: marshal payment command: %w", err)
	}
	return CommandRequestObject{
		ObjectType:  ObjectTypeCommandRequest,
		CID:         c.CorrelationID,
		CommandType: CommandTypePayment,
		Command:     payload,
	}, nil
}

// IsRecipientSettlementReady reports whether this command represents the
// step where the receiving side has finalized settlement readiness, which is
// the point at which recipient_signature must verify.
func (c PaymentCommand) IsRecipientSettlementReady() bool {
	return c.Payment.Receiver.Status.Status == StatusReadyForSettlement
}

const travelRuleDomainSeparator = "@@$$DIEM_ATTEST$$@@"

// TravelRuleMetadataSignatureMessage derives the deterministic byte message
// the recipient signs over: reference id, raw sender address, amount, and a
// fixed domain separator. Both sides must compute the identical message, so
// the sender address is reduced to its raw on-chain form under hrp.
func (c PaymentCommand) TravelRuleMetadataSignatureMessage(codec AddressCodec, hrp string) ([]byte, error) {
	raw, _, err := codec.Decode(c.Payment.Sender.Address, hrp)
	if err != nil {
		return nil, fmt.Errorf("core: decode sender address: %w", err)
	}
	refID := c.Payment.ReferenceID
	if refID == "" {
		refID = c.CorrelationID
	}
	msg := make([]byte, 0, len(refID)+len(raw)+8+len(travelRuleDomainSeparator))
	msg = append(msg, []byte(refID)...)
	msg = append(msg, raw...)
	msg = binary.LittleEndian.AppendUint64(msg, c.Payment.Action.Amount)
	msg = append(msg, []byte(travelRuleDomainSeparator)...)
	return msg, nil
}

type FundsPullPreApprovalCommand struct {
	CorrelationID       string
	MyActorAddress      string
	FundPullPreApproval FundPullPreApprovalObject
	Inbound             bool
}

func (FundsPullPreApprovalCommand) isCommand() {}

func (c FundsPullPreApprovalCommand) CommandType() string {
	return CommandTypeFundsPullPreApproval
}

func (c FundsPullPreApprovalCommand) CID() string { return c.CorrelationID }

func (c FundsPullPreApprovalCommand) MyAddress() string { return c.MyActorAddress }

func (c FundsPullPreApprovalCommand) CounterpartyAddress() string {
	if c.MyActorAddress == c.FundPullPreApproval.Address {
		return c.FundPullPreApproval.BillerAddress
	}
	return c.FundPullPreApproval.Address
}

// Role reports which side of the pre-approval the local actor holds.
func (c FundsPullPreApprovalCommand) Role() Role {
	if c.MyActorAddress == c.FundPullPreApproval.Address {
		return RolePayer
	}
	return RolePayee
}

func (c FundsPullPreApprovalCommand) NewRequest() (CommandRequestObject, error) {
	payload, err := json.Marshal(FundPullPreApprovalCommandObject{
		ObjectType:          ObjectTypeFundPullPreApprovalCmd,
		FundPullPreApproval: c.FundPullPreApproval,
	})
	if err != nil {
		return CommandRequestObject{}, fmt.Errorf("core: marshal funds pull pre-approval command: %w", err)
	}
	return CommandRequestObject{
		ObjectType:  ObjectTypeCommandRequest,
		CID:         c.CorrelationID,
		CommandType: CommandTypeFundsPullPreApproval,
		Command:     payload,
	}, nil
}
