package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	CommandTypePayment               = "PaymentCommand"
	CommandTypeFundsPullPreApproval  = "FundPullPreApprovalCommand"
	ObjectTypeCommandRequest         = "CommandRequestObject"
	ObjectTypeCommandResponse        = "CommandResponseObject"
	ObjectTypePaymentCommand         = "PaymentCommandObject"
	ObjectTypeFundPullPreApprovalCmd = "FundPullPreApprovalCommandObject"
	CommandResponseStatusSuccess     = "success"
	CommandResponseStatusFailure     = "failure"
)

// CommandRequestObject is the authenticated payload of an outbound request
// envelope. Command is kept raw so dispatch happens on CommandType after the
// envelope has been verified.
type CommandRequestObject struct {
	ObjectType  string          `json:"_ObjectType"`
	CID         string          `json:"cid"`
	CommandType string          `json:"command_type"`
	Command     json.RawMessage `json:"command"`
}

func (r CommandRequestObject) Validate() error {
	if r.ObjectType != ObjectTypeCommandRequest {
		return CommandError(ErrorCodeInvalidFieldValue,
			fmt.Sprintf("expected _ObjectType %q, got %q", ObjectTypeCommandRequest, r.ObjectType),
			"_ObjectType")
	}
	if strings.TrimSpace(r.CID) == "" {
		return CommandError(ErrorCodeMissingField, "cid is required", "cid")
	}
	if strings.TrimSpace(r.CommandType) == "" {
		return CommandError(ErrorCodeMissingField, "command_type is required", "command_type")
	}
	if len(r.Command) == 0 {
		return CommandError(ErrorCodeMissingField, "command is required", "command")
	}
	return nil
}

type CommandResponseObject struct {
	ObjectType string               `json:"_ObjectType"`
	CID        string               `json:"cid,omitempty"`
	Status     string               `json:"status"`
	Error      *OffChainErrorObject `json:"error,omitempty"`
}

func (r CommandResponseObject) Validate() error {
	if r.ObjectType != ObjectTypeCommandResponse {
		return CommandError(ErrorCodeInvalidFieldValue,
			fmt.Sprintf("expected _ObjectType %q, got %q", ObjectTypeCommandResponse, r.ObjectType),
			"_ObjectType")
	}
	switch r.Status {
	case CommandResponseStatusSuccess, CommandResponseStatusFailure:
		return nil
	default:
		return CommandError(ErrorCodeInvalidFieldValue,
			fmt.Sprintf("unknown response status %q", r.Status), "status")
	}
}

// PaymentCommandObject wraps a PaymentObject on the wire.
type PaymentCommandObject struct {
	ObjectType string        `json:"_ObjectType"`
	Payment    PaymentObject `json:"payment"`
}

// FundPullPreApprovalCommandObject wraps a FundPullPreApprovalObject on the
// wire.
type FundPullPreApprovalCommandObject struct {
	ObjectType          string                    `json:"_ObjectType"`
	FundPullPreApproval FundPullPreApprovalObject `json:"fund_pull_pre_approval"`
}

// ReplySuccess builds the success response for a processed request.
func ReplySuccess(cid string) CommandResponseObject {
	return CommandResponseObject{
		ObjectType: ObjectTypeCommandResponse,
		CID:        cid,
		Status:     CommandResponseStatusSuccess,
	}
}

// ReplyFailure builds the failure response carrying the structured error.
func ReplyFailure(cid string, offchainErr OffChainErrorObject) CommandResponseObject {
	return CommandResponseObject{
		ObjectType: ObjectTypeCommandResponse,
		CID:        cid,
		Status:     CommandResponseStatusFailure,
		Error:      &offchainErr,
	}
}
