package core

import (
	"strings"
)

// Actor statuses defined by the payment exchange. ready_for_settlement is
// the step at which the receiving side must have attested to the travel-rule
// metadata.
const (
	StatusNone               = "none"
	StatusNeedsKYCData       = "needs_kyc_data"
	StatusReadyForSettlement = "ready_for_settlement"
	StatusAbort              = "abort"
	StatusSoftMatch          = "soft_match"
)

const (
	KycDataTypeIndividual = "individual"
	KycDataTypeEntity     = "entity"
)

type StatusObject struct {
	Status       string `json:"status"`
	AbortCode    string `json:"abort_code,omitempty"`
	AbortMessage string `json:"abort_message,omitempty"`
}

type KycDataObject struct {
	Type            string `json:"type"`
	PayloadVersion  int    `json:"payload_version"`
	GivenName       string `json:"given_name,omitempty"`
	Surname         string `json:"surname,omitempty"`
	LegalEntityName string `json:"legal_entity_name,omitempty"`
	Dob             string `json:"dob,omitempty"`
}

// PaymentActorObject is one side of a payment: a human-readable account
// identifier plus KYC exchange state.
type PaymentActorObject struct {
	Address  string         `json:"address"`
	KycData  *KycDataObject `json:"kyc_data,omitempty"`
	Status   StatusObject   `json:"status"`
	Metadata []string       `json:"metadata,omitempty"`
}

type PaymentActionObject struct {
	Amount    uint64 `json:"amount"`
	Currency  string `json:"currency"`
	Action    string `json:"action"`
	Timestamp int64  `json:"timestamp"`
}

type PaymentObject struct {
	Sender             PaymentActorObject  `json:"sender"`
	Receiver           PaymentActorObject  `json:"receiver"`
	ReferenceID        string              `json:"reference_id"`
	Action             PaymentActionObject `json:"action"`
	RecipientSignature string              `json:"recipient_signature,omitempty"`
	Description        string              `json:"description,omitempty"`
}

func (p PaymentObject) Validate() error {
	if strings.TrimSpace(p.Sender.Address) == "" {
		return CommandError(ErrorCodeMissingField, "sender address is required", "command.payment.sender.address")
	}
	if strings.TrimSpace(p.Receiver.Address) == "" {
		return CommandError(ErrorCodeMissingField, "receiver address is required", "command.payment.receiver.address")
	}
	if strings.TrimSpace(p.Action.Currency) == "" {
		return CommandError(ErrorCodeMissingField, "action currency is required", "command.payment.action.currency")
	}
	if p.Action.Amount == 0 {
		return CommandError(ErrorCodeInvalidFieldValue, "action amount must be positive", "command.payment.action.amount")
	}
	return nil
}
