package core

import (
	"fmt"
	"strings"
	"time"
)

type FundPullPreApprovalStatus string

const (
	FundPullPreApprovalStatusPending  FundPullPreApprovalStatus = "pending"
	FundPullPreApprovalStatusValid    FundPullPreApprovalStatus = "valid"
	FundPullPreApprovalStatusRejected FundPullPreApprovalStatus = "rejected"
	FundPullPreApprovalStatusClosed   FundPullPreApprovalStatus = "closed"
)

func (s FundPullPreApprovalStatus) Valid() bool {
	switch s {
	case FundPullPreApprovalStatusPending,
		FundPullPreApprovalStatusValid,
		FundPullPreApprovalStatusRejected,
		FundPullPreApprovalStatusClosed:
		return true
	default:
		return false
	}
}

const FundPullPreApprovalTypeConsent = "consent"

// Time units accepted for cumulative limits.
const (
	TimeUnitDay   = "day"
	TimeUnitWeek  = "week"
	TimeUnitMonth = "month"
	TimeUnitYear  = "year"
)

type CurrencyAmount struct {
	Amount   uint64 `json:"amount"`
	Currency string `json:"currency"`
}

type ScopedCumulativeAmount struct {
	Unit      string         `json:"unit"`
	Value     uint64         `json:"value"`
	MaxAmount CurrencyAmount `json:"max_amount"`
}

type FundPullPreApprovalScope struct {
	Type                 string                  `json:"type"`
	ExpirationTimestamp  int64                   `json:"expiration_timestamp"`
	MaxCumulativeAmount  *ScopedCumulativeAmount `json:"max_cumulative_amount,omitempty"`
	MaxTransactionAmount *CurrencyAmount         `json:"max_transaction_amount,omitempty"`
}

// FundPullPreApprovalObject is the payer-granted standing authorization a
// payee may invoke to pull funds up to the scoped limits.
type FundPullPreApprovalObject struct {
	FundsPullPreApprovalID string                    `json:"funds_pull_pre_approval_id"`
	Address                string                    `json:"address"`
	BillerAddress          string                    `json:"biller_address"`
	Scope                  FundPullPreApprovalScope  `json:"scope"`
	Status                 FundPullPreApprovalStatus `json:"status"`
	Description            string                    `json:"description,omitempty"`
}

func (o FundPullPreApprovalObject) Validate() error {
	if strings.TrimSpace(o.FundsPullPreApprovalID) == "" {
		return CommandError(ErrorCodeMissingField,
			"funds_pull_pre_approval_id is required",
			"command.fund_pull_pre_approval.funds_pull_pre_approval_id")
	}
	if strings.TrimSpace(o.Address) == "" {
		return CommandError(ErrorCodeMissingField, "address is required",
			"command.fund_pull_pre_approval.address")
	}
	if strings.TrimSpace(o.BillerAddress) == "" {
		return CommandError(ErrorCodeMissingField, "biller_address is required",
			"command.fund_pull_pre_approval.biller_address")
	}
	if !o.Status.Valid() {
		return CommandError(ErrorCodeInvalidFieldValue,
			fmt.Sprintf("unknown funds pull pre-approval status %q", o.Status),
			"command.fund_pull_pre_approval.status")
	}
	if o.Scope.ExpirationTimestamp <= 0 {
		return CommandError(ErrorCodeInvalidFieldValue,
			"scope expiration_timestamp is required",
			"command.fund_pull_pre_approval.scope.expiration_timestamp")
	}
	return nil
}

// Role distinguishes which side of a pre-approval the local VASP holds. The
// payer may originate proposals; the payee may only respond to them.
type Role string

const (
	RolePayer Role = "payer"
	RolePayee Role = "payee"
)

func (r Role) Valid() bool {
	return r == RolePayer || r == RolePayee
}

// PreApprovalRecord is the stored row for one pre-approval id. OffchainSent
// tracks whether the latest local mutation has been delivered to the
// counterparty; the sync worker flips it after a successful send.
type PreApprovalRecord struct {
	Object       FundPullPreApprovalObject
	Role         Role
	OffchainSent bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (r PreApprovalRecord) ID() string {
	return r.Object.FundsPullPreApprovalID
}

// CounterpartyAddress returns the account the local side must deliver
// updates to, based on the stored role.
func (r PreApprovalRecord) CounterpartyAddress() string {
	if r.Role == RolePayer {
		return r.Object.BillerAddress
	}
	return r.Object.Address
}

// MyAddress returns the locally-owned actor address for the stored role.
func (r PreApprovalRecord) MyAddress() string {
	if r.Role == RolePayer {
		return r.Object.Address
	}
	return r.Object.BillerAddress
}
