package core

import (
	"context"
	"crypto/ed25519"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// LedgerAccount is the on-chain registration the ledger collaborator exposes
// for one account: where to deliver off-chain requests and which key
// authenticates them.
type LedgerAccount struct {
	BaseURL             string
	CompliancePublicKey ed25519.PublicKey
	// ParentVASPAddress is the raw address of the owning VASP when the
	// account is a child account, nil for top-level accounts.
	ParentVASPAddress []byte
}

// LedgerClient resolves on-chain account registrations. Implementations must
// return ErrAccountNotFound (wrapped or bare) when no account exists at the
// raw address.
type LedgerClient interface {
	GetAccount(ctx context.Context, rawAddress []byte) (LedgerAccount, error)
}

// AddressCodec converts between raw on-chain addresses and human-readable
// account identifiers under a network discriminator (hrp). Decode fails on a
// discriminator mismatch or malformed identifier.
type AddressCodec interface {
	Encode(raw []byte, subAddress []byte, hrp string) (string, error)
	Decode(accountID string, hrp string) (raw []byte, subAddress []byte, err error)
}

// PreApprovalUpdateFn receives the current record for an id (nil when
// absent) and returns the record to persist. Returning an error aborts the
// surrounding transaction without writing.
type PreApprovalUpdateFn func(existing *PreApprovalRecord) (*PreApprovalRecord, error)

// PreApprovalStore is the record-store collaborator for pre-approval rows.
// Mutate must run its read-decide-write cycle inside one serializable
// transaction per id so a concurrent local action and inbound merge for the
// same id cannot overwrite each other; the losing writer retries against the
// post-conflict state.
type PreApprovalStore interface {
	Create(ctx context.Context, record PreApprovalRecord) error
	Get(ctx context.Context, id string) (PreApprovalRecord, error)
	Update(ctx context.Context, record PreApprovalRecord) error
	Mutate(ctx context.Context, id string, fn PreApprovalUpdateFn) (PreApprovalRecord, error)
	ListByAddress(ctx context.Context, address string) ([]PreApprovalRecord, error)
	ListByStatus(ctx context.Context, address string, status FundPullPreApprovalStatus) ([]PreApprovalRecord, error)
	ListUnsent(ctx context.Context) ([]PreApprovalRecord, error)
	MarkSent(ctx context.Context, id string) error
}
