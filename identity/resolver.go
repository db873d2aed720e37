// Package identity maps human-readable account identifiers to their
// registered off-chain endpoints and compliance keys, and decides whether an
// account belongs to the local VASP.
package identity

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/vaspnet/go-offchain/core"
)

type Config struct {
	// HRP is the network discriminator all identifiers must decode under.
	HRP string
	// LocalAddress is the raw on-chain address of the local compliance
	// account.
	LocalAddress []byte
	Ledger       core.LedgerClient
	Codec        core.AddressCodec
}

// Resolver resolves counterparty registrations through the ledger
// collaborator. The local compliance account id is derived once at
// construction, not per call.
type Resolver struct {
	hrp            string
	localAddress   []byte
	localAccountID string
	ledger         core.LedgerClient
	codec          core.AddressCodec
}

func NewResolver(cfg Config) (*Resolver, error) {
	if strings.TrimSpace(cfg.HRP) == "" {
		return nil, fmt.Errorf("identity: hrp is required")
	}
	if len(cfg.LocalAddress) != core.RawAddressLength {
		return nil, fmt.Errorf("identity: local address must be %d bytes, got %d", core.RawAddressLength, len(cfg.LocalAddress))
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("identity: ledger client is required")
	}
	if cfg.Codec == nil {
		return nil, fmt.Errorf("identity: address codec is required")
	}
	localAccountID, err := cfg.Codec.Encode(cfg.LocalAddress, nil, cfg.HRP)
	if err != nil {
		return nil, fmt.Errorf("identity: encode local account id: %w", err)
	}
	return &Resolver{
		hrp:            cfg.HRP,
		localAddress:   append([]byte(nil), cfg.LocalAddress...),
		localAccountID: localAccountID,
		ledger:         cfg.Ledger,
		codec:          cfg.Codec,
	}, nil
}

// LocalAccountID returns the canonical identifier of the local compliance
// account.
func (r *Resolver) LocalAccountID() string {
	if r == nil {
		return ""
	}
	return r.localAccountID
}

// AccountID encodes a raw address into its canonical identifier under the
// configured discriminator.
func (r *Resolver) AccountID(raw []byte) (string, error) {
	if r == nil {
		return "", fmt.Errorf("identity: resolver is nil")
	}
	return r.codec.Encode(raw, nil, r.hrp)
}

// Resolve returns the registered compliance base URL and public key for an
// account identifier. A malformed identifier is a bad-input error; a missing
// ledger account propagates untranslated.
func (r *Resolver) Resolve(ctx context.Context, accountID string) (string, ed25519.PublicKey, error) {
	if r == nil {
		return "", nil, fmt.Errorf("identity: resolver is nil")
	}
	raw, _, err := r.codec.Decode(accountID, r.hrp)
	if err != nil {
		return "", nil, goerrors.Wrap(err, goerrors.CategoryBadInput,
			fmt.Sprintf("identity: decode account identifier %q", accountID))
	}
	account, err := r.ledger.GetAccount(ctx, raw)
	if err != nil {
		return "", nil, err
	}
	if strings.TrimSpace(account.BaseURL) == "" {
		return "", nil, fmt.Errorf("identity: account %q has no registered base url", accountID)
	}
	if len(account.CompliancePublicKey) != ed25519.PublicKeySize {
		return "", nil, fmt.Errorf("identity: account %q has no registered compliance key", accountID)
	}
	return account.BaseURL, account.CompliancePublicKey, nil
}

// IsLocal reports whether the account identifier belongs to the local VASP:
// either its raw address equals the local compliance address, or its
// registered parent VASP does. The parent relationship is checked one level
// only.
func (r *Resolver) IsLocal(ctx context.Context, accountID string) (bool, error) {
	if r == nil {
		return false, fmt.Errorf("identity: resolver is nil")
	}
	raw, _, err := r.codec.Decode(accountID, r.hrp)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryBadInput,
			fmt.Sprintf("identity: decode account identifier %q", accountID))
	}
	if bytes.Equal(raw, r.localAddress) {
		return true, nil
	}
	account, err := r.ledger.GetAccount(ctx, raw)
	if err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			return false, nil
		}
		return false, err
	}
	if len(account.ParentVASPAddress) == 0 {
		return false, nil
	}
	return bytes.Equal(account.ParentVASPAddress, r.localAddress), nil
}
