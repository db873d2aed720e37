// Package addressing implements the human-readable account identifier
// encoding: a bech32 string whose HRP is the network discriminator and whose
// payload is a version byte, the 16-byte raw on-chain address, and an 8-byte
// subaddress (zeroed when absent).
package addressing

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/vaspnet/go-offchain/core"
)

const (
	// SubAddressLength is the byte length of an optional subaddress.
	SubAddressLength = 8

	addressVersion = byte(1)
)

var (
	ErrInvalidAccountID  = errors.New("addressing: invalid account identifier")
	ErrHRPMismatch       = errors.New("addressing: network discriminator mismatch")
	ErrInvalidRawAddress = errors.New("addressing: invalid raw address")
)

// Codec is the production core.AddressCodec implementation.
type Codec struct{}

var _ core.AddressCodec = Codec{}

func (Codec) Encode(raw []byte, subAddress []byte, hrp string) (string, error) {
	if len(raw) != core.RawAddressLength {
		return "", fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidRawAddress, core.RawAddressLength, len(raw))
	}
	switch len(subAddress) {
	case 0:
		subAddress = make([]byte, SubAddressLength)
	case SubAddressLength:
	default:
		return "", fmt.Errorf("%w: subaddress must be %d bytes, got %d", ErrInvalidRawAddress, SubAddressLength, len(subAddress))
	}
	if strings.TrimSpace(hrp) == "" {
		return "", fmt.Errorf("%w: hrp is required", ErrInvalidAccountID)
	}

	payload := make([]byte, 0, core.RawAddressLength+SubAddressLength)
	payload = append(payload, raw...)
	payload = append(payload, subAddress...)
	converted, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRawAddress, err)
	}
	data := append([]byte{addressVersion}, converted...)
	encoded, err := bech32.Encode(hrp, data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAccountID, err)
	}
	return encoded, nil
}

func (Codec) Decode(accountID string, hrp string) ([]byte, []byte, error) {
	trimmed := strings.TrimSpace(accountID)
	if trimmed == "" {
		return nil, nil, fmt.Errorf("%w: empty identifier", ErrInvalidAccountID)
	}
	gotHRP, data, err := bech32.Decode(trimmed)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidAccountID, err)
	}
	if gotHRP != hrp {
		return nil, nil, fmt.Errorf("%w: expected %q, got %q", ErrHRPMismatch, hrp, gotHRP)
	}
	if len(data) == 0 || data[0] != addressVersion {
		return nil, nil, fmt.Errorf("%w: unsupported address version", ErrInvalidAccountID)
	}
	payload, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidAccountID, err)
	}
	if len(payload) != core.RawAddressLength+SubAddressLength {
		return nil, nil, fmt.Errorf("%w: unexpected payload length %d", ErrInvalidAccountID, len(payload))
	}
	raw := payload[:core.RawAddressLength]
	sub := payload[core.RawAddressLength:]
	if bytes.Equal(sub, make([]byte, SubAddressLength)) {
		return raw, nil, nil
	}
	return raw, sub, nil
}
