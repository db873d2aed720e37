// Package jws implements the compact authenticated envelope used on the
// wire: base64url(header).base64url(payload).base64url(signature), signed
// with the sender's Ed25519 compliance key over the ASCII bytes of
// header.payload.
//
// Deserialization fails closed on the first error, in the order transport
// shape, signature, JSON, field validation. Verification happens before the
// payload is trusted for any business decision.
package jws

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vaspnet/go-offchain/core"
)

const headerEdDSA = `{"alg":"EdDSA"}`

var encoding = base64.RawURLEncoding

// SignFn produces a signature over the signing input.
type SignFn func(message []byte) ([]byte, error)

// VerifyFn checks signature over message, returning an error on mismatch.
type VerifyFn func(signature []byte, message []byte) error

// Ed25519Signer adapts a private key into a SignFn.
func Ed25519Signer(key ed25519.PrivateKey) SignFn {
	return func(message []byte) ([]byte, error) {
		if len(key) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("jws: invalid ed25519 private key length %d", len(key))
		}
		return ed25519.Sign(key, message), nil
	}
}

// Ed25519Verifier adapts a public key into a VerifyFn.
func Ed25519Verifier(key ed25519.PublicKey) VerifyFn {
	return func(signature []byte, message []byte) error {
		if len(key) != ed25519.PublicKeySize {
			return fmt.Errorf("jws: invalid ed25519 public key length %d", len(key))
		}
		if !ed25519.Verify(key, message, signature) {
			return fmt.Errorf("jws: ed25519 signature mismatch")
		}
		return nil
	}
}

// Serialize canonicalizes obj to JSON and emits the signed three-part
// envelope.
func Serialize(obj any, sign SignFn) ([]byte, error) {
	if sign == nil {
		return nil, fmt.Errorf("jws: sign function is required")
	}
	payload, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("jws: marshal payload: %w", err)
	}
	signingInput := encoding.EncodeToString([]byte(headerEdDSA)) + "." + encoding.EncodeToString(payload)
	signature, err := sign([]byte(signingInput))
	if err != nil {
		return nil, fmt.Errorf("jws: sign envelope: %w", err)
	}
	return []byte(signingInput + "." + encoding.EncodeToString(signature)), nil
}

// Validator lets payload shapes enforce their own field requirements after
// JSON decoding; validation errors must carry a wire code and field locator.
type Validator interface {
	Validate() error
}

// Deserialize verifies the envelope and decodes its payload into target.
// Errors carry the wire codes from core: invalid_jws for a malformed
// envelope, invalid_jws_signature on verification failure, invalid_json for
// malformed payload JSON, and field-scoped codes from the target's Validate.
func Deserialize(data []byte, target any, verify VerifyFn) error {
	if verify == nil {
		return fmt.Errorf("jws: verify function is required")
	}
	parts := strings.Split(string(data), ".")
	if len(parts) != 3 {
		return core.ProtocolError(core.ErrorCodeInvalidJWS,
			fmt.Sprintf("expected 3 parts, got %d", len(parts)))
	}

	header, err := encoding.DecodeString(parts[0])
	if err != nil {
		return core.ProtocolWrap(err, core.ErrorCodeInvalidJWS, "decode envelope header")
	}
	if !headerDeclaresEdDSA(header) {
		return core.ProtocolError(core.ErrorCodeInvalidJWS,
			fmt.Sprintf("unsupported envelope header %q", string(header)))
	}
	payload, err := encoding.DecodeString(parts[1])
	if err != nil {
		return core.ProtocolWrap(err, core.ErrorCodeInvalidJWS, "decode envelope payload")
	}
	// An undecodable signature part is a signature failure, not a malformed
	// envelope: any byte-level tamper of the third part must yield the same
	// code as a verification mismatch.
	signature, err := encoding.DecodeString(parts[2])
	if err != nil {
		return core.ProtocolWrap(err, core.ErrorCodeInvalidJWSSignature, "decode envelope signature")
	}

	signingInput := []byte(parts[0] + "." + parts[1])
	if err := verify(signature, signingInput); err != nil {
		return core.ProtocolWrap(err, core.ErrorCodeInvalidJWSSignature, "envelope signature verification failed")
	}

	if err := json.Unmarshal(payload, target); err != nil {
		return core.ProtocolWrap(err, core.ErrorCodeInvalidJSON, "decode payload json")
	}
	if validator, ok := target.(Validator); ok {
		if err := validator.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func headerDeclaresEdDSA(header []byte) bool {
	var decoded struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(header, &decoded); err != nil {
		return false
	}
	return decoded.Alg == "EdDSA"
}
