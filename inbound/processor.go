// Package inbound authenticates and dispatches command requests received
// from counterparty VASPs. Processing is strictly ordered: transport headers,
// envelope signature, payload decoding, then domain validation. Nothing from
// the payload is trusted before the signature checks out against the key the
// sender's on-chain registration advertises.
package inbound

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/vaspnet/go-offchain/core"
	"github.com/vaspnet/go-offchain/jws"
)

// Resolver is the identity collaborator the processor needs: key lookup for
// the claimed sender and locality checks for command actors.
type Resolver interface {
	Resolve(ctx context.Context, accountID string) (string, ed25519.PublicKey, error)
	IsLocal(ctx context.Context, accountID string) (bool, error)
}

type Config struct {
	Resolver Resolver
	Codec    core.AddressCodec
	// HRP is the network discriminator actor addresses must decode under.
	HRP    string
	Logger glog.Logger
}

// Processor turns a raw inbound request into a validated Command, attributing
// every rejection to a wire error code the counterparty can act on.
type Processor struct {
	resolver Resolver
	codec    core.AddressCodec
	hrp      string
	logger   glog.Logger
}

func New(cfg Config) (*Processor, error) {
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("inbound: resolver is required")
	}
	if cfg.Codec == nil {
		return nil, fmt.Errorf("inbound: address codec is required")
	}
	if strings.TrimSpace(cfg.HRP) == "" {
		return nil, fmt.Errorf("inbound: hrp is required")
	}
	_, logger := glog.Resolve("offchain.inbound", nil, cfg.Logger)
	return &Processor{
		resolver: cfg.Resolver,
		codec:    cfg.Codec,
		hrp:      strings.TrimSpace(cfg.HRP),
		logger:   logger,
	}, nil
}

// ProcessRequest authenticates the envelope claimed by senderAddress and
// returns the decoded inbound command. Protocol errors (header, envelope,
// signature) mean the request never authenticated; command errors mean it
// did, but the payload fails domain validation.
func (p *Processor) ProcessRequest(ctx context.Context, senderAddress string, body []byte) (core.Command, string, error) {
	if p == nil {
		return nil, "", fmt.Errorf("inbound: processor is nil")
	}
	senderAddress = strings.TrimSpace(senderAddress)
	if senderAddress == "" {
		return nil, "", core.ProtocolError(core.ErrorCodeMissingHTTPHeader,
			"X-Request-Sender-Address header is required")
	}

	_, senderKey, err := p.resolver.Resolve(ctx, senderAddress)
	if err != nil {
		return nil, "", core.ProtocolWrap(err, core.ErrorCodeInvalidHTTPHeader,
			fmt.Sprintf("cannot resolve request sender %q", senderAddress))
	}

	var request core.CommandRequestObject
	if err := jws.Deserialize(body, &request, jws.Ed25519Verifier(senderKey)); err != nil {
		return nil, "", err
	}

	switch request.CommandType {
	case core.CommandTypePayment:
		cmd, err := p.processPayment(ctx, senderAddress, senderKey, request)
		return cmd, request.CID, err
	case core.CommandTypeFundsPullPreApproval:
		cmd, err := p.processPreApproval(ctx, senderAddress, request)
		return cmd, request.CID, err
	default:
		return nil, request.CID, core.CommandError(core.ErrorCodeUnknownCommandType,
			fmt.Sprintf("unknown command type %q", request.CommandType), "command_type")
	}
}

func (p *Processor) processPayment(ctx context.Context, senderAddress string, senderKey ed25519.PublicKey, request core.CommandRequestObject) (core.Command, error) {
	var wrapper core.PaymentCommandObject
	if err := json.Unmarshal(request.Command, &wrapper); err != nil {
		return nil, core.CommandWrap(err, core.ErrorCodeInvalidFieldValue,
			"command is not a payment command object", "command")
	}
	payment := wrapper.Payment
	if err := payment.Validate(); err != nil {
		return nil, err
	}
	if _, _, err := p.codec.Decode(payment.Sender.Address, p.hrp); err != nil {
		return nil, core.CommandWrap(err, core.ErrorCodeInvalidFieldValue,
			fmt.Sprintf("malformed sender address %q", payment.Sender.Address),
			"command.payment.sender.address")
	}
	if _, _, err := p.codec.Decode(payment.Receiver.Address, p.hrp); err != nil {
		return nil, core.CommandWrap(err, core.ErrorCodeInvalidFieldValue,
			fmt.Sprintf("malformed receiver address %q", payment.Receiver.Address),
			"command.payment.receiver.address")
	}
	switch senderAddress {
	case payment.Sender.Address, payment.Receiver.Address:
	default:
		// The header never authenticated as a party to this payment, so the
		// rejection stays at the protocol level.
		return nil, core.ProtocolError(core.ErrorCodeInvalidHTTPHeader,
			fmt.Sprintf("request sender %q is not a payment actor", senderAddress))
	}
	myActor, err := p.firstLocal(ctx, payment.Sender.Address, payment.Receiver.Address)
	if err != nil {
		return nil, err
	}

	cmd := core.PaymentCommand{
		CorrelationID:  request.CID,
		MyActorAddress: myActor,
		Payment:        payment,
		Inbound:        true,
	}
	// The recipient signs the travel-rule metadata when declaring settlement
	// readiness; the payer side verifies it before accepting the step.
	if cmd.IsRecipientSettlementReady() && myActor == payment.Sender.Address {
		if err := p.verifyRecipientSignature(cmd, senderKey); err != nil {
			return nil, err
		}
	}
	return cmd, nil
}

func (p *Processor) verifyRecipientSignature(cmd core.PaymentCommand, recipientKey ed25519.PublicKey) error {
	signature := strings.TrimSpace(cmd.Payment.RecipientSignature)
	if signature == "" {
		return core.CommandError(core.ErrorCodeInvalidRecipientSignature,
			"recipient_signature is required when receiver is ready for settlement",
			"command.payment.recipient_signature")
	}
	sigBytes, err := hex.DecodeString(signature)
	if err != nil {
		return core.CommandWrap(err, core.ErrorCodeInvalidRecipientSignature,
			"recipient_signature is not valid hex",
			"command.payment.recipient_signature")
	}
	message, err := cmd.TravelRuleMetadataSignatureMessage(p.codec, p.hrp)
	if err != nil {
		return core.CommandWrap(err, core.ErrorCodeInvalidRecipientSignature,
			"cannot derive travel rule signing message",
			"command.payment.recipient_signature")
	}
	if !ed25519.Verify(recipientKey, message, sigBytes) {
		return core.CommandError(core.ErrorCodeInvalidRecipientSignature,
			"recipient_signature does not verify against the receiver's compliance key",
			"command.payment.recipient_signature")
	}
	return nil
}

func (p *Processor) processPreApproval(ctx context.Context, senderAddress string, request core.CommandRequestObject) (core.Command, error) {
	var wrapper core.FundPullPreApprovalCommandObject
	if err := json.Unmarshal(request.Command, &wrapper); err != nil {
		return nil, core.CommandWrap(err, core.ErrorCodeInvalidFieldValue,
			"command is not a funds pull pre-approval command object", "command")
	}
	preApproval := wrapper.FundPullPreApproval
	if err := preApproval.Validate(); err != nil {
		return nil, err
	}
	if _, _, err := p.codec.Decode(preApproval.Address, p.hrp); err != nil {
		return nil, core.CommandWrap(err, core.ErrorCodeInvalidFieldValue,
			fmt.Sprintf("malformed payer address %q", preApproval.Address),
			"command.fund_pull_pre_approval.address")
	}
	if _, _, err := p.codec.Decode(preApproval.BillerAddress, p.hrp); err != nil {
		return nil, core.CommandWrap(err, core.ErrorCodeInvalidFieldValue,
			fmt.Sprintf("malformed biller address %q", preApproval.BillerAddress),
			"command.fund_pull_pre_approval.biller_address")
	}
	// The sender header is not matched against the actor set here: the
	// counterparty may deliver through a parent account, and authentication
	// already happened against the header's resolved key. The local actor is
	// simply whichever side is registered here, payer checked first.
	myActor, err := p.firstLocal(ctx, preApproval.Address, preApproval.BillerAddress)
	if err != nil {
		return nil, err
	}

	return core.FundsPullPreApprovalCommand{
		CorrelationID:       request.CID,
		MyActorAddress:      myActor,
		FundPullPreApproval: preApproval,
		Inbound:             true,
	}, nil
}

// firstLocal returns the first candidate actor address registered to this
// VASP, or unknown_address when none is.
func (p *Processor) firstLocal(ctx context.Context, candidates ...string) (string, error) {
	for _, address := range candidates {
		isLocal, err := p.resolver.IsLocal(ctx, address)
		if err != nil {
			return "", err
		}
		if isLocal {
			return address, nil
		}
	}
	return "", core.CommandError(core.ErrorCodeUnknownAddress,
		"no command actor address belongs to this VASP", "")
}
