// Package transport exposes the inbound command endpoint. Both success and
// business failure ride inside a signed response envelope; only protocol
// rejections (the envelope never authenticated) change the HTTP status.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/vaspnet/go-offchain/client"
	"github.com/vaspnet/go-offchain/core"
	"github.com/vaspnet/go-offchain/jws"
)

const maxRequestBytes = 1 << 20 // 1 MiB

// Processor authenticates and decodes one inbound request; satisfied by
// inbound.Processor.
type Processor interface {
	ProcessRequest(ctx context.Context, senderAddress string, body []byte) (core.Command, string, error)
}

// InboundApplier merges a verified inbound pre-approval command into storage;
// satisfied by preapproval.Service.
type InboundApplier interface {
	ApplyInbound(ctx context.Context, cmd core.FundsPullPreApprovalCommand) (core.PreApprovalRecord, error)
}

type Config struct {
	Processor Processor
	Applier   InboundApplier
	// Sign signs every response envelope with the local compliance key.
	Sign   jws.SignFn
	Logger glog.Logger
}

// CommandHandler serves POST {base_url}/v2/command.
type CommandHandler struct {
	processor Processor
	applier   InboundApplier
	sign      jws.SignFn
	logger    glog.Logger
}

var _ http.Handler = (*CommandHandler)(nil)

func NewCommandHandler(cfg Config) (*CommandHandler, error) {
	if cfg.Processor == nil {
		return nil, fmt.Errorf("transport: processor is required")
	}
	if cfg.Applier == nil {
		return nil, fmt.Errorf("transport: inbound applier is required")
	}
	if cfg.Sign == nil {
		return nil, fmt.Errorf("transport: sign function is required")
	}
	_, logger := glog.Resolve("offchain.transport", nil, cfg.Logger)
	return &CommandHandler{
		processor: cfg.Processor,
		applier:   cfg.Applier,
		sign:      cfg.Sign,
		logger:    logger,
	}, nil
}

func (h *CommandHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil {
		http.Error(w, "handler not configured", http.StatusInternalServerError)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	senderAddress := r.Header.Get(client.HeaderRequestSenderAddress)
	requestID := r.Header.Get(client.HeaderRequestID)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		h.writeFailure(ctx, w, "", requestID,
			core.ProtocolWrap(err, core.ErrorCodeInvalidJWS, "cannot read request body"))
		return
	}

	cmd, cid, err := h.processor.ProcessRequest(ctx, senderAddress, body)
	if err != nil {
		h.writeFailure(ctx, w, cid, requestID, err)
		return
	}

	switch typed := cmd.(type) {
	case core.FundsPullPreApprovalCommand:
		if _, err := h.applier.ApplyInbound(ctx, typed); err != nil {
			h.writeFailure(ctx, w, cid, requestID, err)
			return
		}
	case core.PaymentCommand:
		// Payment commands authenticate and validate here; settlement
		// progression is owned by the wallet layer consuming the command.
	}

	h.writeResponse(ctx, w, http.StatusOK, core.ReplySuccess(cid), requestID)
}

// writeFailure answers with the structured wire error: HTTP 400 when the
// envelope never authenticated, HTTP 200 with a failure status otherwise.
func (h *CommandHandler) writeFailure(ctx context.Context, w http.ResponseWriter, cid string, requestID string, err error) {
	status := http.StatusOK
	if core.IsProtocolError(err) {
		status = http.StatusBadRequest
	}
	h.logger.Info("inbound command rejected",
		"request_id", requestID,
		"cid", cid,
		"code", core.ErrorCodeOf(err),
		"error", err,
	)
	h.writeResponse(ctx, w, status, core.ReplyFailure(cid, core.AsOffChainError(err)), requestID)
}

func (h *CommandHandler) writeResponse(_ context.Context, w http.ResponseWriter, status int, response core.CommandResponseObject, requestID string) {
	envelope, err := jws.Serialize(response, h.sign)
	if err != nil {
		h.logger.Error("cannot sign response envelope", "request_id", requestID, "error", err)
		http.Error(w, "cannot sign response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	if _, err := w.Write(envelope); err != nil {
		h.logger.Error("cannot write response envelope", "request_id", requestID, "error", err)
	}
}
