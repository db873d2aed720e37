// Package sync delivers locally-mutated pre-approval records to their
// counterparties. Local actions only flip the record's sent flag; this worker
// drains the unsent set on an interval so a counterparty outage delays
// delivery instead of failing the local action.
package sync

import (
	"context"
	"fmt"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"

	"github.com/vaspnet/go-offchain/core"
	"github.com/vaspnet/go-offchain/jws"
)

const DefaultInterval = 5 * time.Second

// CommandSender is the outbound delivery collaborator; satisfied by
// client.Client.
type CommandSender interface {
	SendCommand(ctx context.Context, cmd core.Command, sign jws.SignFn) (core.CommandResponseObject, error)
}

type Config struct {
	Store    core.PreApprovalStore
	Sender   CommandSender
	Sign     jws.SignFn
	Interval time.Duration
	Logger   glog.Logger
}

type Worker struct {
	store    core.PreApprovalStore
	sender   CommandSender
	sign     jws.SignFn
	interval time.Duration
	logger   glog.Logger
}

func NewWorker(cfg Config) (*Worker, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("sync: store is required")
	}
	if cfg.Sender == nil {
		return nil, fmt.Errorf("sync: command sender is required")
	}
	if cfg.Sign == nil {
		return nil, fmt.Errorf("sync: sign function is required")
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	_, logger := glog.Resolve("offchain.sync", nil, cfg.Logger)
	return &Worker{
		store:    cfg.Store,
		sender:   cfg.Sender,
		sign:     cfg.Sign,
		interval: interval,
		logger:   logger,
	}, nil
}

// Run drains the unsent set on each tick until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return fmt.Errorf("sync: worker is nil")
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.SyncOnce(ctx); err != nil {
				w.logger.Error("sync pass failed", "error", err)
			}
		}
	}
}

// SyncOnce sends every unsent record once, returning how many deliveries
// succeeded. A failed send leaves the record unsent for the next pass; a
// rejection from the counterparty is logged the same way, the record stays
// queued until an operator or a later merge resolves the disagreement.
func (w *Worker) SyncOnce(ctx context.Context) (int, error) {
	if w == nil {
		return 0, fmt.Errorf("sync: worker is nil")
	}
	records, err := w.store.ListUnsent(ctx)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, record := range records {
		cmd := core.FundsPullPreApprovalCommand{
			CorrelationID:       uuid.NewString(),
			MyActorAddress:      record.MyAddress(),
			FundPullPreApproval: record.Object,
			Inbound:             false,
		}
		if _, err := w.sender.SendCommand(ctx, cmd, w.sign); err != nil {
			w.logger.Error("pre-approval delivery failed",
				"id", record.ID(),
				"counterparty", record.CounterpartyAddress(),
				"error", err,
			)
			continue
		}
		if err := w.store.MarkSent(ctx, record.ID()); err != nil {
			w.logger.Error("cannot mark pre-approval sent", "id", record.ID(), "error", err)
			continue
		}
		sent++
	}
	if sent > 0 {
		w.logger.Info("pre-approval sync pass complete", "sent", sent, "pending", len(records)-sent)
	}
	return sent, nil
}
