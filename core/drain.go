package core

import (
	"context"
	"errors"
	"fmt"
)

var errAttemptsExhausted = errors.New("retry attempts exhausted")

type DrainReport struct {
	Skipped   bool   `json:"skipped"`
	Reason    string `json:"reason,omitempty"`
	Claimed   int    `json:"claimed"`
	Delivered int    `json:"delivered"`
	Retried   int    `json:"retried"`
	Abandoned int    `json:"abandoned"`
	Failed    int    `json:"failed"`
}

type drainOutcome int

const (
	drainDelivered drainOutcome = iota
	drainRetried
	drainAbandoned
	drainFailed
)

// DrainPending retries the pending-delivery queue outside the cycle. The
// messaging probe runs first so a drain is never attempted against a channel
// known to be down.
func (r *Reconciler) DrainPending(ctx context.Context) (DrainReport, error) {
	if r.isShuttingDown() {
		return DrainReport{}, ErrShuttingDown
	}
	if err := r.gate.Check(ctx, DependencyMessaging); err != nil {
		return DrainReport{Skipped: true, Reason: "messaging offline"}, nil
	}
	return r.drain(ctx)
}

func (r *Reconciler) drain(ctx context.Context) (report DrainReport, err error) {
	if !r.drainGuard.TryAcquire(1) {
		return DrainReport{Skipped: true, Reason: "drain already running"}, nil
	}
	defer r.drainGuard.Release(1)

	startedAt := r.now()
	defer func() {
		if report.Claimed == 0 && err == nil {
			return
		}
		r.observeOperation(ctx, startedAt, "drain", err, map[string]any{
			"claimed":   report.Claimed,
			"delivered": report.Delivered,
			"retried":   report.Retried,
			"abandoned": report.Abandoned,
			"failed":    report.Failed,
		})
	}()

	entries, err := r.ledger.ListPending(ctx)
	if err != nil {
		r.observeDependency(err)
		r.policy.Report(ctx, "list_pending", err, nil)
		return report, err
	}
	r.mirror.Replace(entries)
	report.Claimed = len(entries)

	for _, entry := range entries {
		outcome := drainFailed
		fields := map[string]any{
			"order_number": entry.OrderNumber,
			"attempts":     entry.Attempts,
		}
		_ = r.policy.Run(ctx, "drain_entry", fields, func(ctx context.Context) error {
			var entryErr error
			outcome, entryErr = r.drainEntry(ctx, entry)
			return entryErr
		})
		switch outcome {
		case drainDelivered:
			report.Delivered++
		case drainRetried:
			report.Retried++
		case drainAbandoned:
			report.Abandoned++
		default:
			report.Failed++
		}
	}
	return report, nil
}

func (r *Reconciler) drainEntry(ctx context.Context, entry PendingEntry) (drainOutcome, error) {
	number := entry.OrderNumber
	maxAttempts := r.config.Reconcile.MaxAttempts
	// An earlier abandon may have persisted the final count and then failed to
	// dequeue. Finish that abandon without sending again.
	if entry.Attempts >= maxAttempts {
		return r.abandonEntry(ctx, number, entry.Attempts, errAttemptsExhausted)
	}

	attempt := entry.Attempts + 1
	sendErr := r.send(ctx, "send_retry", number, r.formatter.RetryMessage(entry.Snapshot, attempt))
	if sendErr == nil {
		if err := r.ledger.DequeuePending(ctx, number); err != nil {
			r.observeDependency(err)
			return drainFailed, err
		}
		r.mirror.Remove(number)
		r.policy.Record(ctx, LogKindSuccess, fmt.Sprintf("order #%s delivered on attempt %d", number, attempt))
		return drainDelivered, nil
	}

	if err := r.ledger.UpdateAttempts(ctx, number, attempt); err != nil {
		r.observeDependency(err)
		return drainFailed, err
	}
	if attempt < maxAttempts {
		r.policy.Record(ctx, LogKindWarning, fmt.Sprintf("retry %d for order #%s failed: %v", attempt, number, sendErr))
		return drainRetried, nil
	}
	return r.abandonEntry(ctx, number, attempt, sendErr)
}

func (r *Reconciler) abandonEntry(ctx context.Context, number string, attempts int, cause error) (drainOutcome, error) {
	if err := r.ledger.DequeuePending(ctx, number); err != nil {
		r.observeDependency(err)
		return drainFailed, err
	}
	r.mirror.Remove(number)
	r.policy.Record(ctx, LogKindError, fmt.Sprintf(
		"order #%s abandoned after %d attempts: %v",
		number,
		attempts,
		cause,
	))
	return drainAbandoned, nil
}
