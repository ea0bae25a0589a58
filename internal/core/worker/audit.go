// Package worker runs the background audit drain: state transitions hand
// their audit entries to a buffered channel and carry on, a single goroutine
// persists them. A slow or failing audit table degrades to lost entries and
// error logs, never to a blocked payment operation.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/ibrahimkeyboad/swiftportal/internal/core/domain"
)

// Sink is where drained entries land, usually the pgx audit repository.
type Sink interface {
	Record(ctx context.Context, entry domain.AuditEntry) error
}

const (
	defaultBuffer = 256
	persistWindow = 5 * time.Second
)

type AsyncAuditRecorder struct {
	sink Sink
	ch   chan domain.AuditEntry
	done chan struct{}
}

// StartAuditRecorder spawns the drain goroutine.
func StartAuditRecorder(sink Sink) *AsyncAuditRecorder {
	r := &AsyncAuditRecorder{
		sink: sink,
		ch:   make(chan domain.AuditEntry, defaultBuffer),
		done: make(chan struct{}),
	}

	go func() {
		defer close(r.done)
		slog.Info("👷 Audit worker started")
		for entry := range r.ch {
			ctx, cancel := context.WithTimeout(context.Background(), persistWindow)
			if err := r.sink.Record(ctx, entry); err != nil {
				slog.Error("Worker: failed to persist audit entry",
					"error", err, "action", entry.Action, "entry_id", entry.ID)
			}
			cancel()
		}
	}()
	return r
}

// Record queues the entry and never blocks the caller: with a full buffer
// the entry is dropped and logged. The returned error is always nil; it
// exists to satisfy the workflow's recorder contract.
func (r *AsyncAuditRecorder) Record(ctx context.Context, entry domain.AuditEntry) error {
	select {
	case r.ch <- entry:
	default:
		slog.Error("Audit buffer full, dropping entry", "action", entry.Action, "entry_id", entry.ID)
	}
	return nil
}

// Close drains the buffer and stops the worker. Call on shutdown so queued
// entries reach the store.
func (r *AsyncAuditRecorder) Close() {
	close(r.ch)
	<-r.done
}
