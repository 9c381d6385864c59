package usage

import (
	"context"
	"sync"
	"time"

	"github.com/pipelineatlas/atlas-api/config"
	"github.com/pipelineatlas/atlas-api/observability"
	"github.com/pipelineatlas/atlas-api/repositories"
	"go.uber.org/zap"
)

// Worker consumes AI usage and scan request events from the stream broker
// and folds them into per-tenant counters.
//
// Every delivered message is acknowledged exactly once, whether it processed
// cleanly or not: a malformed payload is logged and dropped rather than
// poisoning the group's pending list. Counter updates for a batch commit in
// one transaction.
//
// Shutdown is observed between batches only: cancellation interrupts the
// blocking read, but a batch that is already in flight finishes its commit
// and ack sequence before the loop exits. Tearing a batch down mid-flight
// would leave its messages unacked on a ">"-only reader, losing them for
// good.
type Worker struct {
	broker  Broker
	tenants repositories.TenantRepository
	tx      repositories.TransactionManager
	cfg     config.WorkerConfig
	metrics *observability.Metrics
	logger  *zap.Logger

	cancelRead context.CancelFunc
	stop       chan struct{}
	stopOnce   sync.Once
	done       chan struct{}
}

// NewWorker creates a usage worker. Metrics may be nil.
func NewWorker(
	broker Broker,
	tenants repositories.TenantRepository,
	tx repositories.TransactionManager,
	cfg config.WorkerConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		broker:  broker,
		tenants: tenants,
		tx:      tx,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}
}

// Start creates the consumer groups and launches the consume loop. A group
// creation failure is logged but does not abort startup; the read loop
// retries with backoff until the broker recovers.
func (w *Worker) Start(ctx context.Context) {
	readCtx, cancel := context.WithCancel(ctx)
	w.cancelRead = cancel
	w.stop = make(chan struct{})
	w.done = make(chan struct{})

	for _, stream := range []string{w.cfg.UsageStream, w.cfg.ScanStream} {
		if err := w.broker.EnsureGroup(readCtx, stream, w.cfg.Group); err != nil {
			w.logger.Warn("failed to create consumer group",
				zap.String("stream", stream),
				zap.Error(err))
		}
	}

	w.logger.Info("usage worker started",
		zap.String("group", w.cfg.Group),
		zap.String("consumer", w.cfg.Consumer),
		zap.Strings("streams", []string{w.cfg.UsageStream, w.cfg.ScanStream}))

	go w.run(readCtx)
}

// Stop interrupts the blocking read, waits for any in-flight batch to finish
// committing and acking, then returns once the loop has drained.
func (w *Worker) Stop() {
	if w.done == nil {
		return
	}
	w.stopOnce.Do(func() {
		close(w.stop)
		w.cancelRead()
	})
	<-w.done
	w.logger.Info("usage worker stopped")
}

func (w *Worker) run(readCtx context.Context) {
	defer close(w.done)

	// Batches run detached from read cancellation so that a shutdown
	// arriving mid-batch cannot roll back the commit or fail the acks.
	batchCtx := context.WithoutCancel(readCtx)

	streams := []string{w.cfg.UsageStream, w.cfg.ScanStream}
	for {
		select {
		case <-w.stop:
			return
		case <-readCtx.Done():
			return
		default:
		}

		messages, err := w.broker.ReadGroup(readCtx, w.cfg.Group, w.cfg.Consumer, streams, w.cfg.BatchSize, w.cfg.BlockTimeout)
		if err != nil {
			if readCtx.Err() != nil {
				return
			}
			w.logger.Error("usage worker read error", zap.Error(err))
			w.sleep(readCtx, w.cfg.RetryBackoff)
			continue
		}
		if len(messages) == 0 {
			continue
		}

		start := time.Now()
		err = w.tx.InTransaction(batchCtx, func(txCtx context.Context) error {
			for _, msg := range messages {
				w.handle(txCtx, msg)
			}
			return nil
		})
		if err != nil {
			w.logger.Error("usage worker batch error", zap.Error(err))
			w.sleep(readCtx, w.cfg.RetryBackoff)
			continue
		}

		if w.metrics != nil {
			w.metrics.WorkerBatchDuration.Observe(time.Since(start).Seconds())
		}
	}
}

// handle processes a single message and always acknowledges it
func (w *Worker) handle(ctx context.Context, msg Message) {
	defer func() {
		if err := w.broker.Ack(ctx, msg.Stream, w.cfg.Group, msg.ID); err != nil {
			w.logger.Error("failed to ack message",
				zap.String("stream", msg.Stream),
				zap.String("id", msg.ID),
				zap.Error(err))
		}
	}()

	if err := w.process(ctx, msg); err != nil {
		w.logger.Error("usage worker error processing message",
			zap.String("stream", msg.Stream),
			zap.String("id", msg.ID),
			zap.Error(err))
		w.count(msg.Stream, "error")
		return
	}
	w.count(msg.Stream, "ok")
}

func (w *Worker) process(ctx context.Context, msg Message) error {
	payload, err := DecodePayload(msg.Values)
	if err != nil {
		return err
	}
	tenantID := TenantID(payload)

	if err := w.tenants.UpsertTenant(ctx, tenantID); err != nil {
		return err
	}
	if err := w.tenants.EnsureUsage(ctx, tenantID); err != nil {
		return err
	}

	switch msg.Stream {
	case w.cfg.UsageStream:
		tokens := TokensUsed(payload)
		if err := w.tenants.AddTokens(ctx, tenantID, tokens); err != nil {
			return err
		}
		w.logger.Info("tracked token usage",
			zap.Int64("tokens", tokens),
			zap.String("tenant_id", tenantID))

	case w.cfg.ScanStream:
		if err := w.tenants.AddScan(ctx, tenantID); err != nil {
			return err
		}
		w.logger.Info("tracked scan request",
			zap.String("tenant_id", tenantID))

	default:
		w.logger.Debug("ignoring message from unknown stream",
			zap.String("stream", msg.Stream))
	}
	return nil
}

func (w *Worker) count(stream, outcome string) {
	if w.metrics != nil {
		w.metrics.WorkerMessagesTotal.WithLabelValues(stream, outcome).Inc()
	}
}

// sleep waits for the backoff period or until the context is cancelled
func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
