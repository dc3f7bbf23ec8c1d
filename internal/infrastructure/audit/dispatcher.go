// Package audit delivers assessment audit entries to one or more sinks.
// Delivery is asynchronous and best effort: the assessment path never waits on
// a sink and never sees a sink failure.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/credicefi/crediface/internal/domain/models"
	"github.com/credicefi/crediface/internal/domain/service"
	"github.com/credicefi/crediface/pkg/constants"
	"github.com/credicefi/crediface/pkg/errors"
	"github.com/credicefi/crediface/pkg/logger"
)

// Options tunes a Dispatcher. Zero values use the package defaults.
type Options struct {
	BufferSize   int
	Workers      int
	WriteTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.BufferSize <= 0 {
		o.BufferSize = constants.AuditDefaultBufferSize
	}
	if o.Workers <= 0 {
		o.Workers = constants.AuditDefaultWorkers
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = constants.AuditWriteTimeout
	}
	return o
}

type job struct {
	ctx   context.Context
	entry *models.AuditEntry
}

// Dispatcher fans audit entries out to its sinks from a bounded queue served by
// a fixed set of workers. When the queue is full new entries are dropped.
type Dispatcher struct {
	sinks   []service.AuditSink
	reader  service.AuditReader
	signer  *Signer
	opts    Options
	metrics service.Metrics
	logger  logger.Logger

	queue  chan job
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

var (
	_ service.AuditPublisher = (*Dispatcher)(nil)
	_ service.AuditReader    = (*Dispatcher)(nil)
)

// NewDispatcher starts the workers. signer and metrics may be nil. Reads are
// served by the first sink that implements service.AuditReader.
func NewDispatcher(sinks []service.AuditSink, signer *Signer, opts Options, metrics service.Metrics, log logger.Logger) *Dispatcher {
	opts = opts.withDefaults()
	if metrics == nil {
		metrics = service.NoopMetrics{}
	}

	d := &Dispatcher{
		sinks:   sinks,
		signer:  signer,
		opts:    opts,
		metrics: metrics,
		logger:  log.WithComponent("audit"),
		queue:   make(chan job, opts.BufferSize),
	}
	for _, s := range sinks {
		if r, ok := s.(service.AuditReader); ok {
			d.reader = r
			break
		}
	}

	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go d.worker()
	}
	return d
}

// Publish enqueues entry without blocking.
func (d *Dispatcher) Publish(ctx context.Context, entry *models.AuditEntry) {
	if entry == nil {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.metrics.RecordAuditDropped()
		d.logger.Warn(ctx, "Audit dispatcher closed, entry dropped", logger.String("request_id", entry.RequestID))
		return
	}

	select {
	case d.queue <- job{ctx: context.WithoutCancel(ctx), entry: entry}:
	default:
		d.metrics.RecordAuditDropped()
		d.logger.Warn(ctx, "Audit queue full, entry dropped",
			logger.String("request_id", entry.RequestID),
			logger.Int("buffer_size", d.opts.BufferSize),
		)
	}
}

// Recent returns the newest entries of a tenant from the reading sink.
func (d *Dispatcher) Recent(ctx context.Context, tenantID string, limit int) ([]*models.AuditEntry, error) {
	if d.reader == nil {
		return nil, errors.ErrServerError("no readable audit sink configured")
	}
	return d.reader.Recent(ctx, tenantID, limit)
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.queue {
		d.deliver(j)
	}
}

func (d *Dispatcher) deliver(j job) {
	entry := j.entry
	if d.signer != nil {
		if err := d.signer.Sign(entry); err != nil {
			d.logger.Warn(j.ctx, "Failed to sign audit entry", logger.String("request_id", entry.RequestID), logger.Err(err))
		}
	}

	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(j.ctx, d.opts.WriteTimeout)
		err := sink.Write(ctx, entry)
		cancel()
		if err != nil {
			d.metrics.RecordAuditFailure(sink.Name())
			d.logger.Warn(j.ctx, "Audit write failed",
				logger.String("sink", sink.Name()),
				logger.String("request_id", entry.RequestID),
				logger.Err(errors.ErrAuditWrite(sink.Name(), err)),
			)
		}
	}
}

// Close stops accepting entries, drains the queue and closes every sink. It
// returns ctx.Err() if draining does not finish in time.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		d.logger.Warn(ctx, "Audit queue not fully drained before shutdown", logger.Int("pending", len(d.queue)))
		return ctx.Err()
	}

	for _, sink := range d.sinks {
		if err := sink.Close(); err != nil {
			d.logger.Warn(ctx, "Failed to close audit sink", logger.String("sink", sink.Name()), logger.Err(err))
		}
	}
	d.logger.Info(ctx, "Audit dispatcher stopped")
	return nil
}
