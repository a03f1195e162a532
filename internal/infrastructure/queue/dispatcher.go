package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bongocat/webapp/internal/api/metrics"
	"github.com/bongocat/webapp/internal/core/domain"
	"github.com/bongocat/webapp/internal/core/ports"
	"github.com/bongocat/webapp/pkg/logger"
)

const (
	defaultWorkers = 2
	channelBuffer  = 64
	defaultTimeout = 30 * time.Second
)

var (
	ErrQueueFull = errors.New("mail queue full")
	ErrStopped   = errors.New("mail dispatcher stopped")
)

type Options struct {
	Workers int
	Buffer  int
	// Timeout bounds a single delivery attempt.
	Timeout time.Duration
}

// Dispatcher hands mails to a fixed set of workers so that callers never wait
// on the mail transport. Mails to the same recipient always land on the same
// worker and go out in the order they were queued.
type Dispatcher struct {
	workers []chan domain.Message
	mailer  ports.Mailer
	timeout time.Duration
	log     zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher wraps mailer. Zero options fall back to the defaults.
func NewDispatcher(mailer ports.Mailer, opts Options, log zerolog.Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Buffer <= 0 {
		opts.Buffer = channelBuffer
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	d := &Dispatcher{
		workers: make([]chan domain.Message, opts.Workers),
		mailer:  mailer,
		timeout: opts.Timeout,
		log:     logger.Component(log, "mail_dispatcher"),
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.Message, opts.Buffer)
	}
	return d
}

// Start launches the workers. They run until Stop closes their queues.
// Cancelling ctx aborts in-flight deliveries and every mail still queued is
// logged as dropped, so callers that want queued mail sent at shutdown start
// the dispatcher on a context that outlives the server.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Send queues msg without blocking. The caller's context only matters for
// the enqueue; delivery runs on the dispatcher's own context.
func (d *Dispatcher) Send(_ context.Context, msg domain.Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return ErrStopped
	}

	select {
	case d.workers[d.shardIndex(msg.To)] <- msg:
		metrics.MailQueueDepth.Inc()
		return nil
	default:
		metrics.MailDispatchTotal.WithLabelValues("dropped").Inc()
		return ErrQueueFull
	}
}

// Stop refuses new mails, lets the workers drain what is queued and waits
// for them to exit. Draining delivers unless the Start context is done.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) shardIndex(recipient string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(recipient))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.Message) {
	defer d.wg.Done()
	for msg := range ch {
		metrics.MailQueueDepth.Dec()
		if ctx.Err() != nil {
			metrics.MailDispatchTotal.WithLabelValues("dropped").Inc()
			d.log.Warn().
				Str("subject", msg.Subject).
				Int("worker_id", id).
				Msg("mail dropped, dispatcher context done")
			continue
		}
		d.deliver(ctx, id, msg)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, id int, msg domain.Message) {
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	err := d.mailer.Send(sendCtx, msg)
	metrics.MailSendDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.MailDispatchTotal.WithLabelValues("failed").Inc()
		d.log.Error().Err(err).
			Str("subject", msg.Subject).
			Int("worker_id", id).
			Msg("mail delivery failed")
		return
	}
	metrics.MailDispatchTotal.WithLabelValues("sent").Inc()
	d.log.Debug().Str("subject", msg.Subject).Int("worker_id", id).Msg("mail delivered")
}
