// Package delivery drains the newsletter outbox: it claims one task at a
// time, sends the issue to the task's recipient and retires the task.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/Sokol111/newsletter-publisher/internal/email"
	"github.com/Sokol111/newsletter-publisher/internal/issue"
	"github.com/Sokol111/newsletter-publisher/internal/outbox"
	"github.com/Sokol111/newsletter-publisher/pkg/core/logger"
	"github.com/Sokol111/newsletter-publisher/pkg/observability/tracing"
	"github.com/Sokol111/newsletter-publisher/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const instrumentationName = "github.com/Sokol111/newsletter-publisher/internal/delivery"

// bookkeepingTimeout bounds the retire, reschedule and release writes, which
// must still happen when the iteration context has been cancelled.
const bookkeepingTimeout = 5 * time.Second

type Worker struct {
	tasks    outbox.TaskQueue
	issues   issue.Reader
	sender   email.Sender
	conf     Config
	clock    Clock
	limiter  *rate.Limiter
	log      *zap.Logger
	throttle *logger.LogThrottler
	tracer   trace.Tracer
	counter  metric.Int64Counter
	workerID string
}

type workerDeps struct {
	tasks    outbox.TaskQueue
	issues   issue.Reader
	sender   email.Sender
	conf     Config
	clock    Clock
	log      *zap.Logger
	tp       trace.TracerProvider
	mp       metric.MeterProvider
	workerID string
}

func newWorker(d workerDeps) (*Worker, error) {
	counter, err := d.mp.Meter(instrumentationName).Int64Counter("newsletter.delivery.tasks",
		metric.WithDescription("Outbox tasks processed by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create delivery counter: %w", err)
	}
	if d.clock == nil {
		d.clock = systemClock{}
	}
	var limiter *rate.Limiter
	if d.conf.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(d.conf.RateLimit), d.conf.RateBurst)
	}
	log := d.log.With(zap.String("worker_id", d.workerID))
	return &Worker{
		tasks:    d.tasks,
		issues:   d.issues,
		sender:   d.sender,
		conf:     d.conf,
		clock:    d.clock,
		limiter:  limiter,
		log:      log,
		throttle: logger.NewLogThrottler(log, time.Minute),
		tracer:   d.tp.Tracer(instrumentationName),
		counter:  counter,
		workerID: d.workerID,
	}, nil
}

// PanicError is a panic raised while a loop was handling a task. It stops Run.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Run polls the outbox with Config.Concurrency loops until ctx is cancelled.
// Loop i leases tasks as "<worker id>-<i>". Storage and send failures are
// retried; a panic stops every loop and is returned.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("delivery worker started",
		zap.Int("concurrency", w.conf.Concurrency),
		zap.Int("max_attempts", w.conf.MaxAttempts),
		zap.Duration("lease", w.conf.Lease),
	)
	g, ctx := errgroup.WithContext(ctx)
	for i := range w.conf.Concurrency {
		id := fmt.Sprintf("%s-%d", w.workerID, i)
		g.Go(func() error {
			return w.loop(ctx, id)
		})
	}
	return g.Wait()
}

func (w *Worker) loop(ctx context.Context, workerID string) error {
	for ctx.Err() == nil {
		outcome, err := w.iterate(ctx, workerID)
		var pause time.Duration
		var panicErr *PanicError
		switch {
		case errors.As(err, &panicErr):
			w.log.Error("delivery loop stopped by panic",
				zap.String("loop", workerID),
				zap.Any("panic", panicErr.Value),
				zap.ByteString("stack", panicErr.Stack),
			)
			return fmt.Errorf("delivery loop %s: %w", workerID, err)
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			w.throttle.Error("delivery-iteration", "delivery iteration failed",
				zap.String("loop", workerID), zap.Error(err))
			pause = w.conf.ErrorInterval
		case outcome == OutcomeEmpty:
			pause = w.conf.IdleInterval
		default:
			continue
		}
		if w.clock.Sleep(ctx, pause) != nil {
			return nil
		}
	}
	return nil
}

func (w *Worker) iterate(ctx context.Context, workerID string) (outcome Outcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			outcome, err = OutcomeEmpty, &PanicError{Value: rec, Stack: debug.Stack()}
		}
	}()
	return w.runOnce(ctx, workerID)
}

// RunOnce claims at most one task and drives it to a terminal state for this
// iteration. It returns an error for storage failures and cancellation; a failed send is
// reported through the outcome.
func (w *Worker) RunOnce(ctx context.Context) (Outcome, error) {
	return w.runOnce(ctx, w.workerID)
}

func (w *Worker) runOnce(ctx context.Context, workerID string) (Outcome, error) {
	// The send slot is taken before the claim so that a throttled loop
	// never sits on a leased task.
	slot, err := w.reserveSend(ctx)
	if err != nil {
		return OutcomeEmpty, err
	}
	task, err := w.tasks.TryClaimOne(ctx, workerID, w.conf.Lease)
	if err != nil {
		slot.cancel(w.clock.Now())
		if errors.Is(err, outbox.ErrNoTask) {
			return OutcomeEmpty, nil
		}
		return OutcomeEmpty, err
	}

	ctx, span := w.tracer.Start(ctx, "delivery.Deliver", trace.WithAttributes(
		attribute.String("issue.id", task.IssueID),
		attribute.String("outbox.task.id", task.ID),
		attribute.Int("outbox.task.attempt", task.Attempts),
	))
	defer span.End()

	outcome, err := w.process(ctx, *task)
	span.SetAttributes(attribute.String("outcome", outcome.String()))
	tracing.MarkFailed(span, err)
	w.counter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome.String())))
	return outcome, err
}

func (w *Worker) process(ctx context.Context, task outbox.Task) (Outcome, error) {
	log := w.log.With(
		zap.String("issue_id", task.IssueID),
		zap.String("recipient", task.RecipientEmail),
		zap.Int("attempt", task.Attempts),
	)

	iss, err := w.loadIssue(ctx, task)
	if errors.Is(err, persistence.ErrEntityNotFound) {
		log.Error("outbox task references a missing issue, dropping it")
		return OutcomeAbandoned, w.retire(ctx, log, task)
	}
	if err != nil {
		return OutcomeDeferred, errors.Join(err, w.release(ctx, log, task))
	}
	// A send started now could outlive the lease and race another worker.
	if left := task.LockExpiresAt.Sub(w.clock.Now()); left < w.conf.SendTimeout {
		log.Warn("lease too short to send, releasing task", zap.Duration("lease_left", left))
		return OutcomeDeferred, w.release(ctx, log, task)
	}

	err = w.send(ctx, iss, task.RecipientEmail)
	switch {
	case err == nil:
		log.Debug("newsletter delivered")
		return OutcomeDelivered, w.retire(ctx, log, task)
	case errors.Is(err, email.ErrSenderUnavailable):
		log.Warn("email sender unavailable, releasing task", zap.Error(err))
		return OutcomeDeferred, w.release(ctx, log, task)
	case ctx.Err() != nil:
		// Shutdown while sending. The lease expires on its own; handing the
		// task back early only lets another worker pick it up sooner.
		return OutcomeDeferred, errors.Join(ctx.Err(), w.release(ctx, log, task))
	}

	log.Error("failed to deliver newsletter", zap.Error(err))
	if task.Attempts < w.conf.MaxAttempts {
		next := w.clock.Now().Add(retryDelay(w.conf, task.Attempts))
		return OutcomeRescheduled, w.reschedule(ctx, log, task, next, err)
	}
	if w.conf.MaxAttempts > 1 {
		log.Error("giving up on recipient", zap.Int("max_attempts", w.conf.MaxAttempts))
	}
	return OutcomeAbandoned, w.retire(ctx, log, task)
}

// loadIssue reads the task's issue within the part of the lease that is not
// reserved for the send itself.
func (w *Worker) loadIssue(ctx context.Context, task outbox.Task) (*issue.Issue, error) {
	budget := task.LockExpiresAt.Sub(w.clock.Now()) - w.conf.SendTimeout
	if budget <= 0 {
		return nil, fmt.Errorf("no lease left to read issue %s: %w", task.IssueID, context.DeadlineExceeded)
	}
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	return w.issues.Get(ctx, task.IssueID)
}

// sendSlot is a reserved rate limiter token. The zero value is a no-op.
type sendSlot struct {
	r *rate.Reservation
}

func (s sendSlot) cancel(now time.Time) {
	if s.r != nil {
		s.r.CancelAt(now)
	}
}

// reserveSend takes a token from the limiter and waits until it may be used.
func (w *Worker) reserveSend(ctx context.Context) (sendSlot, error) {
	if w.limiter == nil {
		return sendSlot{}, nil
	}
	now := w.clock.Now()
	r := w.limiter.ReserveN(now, 1)
	if !r.OK() {
		return sendSlot{}, fmt.Errorf("rate limiter burst %d cannot admit a send", w.limiter.Burst())
	}
	if delay := r.DelayFrom(now); delay > 0 {
		if err := w.clock.Sleep(ctx, delay); err != nil {
			r.CancelAt(w.clock.Now())
			return sendSlot{}, err
		}
	}
	return sendSlot{r: r}, nil
}

func (w *Worker) send(ctx context.Context, iss *issue.Issue, recipient string) error {
	sendCtx, cancel := context.WithTimeout(ctx, w.conf.SendTimeout)
	defer cancel()
	return w.sender.Send(sendCtx, email.Message{
		To:      recipient,
		Subject: iss.Title,
		HTML:    iss.HTMLContent,
		Text:    iss.TextContent,
	})
}

func (w *Worker) retire(ctx context.Context, log *zap.Logger, task outbox.Task) error {
	ctx, cancel := bookkeepingContext(ctx)
	defer cancel()
	return w.leaseWrite(log, "retire", w.tasks.Retire(ctx, task))
}

func (w *Worker) release(ctx context.Context, log *zap.Logger, task outbox.Task) error {
	ctx, cancel := bookkeepingContext(ctx)
	defer cancel()
	return w.leaseWrite(log, "release", w.tasks.Release(ctx, task))
}

func (w *Worker) reschedule(ctx context.Context, log *zap.Logger, task outbox.Task, next time.Time, cause error) error {
	ctx, cancel := bookkeepingContext(ctx)
	defer cancel()
	return w.leaseWrite(log, "reschedule", w.tasks.Reschedule(ctx, task, next, cause.Error()))
}

// leaseWrite treats a lost lease as settled: another worker owns the task now.
func (w *Worker) leaseWrite(log *zap.Logger, op string, err error) error {
	if errors.Is(err, outbox.ErrLeaseLost) {
		log.Warn("outbox task lease lost before "+op, zap.Error(err))
		return nil
	}
	return err
}

func bookkeepingContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), bookkeepingTimeout)
}

// retryDelay is min(base * 2^(attempts-1), max).
func retryDelay(conf Config, attempts int) time.Duration {
	delay := conf.RetryBaseDelay
	for i := 1; i < attempts; i++ {
		if delay >= conf.RetryMaxDelay/2 {
			return conf.RetryMaxDelay
		}
		delay *= 2
	}
	return min(delay, conf.RetryMaxDelay)
}
