package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sokol111/newsletter-publisher/internal/idempotency"
	"github.com/Sokol111/newsletter-publisher/internal/issue"
	"github.com/Sokol111/newsletter-publisher/internal/outbox"
	"github.com/Sokol111/newsletter-publisher/internal/subscriber"
	"github.com/Sokol111/newsletter-publisher/pkg/core/logger"
	"github.com/Sokol111/newsletter-publisher/pkg/observability/tracing"
	"github.com/Sokol111/newsletter-publisher/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/Sokol111/newsletter-publisher/internal/publish"

const (
	outcomePublished  = "published"
	outcomeReplayed   = "replayed"
	outcomeInvalid    = "invalid"
	outcomeInProgress = "in_progress"
	outcomeFailed     = "failed"
)

// Processor executes publish commands.
type Processor interface {
	// Publish returns the response of the first successful execution for the
	// command's (caller, key). The issue and one outbox task per confirmed
	// recipient are committed together with that response, or not at all.
	//
	// Errors: *ValidationError, idempotency.ErrInProgress, or a storage error.
	Publish(ctx context.Context, cmd Command) (idempotency.CachedResponse, error)
}

type processor struct {
	store      idempotency.Store
	issues     issue.Repository
	recipients subscriber.Source
	outbox     outbox.Repository
	tx         persistence.TxManager
	conf       Config
	validate   *validator.Validate
	tracer     trace.Tracer
	commands   metric.Int64Counter
	now        func() time.Time
}

func newProcessor(
	store idempotency.Store,
	issues issue.Repository,
	recipients subscriber.Source,
	ob outbox.Repository,
	tx persistence.TxManager,
	conf Config,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (*processor, error) {
	commands, err := mp.Meter(instrumentationName).Int64Counter("newsletter.publish.commands",
		metric.WithDescription("Publish commands by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create publish counter: %w", err)
	}
	return &processor{
		store:      store,
		issues:     issues,
		recipients: recipients,
		outbox:     ob,
		tx:         tx,
		conf:       conf,
		validate:   newValidator(),
		tracer:     tp.Tracer(instrumentationName),
		commands:   commands,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

func (p *processor) Publish(ctx context.Context, cmd Command) (resp idempotency.CachedResponse, err error) {
	ctx, span := p.tracer.Start(ctx, "publish.Publish", trace.WithAttributes(
		attribute.String("caller.id", cmd.CallerID),
	))
	outcome := outcomeFailed
	defer func() {
		span.SetAttributes(attribute.String("publish.outcome", outcome))
		if outcome == outcomeFailed {
			tracing.MarkFailed(span, err)
		}
		span.End()
		p.commands.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}()

	key, err := validate(p.validate, cmd)
	if err != nil {
		outcome = outcomeInvalid
		return idempotency.CachedResponse{}, err
	}
	log := logger.Get(ctx).With(zap.String("caller_id", cmd.CallerID), zap.String("idempotency_key", key.String()))

	res, err := p.store.ClaimOrFetch(ctx, cmd.CallerID, key)
	if err != nil {
		if errors.Is(err, idempotency.ErrInProgress) {
			outcome = outcomeInProgress
		}
		return idempotency.CachedResponse{}, err
	}
	if !res.Started() {
		outcome = outcomeReplayed
		log.Debug("replaying cached publish response")
		return *res.Cached, nil
	}

	resp, err = p.commit(ctx, cmd, *res.Claim)
	if err != nil {
		p.release(ctx, *res.Claim, log)
		return idempotency.CachedResponse{}, err
	}
	outcome = outcomePublished
	return resp, nil
}

type committed struct {
	issueID    string
	recipients int
	response   idempotency.CachedResponse
}

// commit runs the unit of work detached from ctx's cancellation.
func (p *processor) commit(ctx context.Context, cmd Command, claim idempotency.Claim) (idempotency.CachedResponse, error) {
	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.conf.CommitTimeout)
	defer cancel()

	out, err := p.tx.WithTransaction(txCtx, func(txCtx context.Context) (any, error) {
		iss := issue.New(cmd.Title, cmd.TextContent, cmd.HTMLContent, cmd.CallerID, claim.Key.String(), p.now())
		if err := p.issues.Insert(txCtx, iss); err != nil {
			return nil, err
		}

		recipients, err := p.recipients.ConfirmedRecipients(txCtx)
		if err != nil {
			return nil, err
		}
		n, err := p.outbox.Enqueue(txCtx, iss.ID, recipients)
		if err != nil {
			return nil, err
		}

		resp, err := publishedResponse(iss.ID, n)
		if err != nil {
			return nil, err
		}
		if err := p.store.Complete(txCtx, claim, resp); err != nil {
			return nil, err
		}
		return committed{issueID: iss.ID, recipients: n, response: resp}, nil
	})
	if err != nil {
		return idempotency.CachedResponse{}, fmt.Errorf("failed to publish newsletter issue: %w", err)
	}

	c := out.(committed)
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("issue.id", c.issueID),
		attribute.Int("issue.recipients", c.recipients),
	)
	logger.Get(ctx).Info("newsletter issue published",
		zap.String("issue_id", c.issueID),
		zap.Int("recipients", c.recipients),
		zap.String("caller_id", cmd.CallerID),
	)
	return c.response, nil
}

func (p *processor) release(ctx context.Context, claim idempotency.Claim, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.conf.ReleaseTimeout)
	defer cancel()
	if err := p.store.Release(ctx, claim); err != nil {
		log.Warn("failed to release idempotency claim, it will be taken over after the claim timeout", zap.Error(err))
	}
}
