// Package worker ties long-running loops such as the outbox delivery worker
// to the fx lifecycle.
package worker

import (
	"context"

	"github.com/Sokol111/newsletter-publisher/pkg/core/health"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const groupTag = `group:"workers"`

// Runnable is a long-running loop. Run returns nil once ctx is cancelled and
// an error only on a failure it cannot recover from.
type Runnable interface {
	Run(ctx context.Context) error
}

type gate struct {
	awaiting string
	wait     func(health.ReadinessWaiter, context.Context) error
}

type settings struct {
	gates         []gate
	exitOnFailure bool
}

type Option func(*settings)

// WithReady holds the loop back until every registered component is ready.
func WithReady() Option {
	return func(s *settings) {
		s.gates = append(s.gates, gate{awaiting: "components", wait: health.ReadinessWaiter.WaitReady})
	}
}

// WithTrafficReady holds the loop back until the readiness probe has
// succeeded once.
func WithTrafficReady() Option {
	return func(s *settings) {
		s.gates = append(s.gates, gate{awaiting: "traffic", wait: health.ReadinessWaiter.WaitForTrafficReady})
	}
}

// WithShutdown stops the whole application with exit code 1 when Run fails.
func WithShutdown() Option {
	return func(s *settings) {
		s.exitOnFailure = true
	}
}

type runner struct {
	name     string
	log      *zap.Logger
	loop     func(context.Context) error
	waiter   health.ReadinessWaiter
	shutdown fx.Shutdowner
	settings settings

	cancel context.CancelFunc
	done   chan struct{}
}

func (r *runner) start() {
	if r.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	r.log.Info("worker starting")
	go func() {
		defer close(r.done)
		r.supervise(ctx)
	}()
}

func (r *runner) supervise(ctx context.Context) {
	for _, g := range r.settings.gates {
		r.log.Info("worker waiting", zap.String("awaiting", g.awaiting))
		if err := g.wait(r.waiter, ctx); err != nil {
			r.log.Info("worker cancelled before it started", zap.String("awaiting", g.awaiting))
			return
		}
	}

	err := r.loop(ctx)
	switch {
	case err == nil || ctx.Err() != nil:
		r.log.Info("worker stopped")
	case !r.settings.exitOnFailure:
		r.log.Error("worker stopped with error", zap.Error(err))
	default:
		r.log.Error("worker failed, shutting the application down", zap.Error(err))
		if sdErr := r.shutdown.Shutdown(fx.ExitCode(1)); sdErr != nil {
			r.log.Error("failed to request shutdown", zap.Error(sdErr))
		}
	}
}

// stop cancels the loop and waits for it until ctx expires.
func (r *runner) stop(ctx context.Context) error {
	if r.cancel == nil {
		return nil
	}
	r.log.Info("worker stopping")
	r.cancel()
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		r.log.Warn("worker did not stop in time")
		return ctx.Err()
	}
}

// Register returns an fx constructor that runs the T provided elsewhere in
// the graph for the lifetime of the application.
//
//	worker.Register[*delivery.Worker]("delivery-worker", worker.WithReady())
func Register[T Runnable](name string, opts ...Option) any {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	return fx.Annotate(
		func(lc fx.Lifecycle, log *zap.Logger, sd fx.Shutdowner, waiter health.ReadinessWaiter, loop T) *runner {
			r := &runner{
				name:     name,
				log:      log.With(zap.String("worker", name)),
				loop:     loop.Run,
				waiter:   waiter,
				shutdown: sd,
				settings: s,
			}
			lc.Append(fx.StartStopHook(r.start, r.stop))
			return r
		},
		fx.ResultTags(groupTag),
	)
}

// Run forces construction of every registered worker. Include it once.
func Run() fx.Option {
	return fx.Invoke(fx.Annotate(
		func(runners []*runner) {
			for _, r := range runners {
				r.log.Debug("worker registered")
			}
		},
		fx.ParamTags(groupTag),
	))
}
