package producer

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

var errNoBrokers = errors.New("no kafka brokers available")

type metadataProvider interface {
	GetMetadata(topic *string, allTopics bool, timeoutMs int) (*kafka.Metadata, error)
}

// waitForBrokers polls cluster metadata until a broker answers. With
// failOnError false, an unreachable cluster is only logged.
func waitForBrokers(ctx context.Context, p metadataProvider, log *zap.Logger, timeout time.Duration, failOnError bool) error {
	log.Info("waiting for kafka brokers", zap.Duration("timeout", timeout))

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := pollBrokers(ctx, p, 100*time.Millisecond); err != nil {
		if failOnError {
			return err
		}
		log.Warn("brokers not ready, continuing", zap.Error(err))
		return nil
	}

	log.Info("producer ready")
	return nil
}

func pollBrokers(ctx context.Context, p metadataProvider, initialInterval time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialInterval
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 0

	err := backoff.Retry(func() error {
		meta, err := p.GetMetadata(nil, false, 5000)
		if err != nil {
			return err
		}
		if len(meta.Brokers) == 0 {
			return errNoBrokers
		}
		return nil
	}, backoff.WithContext(b, ctx))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
