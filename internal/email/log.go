package email

import (
	"context"

	"github.com/Sokol111/newsletter-publisher/pkg/core/logger"
	"go.uber.org/zap"
)

type logSender struct {
	from string
}

func newLogSender(from string) *logSender {
	return &logSender{from: from}
}

func (s *logSender) Send(ctx context.Context, msg Message) error {
	logger.Get(ctx).Info("email sent to log",
		zap.String("from", s.from),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("html_bytes", len(msg.HTML)),
		zap.Int("text_bytes", len(msg.Text)),
	)
	return nil
}
