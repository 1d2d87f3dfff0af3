package subscriber

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sokol111/newsletter-publisher/pkg/core/logger"
	"github.com/Sokol111/newsletter-publisher/pkg/persistence/mongo"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

// CollectionName is owned by the subscription flow; this service only reads it.
const CollectionName = "subscriptions"

const StatusConfirmed = "confirmed"

// Source lists who receives a newly published issue.
type Source interface {
	// ConfirmedRecipients returns valid, de-duplicated addresses of confirmed
	// subscribers. Pass the publishing transaction's context so the list is
	// read from the same snapshot as the outbox writes.
	ConfirmedRecipients(ctx context.Context) ([]string, error)
}

type subscription struct {
	Email string `bson:"email"`
}

type mongoSource struct {
	coll     mongo.Collection
	validate *validator.Validate
}

func newMongoSource(m mongo.Mongo) Source {
	return &mongoSource{
		coll:     m.GetCollection(CollectionName),
		validate: validator.New(),
	}
}

func (s *mongoSource) ConfirmedRecipients(ctx context.Context) ([]string, error) {
	var subs []subscription
	opts := options.Find().SetProjection(bson.D{{Key: "email", Value: 1}})
	if err := s.coll.FindAll(ctx, bson.D{{Key: "status", Value: StatusConfirmed}}, &subs, opts); err != nil {
		return nil, fmt.Errorf("failed to list confirmed subscribers: %w", err)
	}
	return s.filter(ctx, lo.Map(subs, func(sub subscription, _ int) string { return sub.Email })), nil
}

// filter drops invalid addresses with a warning and keeps the first of any
// case-insensitive duplicates.
func (s *mongoSource) filter(ctx context.Context, emails []string) []string {
	valid := lo.Filter(emails, func(email string, _ int) bool {
		if err := s.validate.Var(email, "required,email"); err != nil {
			logger.Get(ctx).Warn("skipping a confirmed subscriber, their stored contact details are invalid",
				zap.String("email", email),
				zap.Error(err),
			)
			return false
		}
		return true
	})
	return lo.UniqBy(valid, strings.ToLower)
}
