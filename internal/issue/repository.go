package issue

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sokol111/newsletter-publisher/pkg/persistence"
	"github.com/Sokol111/newsletter-publisher/pkg/persistence/mongo"
	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
)

// Reader loads issues by id.
type Reader interface {
	// Get returns persistence.ErrEntityNotFound for an unknown id.
	Get(ctx context.Context, id string) (*Issue, error)
}

// Repository stores issues.
type Repository interface {
	Reader
	Insert(ctx context.Context, issue Issue) error
}

type repository struct {
	coll mongo.Collection
}

func newRepository(m mongo.Mongo) Repository {
	return &repository{coll: m.GetCollection(CollectionName)}
}

func (r *repository) Insert(ctx context.Context, issue Issue) error {
	if _, err := r.coll.InsertOne(ctx, issue); err != nil {
		return fmt.Errorf("failed to insert issue: %w", err)
	}
	return nil
}

func (r *repository) Get(ctx context.Context, id string) (*Issue, error) {
	var issue Issue
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}, &issue)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to get issue %s: %w", id, persistence.ErrEntityNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get issue %s: %w", id, err)
	}
	return &issue, nil
}
