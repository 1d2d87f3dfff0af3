package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sokol111/newsletter-publisher/pkg/persistence"
	"github.com/Sokol111/newsletter-publisher/pkg/persistence/mongo"
	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
)

// CollectionName holds one document per (callerId, key), enforced by the
// ux_idempotency_caller_key unique index.
const CollectionName = "idempotency"

var errDuplicateKey = errors.New("idempotency key already recorded")

type repository interface {
	// Insert returns errDuplicateKey when a record for the pair exists.
	Insert(ctx context.Context, rec Record) error

	// Find returns persistence.ErrEntityNotFound when there is no record.
	Find(ctx context.Context, callerID, key string) (*Record, error)

	// Retoken moves a claim whose claimedAt is not after staleBefore to newToken.
	Retoken(ctx context.Context, claim Claim, newToken string, staleBefore, now time.Time) (bool, error)

	MarkCompleted(ctx context.Context, claim Claim, resp CachedResponse, now time.Time) (bool, error)

	ResetClaim(ctx context.Context, claim Claim) (bool, error)
}

type mongoRepository struct {
	coll mongo.Collection
}

func newMongoRepository(m mongo.Mongo) repository {
	return &mongoRepository{coll: m.GetCollection(CollectionName)}
}

func claimFilter(claim Claim) bson.D {
	return bson.D{
		{Key: "callerId", Value: claim.CallerID},
		{Key: "key", Value: claim.Key.String()},
		{Key: "status", Value: StatusClaimed},
		{Key: "claimToken", Value: claim.Token},
	}
}

func (r *mongoRepository) Insert(ctx context.Context, rec Record) error {
	_, err := r.coll.InsertOne(ctx, rec)
	if mongodriver.IsDuplicateKeyError(err) {
		return errDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("failed to insert idempotency record: %w", err)
	}
	return nil
}

func (r *mongoRepository) Find(ctx context.Context, callerID, key string) (*Record, error) {
	var rec Record
	err := r.coll.FindOne(ctx, bson.D{{Key: "callerId", Value: callerID}, {Key: "key", Value: key}}, &rec)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to get idempotency record: %w", persistence.ErrEntityNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get idempotency record: %w", err)
	}
	return &rec, nil
}

func (r *mongoRepository) Retoken(ctx context.Context, claim Claim, newToken string, staleBefore, now time.Time) (bool, error) {
	filter := append(claimFilter(claim), bson.E{Key: "claimedAt", Value: bson.M{"$lte": staleBefore}})
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{"claimToken": newToken, "claimedAt": now},
	})
	if err != nil {
		return false, fmt.Errorf("failed to take over idempotency claim: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (r *mongoRepository) MarkCompleted(ctx context.Context, claim Claim, resp CachedResponse, now time.Time) (bool, error) {
	res, err := r.coll.UpdateOne(ctx, claimFilter(claim), bson.M{
		"$set":   bson.M{"status": StatusCompleted, "response": resp, "completedAt": now},
		"$unset": bson.M{"claimToken": ""},
	})
	if err != nil {
		return false, fmt.Errorf("failed to complete idempotency record: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (r *mongoRepository) ResetClaim(ctx context.Context, claim Claim) (bool, error) {
	res, err := r.coll.UpdateOne(ctx, claimFilter(claim), bson.M{
		"$set": bson.M{"claimedAt": time.Time{}},
	})
	if err != nil {
		return false, fmt.Errorf("failed to release idempotency claim: %w", err)
	}
	return res.MatchedCount == 1, nil
}
