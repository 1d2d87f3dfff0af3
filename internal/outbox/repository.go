package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sokol111/newsletter-publisher/pkg/persistence/mongo"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var (
	// ErrNoTask is returned by TryClaimOne when nothing is claimable.
	ErrNoTask = errors.New("no claimable outbox task")

	// ErrLeaseLost means the task was re-claimed by another worker after the
	// lease expired, or it is already gone.
	ErrLeaseLost = errors.New("outbox task lease lost")
)

// Repository is the write side used by the publishing transaction.
type Repository interface {
	// Enqueue inserts one task per recipient. Call it with a transaction context.
	Enqueue(ctx context.Context, issueID string, recipients []string) (int, error)

	// CountPending counts tasks of the issue not yet retired.
	CountPending(ctx context.Context, issueID string) (int64, error)
}

// TaskQueue is the side used by delivery workers.
type TaskQueue interface {
	// TryClaimOne leases the oldest claimable task to workerID for lease.
	// It returns ErrNoTask when the queue has nothing claimable.
	TryClaimOne(ctx context.Context, workerID string, lease time.Duration) (*Task, error)

	// Retire removes a task this worker still holds.
	Retire(ctx context.Context, task Task) error

	// Reschedule gives up the lease and makes the task claimable at nextAttemptAt.
	Reschedule(ctx context.Context, task Task, nextAttemptAt time.Time, errMsg string) error

	// Release gives up the lease without counting the attempt.
	Release(ctx context.Context, task Task) error
}

type store struct {
	coll mongo.Collection
	now  func() time.Time
}

func newStore(m mongo.Mongo) *store {
	return &store{
		coll: m.GetCollection(CollectionName),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *store) Enqueue(ctx context.Context, issueID string, recipients []string) (int, error) {
	if len(recipients) == 0 {
		return 0, nil
	}
	now := s.now()
	tasks := lo.Map(recipients, func(email string, _ int) Task {
		return Task{
			ID:             uuid.NewString(),
			IssueID:        issueID,
			RecipientEmail: email,
			CreatedAt:      now,
			LockExpiresAt:  now,
		}
	})
	if _, err := s.coll.InsertMany(ctx, tasks); err != nil {
		return 0, fmt.Errorf("failed to enqueue delivery tasks for issue %s: %w", issueID, err)
	}
	return len(tasks), nil
}

func (s *store) CountPending(ctx context.Context, issueID string) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.D{{Key: "issueId", Value: issueID}})
	if err != nil {
		return 0, fmt.Errorf("failed to count delivery tasks for issue %s: %w", issueID, err)
	}
	return n, nil
}

func (s *store) TryClaimOne(ctx context.Context, workerID string, lease time.Duration) (*Task, error) {
	now := s.now()

	opts := options.FindOneAndUpdate().
		SetSort(bson.D{
			{Key: "lockExpiresAt", Value: 1},
			{Key: "createdAt", Value: 1},
		}).
		SetReturnDocument(options.After)

	filter := bson.D{{Key: "lockExpiresAt", Value: bson.M{"$lte": now}}}
	update := bson.M{
		"$set": bson.M{
			"lockExpiresAt": now.Add(lease),
			"lockedBy":      workerID,
		},
		"$inc": bson.M{"attempts": 1},
	}

	var task Task
	err := s.coll.FindOneAndUpdate(ctx, filter, update, &task, opts)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, ErrNoTask
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim delivery task: %w", err)
	}
	return &task, nil
}

// leaseFilter matches the task only while the claim that produced it is the
// latest one.
func leaseFilter(task Task) bson.D {
	return bson.D{
		{Key: "_id", Value: task.ID},
		{Key: "lockedBy", Value: task.LockedBy},
		{Key: "lockExpiresAt", Value: task.LockExpiresAt},
	}
}

func (s *store) Retire(ctx context.Context, task Task) error {
	res, err := s.coll.DeleteOne(ctx, leaseFilter(task))
	if err != nil {
		return fmt.Errorf("failed to retire delivery task %s: %w", task.ID, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("failed to retire delivery task %s: %w", task.ID, ErrLeaseLost)
	}
	return nil
}

func (s *store) Reschedule(ctx context.Context, task Task, nextAttemptAt time.Time, errMsg string) error {
	return s.update(ctx, task, "reschedule", bson.M{
		"$set":   bson.M{"lockExpiresAt": nextAttemptAt.UTC(), "lastError": errMsg},
		"$unset": bson.M{"lockedBy": ""},
	})
}

func (s *store) Release(ctx context.Context, task Task) error {
	return s.update(ctx, task, "release", bson.M{
		"$set":   bson.M{"lockExpiresAt": s.now()},
		"$unset": bson.M{"lockedBy": ""},
		"$inc":   bson.M{"attempts": -1},
	})
}

func (s *store) update(ctx context.Context, task Task, op string, update bson.M) error {
	res, err := s.coll.UpdateOne(ctx, leaseFilter(task), update)
	if err != nil {
		return fmt.Errorf("failed to %s delivery task %s: %w", op, task.ID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("failed to %s delivery task %s: %w", op, task.ID, ErrLeaseLost)
	}
	return nil
}
