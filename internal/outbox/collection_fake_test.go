package outbox

import (
	"context"
	"errors"

	"github.com/Sokol111/newsletter-publisher/pkg/persistence/mongo"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var errNotStubbed = errors.New("not stubbed")

// fakeCollection records calls and answers with stubbed results.
type fakeCollection struct {
	inserted []any
	filters  []any
	updates  []any

	insertManyErr    error
	findAndUpdate    func(result any) error
	deleteResult     *mongodriver.DeleteResult
	updateResult     *mongodriver.UpdateResult
	count            int64
	insertManyCalled int
}

var _ mongo.Collection = (*fakeCollection)(nil)

func (f *fakeCollection) FindOne(context.Context, any, any, ...options.Lister[options.FindOneOptions]) error {
	return errNotStubbed
}

func (f *fakeCollection) FindAll(context.Context, any, any, ...options.Lister[options.FindOptions]) error {
	return errNotStubbed
}

func (f *fakeCollection) FindOneAndUpdate(_ context.Context, filter any, update any, result any, _ ...options.Lister[options.FindOneAndUpdateOptions]) error {
	f.filters = append(f.filters, filter)
	f.updates = append(f.updates, update)
	if f.findAndUpdate == nil {
		return mongodriver.ErrNoDocuments
	}
	return f.findAndUpdate(result)
}

func (f *fakeCollection) InsertOne(context.Context, any, ...options.Lister[options.InsertOneOptions]) (*mongodriver.InsertOneResult, error) {
	return nil, errNotStubbed
}

func (f *fakeCollection) InsertMany(_ context.Context, documents any, _ ...options.Lister[options.InsertManyOptions]) (*mongodriver.InsertManyResult, error) {
	f.insertManyCalled++
	f.inserted = append(f.inserted, documents)
	if f.insertManyErr != nil {
		return nil, f.insertManyErr
	}
	return &mongodriver.InsertManyResult{}, nil
}

func (f *fakeCollection) UpdateOne(_ context.Context, filter any, update any, _ ...options.Lister[options.UpdateOneOptions]) (*mongodriver.UpdateResult, error) {
	f.filters = append(f.filters, filter)
	f.updates = append(f.updates, update)
	return f.updateResult, nil
}

func (f *fakeCollection) DeleteOne(_ context.Context, filter any, _ ...options.Lister[options.DeleteOneOptions]) (*mongodriver.DeleteResult, error) {
	f.filters = append(f.filters, filter)
	return f.deleteResult, nil
}

func (f *fakeCollection) CountDocuments(_ context.Context, filter any, _ ...options.Lister[options.CountOptions]) (int64, error) {
	f.filters = append(f.filters, filter)
	return f.count, nil
}

func (f *fakeCollection) Name() string {
	return CollectionName
}
