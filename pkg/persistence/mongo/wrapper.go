package mongo

import (
	"context"
	"time"

	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Middleware wraps a single collection operation.
type Middleware func(ctx context.Context, next func(context.Context) error) error

// WrapperOption configures a collection wrapper.
type WrapperOption func(*collectionWrapper)

// WithTimeout bounds each operation with its own deadline.
func WithTimeout(timeout time.Duration) WrapperOption {
	return WithMiddleware(func(ctx context.Context, next func(context.Context) error) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return next(ctx)
	})
}

// WithMiddleware appends mw. The first middleware added runs outermost.
func WithMiddleware(mw Middleware) WrapperOption {
	return func(w *collectionWrapper) {
		w.middlewares = append(w.middlewares, mw)
	}
}

type collectionWrapper struct {
	coll        driverCollection
	middlewares []Middleware
}

func newCollectionWrapper(coll driverCollection, opts ...WrapperOption) *collectionWrapper {
	if coll == nil {
		panic("mongo: collection cannot be nil")
	}
	w := &collectionWrapper{coll: coll}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *collectionWrapper) do(ctx context.Context, op func(context.Context) error) error {
	next := op
	for i := len(w.middlewares) - 1; i >= 0; i-- {
		mw, inner := w.middlewares[i], next
		next = func(ctx context.Context) error { return mw(ctx, inner) }
	}
	return next(ctx)
}

func (w *collectionWrapper) FindOne(ctx context.Context, filter any, result any, opts ...options.Lister[options.FindOneOptions]) error {
	return w.do(ctx, func(ctx context.Context) error {
		return w.coll.FindOne(ctx, filter, opts...).Decode(result)
	})
}

func (w *collectionWrapper) FindAll(ctx context.Context, filter any, results any, opts ...options.Lister[options.FindOptions]) error {
	return w.do(ctx, func(ctx context.Context) error {
		cursor, err := w.coll.Find(ctx, filter, opts...)
		if err != nil {
			return err
		}
		return cursor.All(ctx, results)
	})
}

func (w *collectionWrapper) FindOneAndUpdate(ctx context.Context, filter any, update any, result any, opts ...options.Lister[options.FindOneAndUpdateOptions]) error {
	return w.do(ctx, func(ctx context.Context) error {
		return w.coll.FindOneAndUpdate(ctx, filter, update, opts...).Decode(result)
	})
}

func (w *collectionWrapper) InsertOne(ctx context.Context, document any, opts ...options.Lister[options.InsertOneOptions]) (res *mongodriver.InsertOneResult, err error) {
	err = w.do(ctx, func(ctx context.Context) error {
		res, err = w.coll.InsertOne(ctx, document, opts...)
		return err
	})
	return res, err
}

func (w *collectionWrapper) InsertMany(ctx context.Context, documents any, opts ...options.Lister[options.InsertManyOptions]) (res *mongodriver.InsertManyResult, err error) {
	err = w.do(ctx, func(ctx context.Context) error {
		res, err = w.coll.InsertMany(ctx, documents, opts...)
		return err
	})
	return res, err
}

func (w *collectionWrapper) UpdateOne(ctx context.Context, filter any, update any, opts ...options.Lister[options.UpdateOneOptions]) (res *mongodriver.UpdateResult, err error) {
	err = w.do(ctx, func(ctx context.Context) error {
		res, err = w.coll.UpdateOne(ctx, filter, update, opts...)
		return err
	})
	return res, err
}

func (w *collectionWrapper) DeleteOne(ctx context.Context, filter any, opts ...options.Lister[options.DeleteOneOptions]) (res *mongodriver.DeleteResult, err error) {
	err = w.do(ctx, func(ctx context.Context) error {
		res, err = w.coll.DeleteOne(ctx, filter, opts...)
		return err
	})
	return res, err
}

func (w *collectionWrapper) CountDocuments(ctx context.Context, filter any, opts ...options.Lister[options.CountOptions]) (n int64, err error) {
	err = w.do(ctx, func(ctx context.Context) error {
		n, err = w.coll.CountDocuments(ctx, filter, opts...)
		return err
	})
	return n, err
}

func (w *collectionWrapper) Name() string {
	return w.coll.Name()
}
