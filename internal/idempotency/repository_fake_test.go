package idempotency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sokol111/newsletter-publisher/pkg/persistence"
)

// fakeRepository mirrors the Mongo repository with a unique (caller, key) index.
type fakeRepository struct {
	mu        sync.Mutex
	records   map[string]*Record
	insertErr error
	findErr   error
	inserts   int
	finds     int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{records: make(map[string]*Record)}
}

func recordID(callerID, key string) string {
	return callerID + "\x00" + key
}

func (f *fakeRepository) Insert(_ context.Context, rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.insertErr != nil {
		return f.insertErr
	}
	id := recordID(rec.CallerID, rec.Key)
	if _, ok := f.records[id]; ok {
		return errDuplicateKey
	}
	f.records[id] = &rec
	return nil
}

func (f *fakeRepository) Find(_ context.Context, callerID, key string) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finds++
	if f.findErr != nil {
		return nil, f.findErr
	}
	rec, ok := f.records[recordID(callerID, key)]
	if !ok {
		return nil, fmt.Errorf("failed to get idempotency record: %w", persistence.ErrEntityNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeRepository) held(claim Claim) *Record {
	rec, ok := f.records[recordID(claim.CallerID, claim.Key.String())]
	if !ok || rec.Status != StatusClaimed || rec.ClaimToken != claim.Token {
		return nil
	}
	return rec
}

func (f *fakeRepository) Retoken(_ context.Context, claim Claim, newToken string, staleBefore, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.held(claim)
	if rec == nil || rec.ClaimedAt.After(staleBefore) {
		return false, nil
	}
	rec.ClaimToken = newToken
	rec.ClaimedAt = now
	return true, nil
}

func (f *fakeRepository) MarkCompleted(_ context.Context, claim Claim, resp CachedResponse, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.held(claim)
	if rec == nil {
		return false, nil
	}
	rec.Status = StatusCompleted
	rec.Response = &resp
	rec.ClaimToken = ""
	rec.CompletedAt = &now
	return true, nil
}

func (f *fakeRepository) ResetClaim(_ context.Context, claim Claim) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.held(claim)
	if rec == nil {
		return false, nil
	}
	rec.ClaimedAt = time.Time{}
	return true, nil
}

func (f *fakeRepository) put(rec Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[recordID(rec.CallerID, rec.Key)] = &rec
}
