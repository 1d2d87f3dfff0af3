package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sokol111/newsletter-publisher/pkg/persistence"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrInProgress means another request holds the key and did not finish
	// within the wait timeout. The client should retry later.
	ErrInProgress = errors.New("request with this idempotency key is still being processed")

	// ErrClaimLost means the claim was taken over or released before Complete.
	ErrClaimLost = errors.New("idempotency claim lost")

	errStillClaimed = errors.New("idempotency key is claimed")
)

// Store deduplicates commands by (caller, key).
type Store interface {
	// ClaimOrFetch either claims the key for the caller or returns the cached
	// response of the execution that completed it. While another request
	// holds the key it waits, up to the configured timeout, then returns
	// ErrInProgress.
	ClaimOrFetch(ctx context.Context, callerID string, key Key) (ClaimResult, error)

	// Complete stores resp and marks the key completed. It must run in the
	// same transaction as the command's writes.
	Complete(ctx context.Context, claim Claim, resp CachedResponse) error

	// Release makes an unfinished claim immediately available to the next request.
	Release(ctx context.Context, claim Claim) error

	// Get returns persistence.ErrEntityNotFound when the key was never used.
	Get(ctx context.Context, callerID string, key Key) (*Record, error)
}

type store struct {
	repo     repository
	conf     Config
	log      *zap.Logger
	now      func() time.Time
	newToken func() string
}

func newStore(repo repository, conf Config, log *zap.Logger) *store {
	return &store{
		repo:     repo,
		conf:     conf,
		log:      log.With(zap.String("component", "idempotency")),
		now:      func() time.Time { return time.Now().UTC() },
		newToken: uuid.NewString,
	}
}

func (s *store) ClaimOrFetch(ctx context.Context, callerID string, key Key) (ClaimResult, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.conf.PollInterval
	b.MaxInterval = s.conf.MaxPollInterval
	b.MaxElapsedTime = s.conf.WaitTimeout

	var result ClaimResult
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		res, err := s.tryClaim(ctx, callerID, key)
		if err != nil {
			if errors.Is(err, errStillClaimed) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = res
		return nil
	}, backoff.WithContext(b, ctx))

	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, errStillClaimed):
		s.log.Info("idempotency key still in progress",
			zap.String("caller_id", callerID),
			zap.String("key", key.String()),
			zap.Int("attempts", attempts),
		)
		return ClaimResult{}, ErrInProgress
	default:
		return ClaimResult{}, err
	}
}

// tryClaim makes one attempt. It returns errStillClaimed while a live claim
// held by someone else exists.
func (s *store) tryClaim(ctx context.Context, callerID string, key Key) (ClaimResult, error) {
	now := s.now()
	claim := Claim{CallerID: callerID, Key: key, Token: s.newToken(), ClaimedAt: now}

	err := s.repo.Insert(ctx, Record{
		CallerID:   callerID,
		Key:        key.String(),
		Status:     StatusClaimed,
		ClaimToken: claim.Token,
		ClaimedAt:  now,
		CreatedAt:  now,
	})
	if err == nil {
		return started(claim), nil
	}
	if !errors.Is(err, errDuplicateKey) {
		return ClaimResult{}, err
	}

	rec, err := s.repo.Find(ctx, callerID, key.String())
	if errors.Is(err, persistence.ErrEntityNotFound) {
		return ClaimResult{}, errStillClaimed
	}
	if err != nil {
		return ClaimResult{}, err
	}

	if rec.Status == StatusCompleted {
		if rec.Response == nil {
			return ClaimResult{}, fmt.Errorf("completed idempotency record has no response: caller %s, key %s", callerID, key)
		}
		return alreadyCompleted(*rec.Response), nil
	}

	staleBefore := now.Add(-s.conf.ClaimTimeout)
	if rec.ClaimedAt.After(staleBefore) {
		return ClaimResult{}, errStillClaimed
	}

	held := Claim{CallerID: callerID, Key: key, Token: rec.ClaimToken}
	ok, err := s.repo.Retoken(ctx, held, claim.Token, staleBefore, now)
	if err != nil {
		return ClaimResult{}, err
	}
	if !ok {
		return ClaimResult{}, errStillClaimed
	}
	s.log.Warn("took over abandoned idempotency claim",
		zap.String("caller_id", callerID),
		zap.String("key", key.String()),
		zap.Time("claimed_at", rec.ClaimedAt),
	)
	return started(claim), nil
}

func (s *store) Complete(ctx context.Context, claim Claim, resp CachedResponse) error {
	ok, err := s.repo.MarkCompleted(ctx, claim, resp, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("failed to complete key %s: %w", claim.Key, ErrClaimLost)
	}
	return nil
}

func (s *store) Release(ctx context.Context, claim Claim) error {
	ok, err := s.repo.ResetClaim(ctx, claim)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("failed to release key %s: %w", claim.Key, ErrClaimLost)
	}
	return nil
}

func (s *store) Get(ctx context.Context, callerID string, key Key) (*Record, error) {
	return s.repo.Find(ctx, callerID, key.String())
}
