package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"copywatch/internal/domain"
	"copywatch/internal/wiki"
)

func newTestReviewService(store *fakeStore, dir *fakeDirectory, privileged ...string) *ReviewService {
	return NewReviewService(ReviewServiceDeps{
		Store:      store,
		Directory:  dir,
		Target:     wiki.Target{Lang: "en", Domain: "en.wikipedia.org"},
		Privileged: privileged,
		Now: func() time.Time {
			return time.Date(2025, time.March, 5, 10, 30, 0, 0, time.UTC)
		},
	})
}

func TestApplyRecordsReview(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := newTestReviewService(store, newFakeDirectory())

	receipt, err := svc.Apply(context.Background(), "Alice", 7, domain.StatusFixed)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFixed, receipt.Status)
	assert.Equal(t, "Alice", receipt.User)
	assert.Equal(t, "https://en.wikipedia.org/wiki/User:Alice", receipt.UserPageURL)
	assert.Equal(t, "10:30, 5 March 2025", receipt.Timestamp)
	assert.Equal(t, domain.StatusFixed, store.review(7).status)
}

func TestApplySameStatusTogglesToUndo(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := newTestReviewService(store, newFakeDirectory())
	ctx := context.Background()

	_, err := svc.Apply(ctx, "Alice", 7, domain.StatusFixed)
	require.NoError(t, err)

	receipt, err := svc.Apply(ctx, "Alice", 7, domain.StatusFixed)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusReady, receipt.Status)
	assert.Equal(t, domain.StatusReady, store.review(7).status)
	assert.Empty(t, store.review(7).reviewer)
}

func TestApplyDifferentStatusReplaces(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := newTestReviewService(store, newFakeDirectory())
	ctx := context.Background()

	_, err := svc.Apply(ctx, "Alice", 7, domain.StatusFixed)
	require.NoError(t, err)

	receipt, err := svc.Apply(ctx, "Bob", 7, domain.StatusNoAction)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusNoAction, receipt.Status)
	assert.Equal(t, "Bob", store.review(7).reviewer)
}

func TestApplyRejectsInvalidTarget(t *testing.T) {
	t.Parallel()

	svc := newTestReviewService(newFakeStore(), newFakeDirectory())

	_, err := svc.Apply(context.Background(), "Alice", 7, domain.StatusReady)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrDatabase)
}

func TestApplyUnauthorizedWithoutActor(t *testing.T) {
	t.Parallel()

	svc := newTestReviewService(newFakeStore(), newFakeDirectory())

	_, err := svc.Apply(context.Background(), "", 7, domain.StatusFixed)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestApplyBlockedActor(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	dir.blocked["Alice"] = true
	svc := newTestReviewService(newFakeStore(), dir)

	_, err := svc.Apply(context.Background(), "Alice", 7, domain.StatusFixed)
	assert.ErrorIs(t, err, ErrBlocked)
}

func TestApplyPersistenceFailure(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.updateErr = errors.New("deadlock")
	svc := newTestReviewService(store, newFakeDirectory())

	_, err := svc.Apply(context.Background(), "Alice", 7, domain.StatusFixed)
	assert.ErrorIs(t, err, ErrDatabase)
}

func TestUndoByWrongUser(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := newTestReviewService(store, newFakeDirectory())
	ctx := context.Background()

	_, err := svc.Apply(ctx, "Alice", 7, domain.StatusFixed)
	require.NoError(t, err)

	err = svc.Undo(ctx, "Bob", 7)
	assert.ErrorIs(t, err, ErrWrongUser)
	assert.Equal(t, domain.StatusFixed, store.review(7).status, "stored status unchanged")
}

func TestUndoByPrivilegedActor(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := newTestReviewService(store, newFakeDirectory(), "Admin")
	ctx := context.Background()

	_, err := svc.Apply(ctx, "Alice", 7, domain.StatusFixed)
	require.NoError(t, err)

	require.NoError(t, svc.Undo(ctx, "Admin", 7))
	assert.Equal(t, domain.StatusReady, store.review(7).status)
}

func TestUndoIdempotentWhenReady(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := newTestReviewService(store, newFakeDirectory())

	assert.NoError(t, svc.Undo(context.Background(), "Alice", 7))
}
