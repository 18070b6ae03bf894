package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"copywatch/internal/domain"
	"copywatch/internal/ports"
	"copywatch/internal/wiki"
)

// Review failure taxonomy. Each sentinel maps to a distinct boundary code
// and user-facing message.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrBlocked      = errors.New("blocked")
	ErrDatabase     = errors.New("database")
	ErrWrongUser    = errors.New("wrong_user")
)

// ReviewServiceDeps wires the review state machine.
type ReviewServiceDeps struct {
	Store     ports.RecordStore
	Directory ports.WikiDirectory
	Target    wiki.Target
	// Privileged actors may undo reviews made by anyone.
	Privileged []string
	Now        func() time.Time
}

// ReviewService owns the per-record review transitions:
// Ready -> {Fixed, NoAction} -> Ready (via undo). Re-applying the current
// non-ready status is interpreted as an undo request.
type ReviewService struct {
	store      ports.RecordStore
	directory  ports.WikiDirectory
	target     wiki.Target
	privileged map[string]struct{}
	now        func() time.Time
}

// NewReviewService constructs the state machine component.
func NewReviewService(deps ReviewServiceDeps) *ReviewService {
	privileged := make(map[string]struct{}, len(deps.Privileged))
	for _, actor := range deps.Privileged {
		privileged[actor] = struct{}{}
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &ReviewService{
		store:      deps.Store,
		directory:  deps.Directory,
		target:     deps.Target,
		privileged: privileged,
		now:        now,
	}
}

// Apply transitions the record to the target status, or back to ready when
// the target equals the stored status (toggle). The stored status is fetched
// immediately before deciding which transition runs.
func (s *ReviewService) Apply(ctx context.Context, actor string, id int64, target domain.ReviewStatus) (domain.ReviewReceipt, error) {
	if err := s.checkActor(ctx, actor); err != nil {
		return domain.ReviewReceipt{}, err
	}

	if target != domain.StatusFixed && target != domain.StatusNoAction {
		return domain.ReviewReceipt{}, fmt.Errorf("invalid target status %d", target)
	}

	current, reviewer, err := s.store.CurrentStatus(ctx, id)
	if err != nil {
		return domain.ReviewReceipt{}, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if current == target {
		if err := s.undo(ctx, actor, id, reviewer); err != nil {
			return domain.ReviewReceipt{}, err
		}
		return domain.ReviewReceipt{Status: domain.StatusReady}, nil
	}

	at := s.now()
	if err := s.store.UpdateReview(ctx, id, target, actor, at); err != nil {
		return domain.ReviewReceipt{}, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return domain.ReviewReceipt{
		Status:      target,
		User:        actor,
		UserPageURL: s.target.UserPageURL(actor),
		Timestamp:   domain.FormatWikiTime(at),
	}, nil
}

// Undo reverts a record to ready. Only the original reviewer or a
// privileged actor may undo.
func (s *ReviewService) Undo(ctx context.Context, actor string, id int64) error {
	if err := s.checkActor(ctx, actor); err != nil {
		return err
	}

	current, reviewer, err := s.store.CurrentStatus(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	// Already ready: the undo is idempotent.
	if current == domain.StatusReady {
		return nil
	}

	return s.undo(ctx, actor, id, reviewer)
}

func (s *ReviewService) undo(ctx context.Context, actor string, id int64, reviewer string) error {
	if actor != reviewer {
		if _, ok := s.privileged[actor]; !ok {
			return ErrWrongUser
		}
	}

	if err := s.store.ClearReview(ctx, id); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

func (s *ReviewService) checkActor(ctx context.Context, actor string) error {
	if actor == "" {
		return ErrUnauthorized
	}

	blocked, err := s.directory.IsActorBlocked(ctx, actor)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	if blocked {
		return ErrBlocked
	}

	return nil
}
