package review

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
)

var (
	// errors
	ErrNotFound      = errors.New("review not found")
	ErrReviewExists  = errors.New("you have already left a review")
	ErrInvalidStatus = errors.New("invalid review status")
)

// PublicLimit caps how many approved reviews the public listing returns.
const PublicLimit = 50

type (
	Repository interface {
		CreateReview(ctx context.Context, rev Review) (Review, error)
		QueryReviews(ctx context.Context, filter *QueryFilter, limit int, ordering ...core.DBOrdering) ([]Review, error)
		GetReview(ctx context.Context, id string) (Review, error)
		GetUserReview(ctx context.Context, userID string) (Review, error)
		UpdateReview(ctx context.Context, rev Review) (Review, error)
		DeleteReviewsByID(ctx context.Context, ids ...string) (int, error)
		CountReviews(ctx context.Context, status string, createdFrom, createdTo time.Time) (int, error)
	}

	Service interface {
		Create(ctx context.Context, userID, userName string, nr NewReview) (Review, error)
		Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Review, error)
		Public(ctx context.Context) ([]Review, error)
		GetByID(ctx context.Context, id string) (Review, error)
		GetByUserID(ctx context.Context, userID string) (Review, error)
		Update(ctx context.Context, userID string, ur UpdateReview) (Review, error)
		Moderate(ctx context.Context, id, status string) (Review, error)
		Delete(ctx context.Context, ids ...string) error
		Count(ctx context.Context, status string, createdFrom, createdTo time.Time) (int, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, userID, userName string, nr NewReview) (Review, error) {
	if _, err := svc.repo.GetUserReview(ctx, userID); err == nil {
		return Review{}, ErrReviewExists
	} else if errors.Cause(err) != ErrNotFound {
		return Review{}, err
	}

	now := time.Now().UTC()
	rev := Review{
		UserID:    userID,
		UserName:  userName,
		Rating:    nr.Rating,
		Body:      nr.Body,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	rev, err := svc.repo.CreateReview(ctx, rev)
	if err != nil {
		// unique user_id key closes the check-then-insert race
		if core.IsIntegrityError(err) {
			return Review{}, ErrReviewExists
		}
		return Review{}, err
	}
	return rev, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Review, error) {
	if filter != nil {
		filter.Clean()
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	return svc.repo.QueryReviews(ctx, filter, 0, ordering...)
}

// Public lists the newest approved reviews, capped at PublicLimit.
func (svc *service) Public(ctx context.Context) ([]Review, error) {
	filter := &QueryFilter{Status: StatusApproved}
	return svc.repo.QueryReviews(ctx, filter, PublicLimit, core.DBOrdering{Field: "created_at"})
}

func (svc *service) GetByID(ctx context.Context, id string) (Review, error) {
	return svc.repo.GetReview(ctx, id)
}

func (svc *service) GetByUserID(ctx context.Context, userID string) (Review, error) {
	return svc.repo.GetUserReview(ctx, userID)
}

func (svc *service) Update(ctx context.Context, userID string, ur UpdateReview) (Review, error) {
	rev, err := svc.repo.GetUserReview(ctx, userID)
	if err != nil {
		return Review{}, err
	}
	if ur.Rating != 0 {
		rev.Rating = ur.Rating
	}
	if ur.Body != "" {
		rev.Body = ur.Body
	}
	// edits go back through moderation
	rev.Status = StatusPending
	rev.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateReview(ctx, rev)
}

func (svc *service) Moderate(ctx context.Context, id, status string) (Review, error) {
	if status != StatusApproved && status != StatusRejected {
		return Review{}, ErrInvalidStatus
	}
	rev, err := svc.repo.GetReview(ctx, id)
	if err != nil {
		return Review{}, err
	}
	rev.Status = status
	rev.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateReview(ctx, rev)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteReviewsByID(ctx, ids...)
	return err
}

func (svc *service) Count(ctx context.Context, status string, createdFrom, createdTo time.Time) (int, error) {
	return svc.repo.CountReviews(ctx, status, createdFrom, createdTo)
}
