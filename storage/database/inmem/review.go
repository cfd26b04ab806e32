package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/review"
)

type reviewRepository struct {
	db *reviewTable
}

var _ review.Repository = (*reviewRepository)(nil)

func NewReviewRepository(db *DB) review.Repository {
	return &reviewRepository{db: db.review}
}

func (repo *reviewRepository) CreateReview(_ context.Context, rev review.Review) (review.Review, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.table {
		if existing.UserID == rev.UserID {
			return review.Review{}, core.NewIntegrityError("a review already exists for this user")
		}
	}
	rev.ID = uuid.New().String()
	repo.db.table[rev.ID] = &rev
	return rev, nil
}

func (repo *reviewRepository) QueryReviews(_ context.Context, filter *review.QueryFilter, limit int, ordering ...core.DBOrdering) ([]review.Review, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	reviews := make([]review.Review, 0)
	for _, rev := range repo.db.table {
		if matchReviewFilter(*rev, filter) {
			reviews = append(reviews, *rev)
		}
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].CreatedAt.After(reviews[j].CreatedAt) })
	if limit > 0 && len(reviews) > limit {
		reviews = reviews[:limit]
	}
	return reviews, nil
}

func matchReviewFilter(rev review.Review, filter *review.QueryFilter) bool {
	if filter == nil || filter.IsEmpty() {
		return true
	}
	if filter.Status != "" && rev.Status != filter.Status {
		return false
	}
	if filter.Rating != 0 && rev.Rating != filter.Rating {
		return false
	}
	if !filter.CreatedFrom.IsZero() && rev.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && !rev.CreatedAt.Before(filter.CreatedTo) {
		return false
	}
	return true
}

func (repo *reviewRepository) GetReview(_ context.Context, id string) (review.Review, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rev, ok := repo.db.table[id]; ok {
		return *rev, nil
	}
	return review.Review{}, review.ErrNotFound
}

func (repo *reviewRepository) GetUserReview(_ context.Context, userID string) (review.Review, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, rev := range repo.db.table {
		if rev.UserID == userID {
			return *rev, nil
		}
	}
	return review.Review{}, review.ErrNotFound
}

func (repo *reviewRepository) UpdateReview(_ context.Context, rev review.Review) (review.Review, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[rev.ID]; !ok {
		return review.Review{}, review.ErrNotFound
	}
	repo.db.table[rev.ID] = &rev
	return rev, nil
}

func (repo *reviewRepository) DeleteReviewsByID(_ context.Context, ids ...string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			n++
		}
	}
	return n, nil
}

func (repo *reviewRepository) CountReviews(_ context.Context, status string, createdFrom, createdTo time.Time) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var n int
	for _, rev := range repo.db.table {
		if status != "" && rev.Status != status {
			continue
		}
		if !createdFrom.IsZero() && rev.CreatedAt.Before(createdFrom) {
			continue
		}
		if !createdTo.IsZero() && !rev.CreatedAt.Before(createdTo) {
			continue
		}
		n++
	}
	return n, nil
}
