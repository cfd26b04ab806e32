package review

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/alama/core"
)

type fakeRepo struct {
	mu      sync.Mutex
	reviews map[string]Review // by ID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{reviews: make(map[string]Review)}
}

func (r *fakeRepo) CreateReview(_ context.Context, rev Review) (Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.reviews {
		if existing.UserID == rev.UserID {
			return Review{}, core.NewIntegrityError("duplicate review for user")
		}
	}
	rev.ID = uuid.New().String()
	r.reviews[rev.ID] = rev
	return rev, nil
}

func (r *fakeRepo) QueryReviews(_ context.Context, filter *QueryFilter, limit int, _ ...core.DBOrdering) ([]Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Review
	for _, rev := range r.reviews {
		if filter != nil && filter.Status != "" && rev.Status != filter.Status {
			continue
		}
		if filter != nil && filter.Rating != 0 && rev.Rating != filter.Rating {
			continue
		}
		out = append(out, rev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRepo) GetReview(_ context.Context, id string) (Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rev, ok := r.reviews[id]
	if !ok {
		return Review{}, ErrNotFound
	}
	return rev, nil
}

func (r *fakeRepo) GetUserReview(_ context.Context, userID string) (Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rev := range r.reviews {
		if rev.UserID == userID {
			return rev, nil
		}
	}
	return Review{}, ErrNotFound
}

func (r *fakeRepo) UpdateReview(_ context.Context, rev Review) (Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reviews[rev.ID]; !ok {
		return Review{}, ErrNotFound
	}
	r.reviews[rev.ID] = rev
	return rev, nil
}

func (r *fakeRepo) DeleteReviewsByID(_ context.Context, ids ...string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	for _, id := range ids {
		if _, ok := r.reviews[id]; ok {
			delete(r.reviews, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) CountReviews(_ context.Context, status string, _, _ time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	for _, rev := range r.reviews {
		if status == "" || rev.Status == status {
			n++
		}
	}
	return n, nil
}

func TestCreateReview(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()
	userID := uuid.New().String()

	rev, err := svc.Create(ctx, userID, "Awa Traore", NewReview{Rating: 5, Body: "Great lessons, my signing improved fast."})
	if err != nil {
		t.Fatalf("expected no error; got %v", err)
	}
	if rev.Status != StatusPending {
		t.Errorf("expected new review pending; got %q", rev.Status)
	}

	// one review per user
	if _, err = svc.Create(ctx, userID, "Awa Traore", NewReview{Rating: 4, Body: "Trying to review twice here."}); err != ErrReviewExists {
		t.Errorf("expected ErrReviewExists; got %v", err)
	}
}

func TestUpdateReviewResetsModeration(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()
	userID := uuid.New().String()

	rev, err := svc.Create(ctx, userID, "Sam Okoth", NewReview{Rating: 3, Body: "Solid content but the drills repeat."})
	if err != nil {
		t.Fatalf("expected no error; got %v", err)
	}
	if rev, err = svc.Moderate(ctx, rev.ID, StatusApproved); err != nil {
		t.Fatalf("expected no error; got %v", err)
	}
	if rev.Status != StatusApproved {
		t.Fatalf("expected approved; got %q", rev.Status)
	}

	rev, err = svc.Update(ctx, userID, UpdateReview{Rating: 4})
	if err != nil {
		t.Fatalf("expected no error; got %v", err)
	}
	if rev.Rating != 4 {
		t.Errorf("expected rating updated to 4; got %d", rev.Rating)
	}
	if rev.Status != StatusPending {
		t.Errorf("expected edit to reset status to pending; got %q", rev.Status)
	}
}

func TestModerateRejectsUnknownStatus(t *testing.T) {
	svc := NewService(newFakeRepo())
	if _, err := svc.Moderate(context.Background(), uuid.New().String(), "archived"); err != ErrInvalidStatus {
		t.Errorf("expected ErrInvalidStatus; got %v", err)
	}
}

func TestPublicListing(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	// seed more approved reviews than the cap, plus noise in other statuses
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < PublicLimit+5; i++ {
		rev := Review{
			ID:        uuid.New().String(),
			UserID:    uuid.New().String(),
			Rating:    5,
			Body:      "Wonderful course, highly recommended.",
			Status:    StatusApproved,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		repo.reviews[rev.ID] = rev
	}
	pending := Review{ID: uuid.New().String(), UserID: uuid.New().String(), Rating: 1, Body: "Still waiting on moderation.", Status: StatusPending}
	repo.reviews[pending.ID] = pending

	revs, err := svc.Public(ctx)
	if err != nil {
		t.Fatalf("expected no error; got %v", err)
	}
	if len(revs) != PublicLimit {
		t.Errorf("expected %d reviews; got %d", PublicLimit, len(revs))
	}
	for i, rev := range revs {
		if rev.Status != StatusApproved {
			t.Errorf("non-approved review in public listing: %+v", rev)
		}
		if i > 0 && rev.CreatedAt.After(revs[i-1].CreatedAt) {
			t.Error("public listing not newest-first")
		}
	}
}
