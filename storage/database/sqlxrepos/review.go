package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/review"
)

type reviewRepository struct {
	db *sqlx.DB
}

var _ review.Repository = (*reviewRepository)(nil) // interface compliance check

func NewReviewRepository(db *sqlx.DB) *reviewRepository {
	return &reviewRepository{db: db}
}

type dbReview struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	UserName  string    `db:"user_name"`
	Rating    int       `db:"rating"`
	Body      string    `db:"body"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (repo reviewRepository) record(rev review.Review) dbReview {
	return dbReview{
		ID:        rev.ID,
		UserID:    rev.UserID,
		UserName:  rev.UserName,
		Rating:    rev.Rating,
		Body:      rev.Body,
		Status:    rev.Status,
		CreatedAt: rev.CreatedAt.UTC(),
		UpdatedAt: rev.UpdatedAt.UTC(),
	}
}

func (repo reviewRepository) model(rec dbReview) review.Review {
	return review.Review(rec)
}

func (repo reviewRepository) CreateReview(ctx context.Context, rev review.Review) (review.Review, error) {
	rev.ID = uuid.New().String()
	query := `
		INSERT INTO review (id, user_id, user_name, rating, body, status, created_at, updated_at)
		VALUES (:id, :user_id, :user_name, :rating, :body, :status, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, repo.record(rev)); err != nil {
		if isUniqueViolation(err) {
			return review.Review{}, core.NewIntegrityError("a review already exists for this user")
		}
		return review.Review{}, errors.Wrap(err, "creating review")
	}
	return rev, nil
}

func (repo reviewRepository) QueryReviews(ctx context.Context, filter *review.QueryFilter, limit int, ordering ...core.DBOrdering) ([]review.Review, error) {
	query := "SELECT * FROM review"
	var conds []string
	var args []interface{}

	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil && !filter.IsEmpty() {
		if filter.Status != "" {
			conds = append(conds, fmt.Sprintf("status = %s", arg(filter.Status)))
		}
		if filter.Rating != 0 {
			conds = append(conds, fmt.Sprintf("rating = %s", arg(filter.Rating)))
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, fmt.Sprintf("created_at >= %s", arg(filter.CreatedFrom.UTC())))
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, fmt.Sprintf("created_at < %s", arg(filter.CreatedTo.UTC())))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(ordering, core.DBOrdering{Field: "created_at"})
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	var recs []dbReview
	if err := repo.db.SelectContext(ctx, &recs, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying reviews")
	}
	reviews := make([]review.Review, 0, len(recs))
	for _, rec := range recs {
		reviews = append(reviews, repo.model(rec))
	}
	return reviews, nil
}

func (repo reviewRepository) GetReview(ctx context.Context, id string) (review.Review, error) {
	var rec dbReview
	if err := repo.db.GetContext(ctx, &rec, "SELECT * FROM review WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return review.Review{}, review.ErrNotFound
		}
		return review.Review{}, errors.Wrap(err, "getting review")
	}
	return repo.model(rec), nil
}

func (repo reviewRepository) GetUserReview(ctx context.Context, userID string) (review.Review, error) {
	var rec dbReview
	if err := repo.db.GetContext(ctx, &rec, "SELECT * FROM review WHERE user_id = $1", userID); err != nil {
		if err == sql.ErrNoRows {
			return review.Review{}, review.ErrNotFound
		}
		return review.Review{}, errors.Wrap(err, "getting user review")
	}
	return repo.model(rec), nil
}

func (repo reviewRepository) UpdateReview(ctx context.Context, rev review.Review) (review.Review, error) {
	query := `
		UPDATE review SET
			user_name = :user_name, rating = :rating, body = :body,
			status = :status, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, repo.record(rev))
	if err != nil {
		return review.Review{}, errors.Wrap(err, "updating review")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return review.Review{}, review.ErrNotFound
	}
	return rev, nil
}

func (repo reviewRepository) DeleteReviewsByID(ctx context.Context, ids ...string) (int, error) {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM review WHERE id = ANY($1)", pq.StringArray(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting reviews")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (repo reviewRepository) CountReviews(ctx context.Context, status string, createdFrom, createdTo time.Time) (int, error) {
	query := "SELECT COUNT(*) FROM review WHERE 1=1"
	var args []interface{}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if !createdFrom.IsZero() {
		args = append(args, createdFrom.UTC())
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !createdTo.IsZero() {
		args = append(args, createdTo.UTC())
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, errors.Wrap(err, "counting reviews")
	}
	return count, nil
}
