package review

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/alama/core"
)

// moderation statuses
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

var Statuses = []string{StatusPending, StatusApproved, StatusRejected}

// Review is a user's testimonial. Each user may leave at most one; it starts
// pending and becomes publicly visible only once approved.
type Review struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Rating    int       `json:"rating"`
	Body      string    `json:"body"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewReview contains information needed to create a new Review.
type NewReview struct {
	Rating int    `json:"rating" validate:"required,gte=1,lte=5"`
	Body   string `json:"body" validate:"required,min=10"`
}

func (nr *NewReview) Validate(validate *validator.Validate) error {
	nr.Body = core.CleanString(nr.Body)
	return validate.Struct(nr)
}

// UpdateReview defines what a user may change on their own review. Any edit
// sends the review back to moderation.
type UpdateReview struct {
	Rating int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Body   string `json:"body" validate:"omitempty,min=10"`
}

func (ur *UpdateReview) Validate(validate *validator.Validate) error {
	ur.Body = core.CleanString(ur.Body)
	return validate.Struct(ur)
}

type QueryFilter struct {
	Status      string    `query:"status"`
	Rating      int       `query:"rating"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Status == "" && qf.Rating == 0 && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
