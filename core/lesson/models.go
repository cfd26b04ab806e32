package lesson

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/alama/core"
)

// difficulty levels
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

var Difficulties = []string{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced}

// SignImage points at the reference image (or clip) for one sign in a lesson.
type SignImage struct {
	Sign string `json:"sign"`
	URL  string `json:"url"`
}

// Lesson is one unit of the sign-language curriculum. Signs is the ordered
// vocabulary the learner works through; its order drives progress tracking.
type Lesson struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Category      string      `json:"category"`
	Difficulty    string      `json:"difficulty"`
	Description   string      `json:"description,omitempty"`
	Signs         []string    `json:"signs"`
	SignImages    []SignImage `json:"sign_images,omitempty"`
	Instructions  string      `json:"instructions,omitempty"`
	EstimatedTime int         `json:"estimated_time"` // minutes
	Points        int         `json:"points"`
	IsActive      *bool       `json:"is_active"`
	DisplayOrder  int         `json:"display_order"`
	CreatedBy     string      `json:"created_by,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func (l *Lesson) SetActive(active bool) { l.IsActive = &active }

func (l *Lesson) Active() bool {
	if l.IsActive == nil {
		return false
	}
	return *l.IsActive
}

// HasSign reports whether sign is part of this lesson's vocabulary.
func (l *Lesson) HasSign(sign string) bool {
	for _, s := range l.Signs {
		if s == sign {
			return true
		}
	}
	return false
}

// NewLesson contains information needed to create a new Lesson.
type NewLesson struct {
	Name          string      `json:"name" validate:"required"`
	Category      string      `json:"category" validate:"required"`
	Difficulty    string      `json:"difficulty" validate:"required,difficulty"`
	Description   string      `json:"description"`
	Signs         []string    `json:"signs" validate:"required,min=1,unique"`
	SignImages    []SignImage `json:"sign_images"`
	Instructions  string      `json:"instructions"`
	EstimatedTime int         `json:"estimated_time" validate:"omitempty,gt=0"`
	Points        int         `json:"points" validate:"omitempty,gte=0"`
	DisplayOrder  int         `json:"display_order" validate:"omitempty,gte=0"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Name = core.CleanString(nl.Name)
	nl.Category = core.CleanString(nl.Category, true /* lower */)
	nl.Description = core.CleanString(nl.Description)
	nl.Instructions = core.CleanString(nl.Instructions)
	for i, sign := range nl.Signs {
		nl.Signs[i] = core.CleanString(sign)
	}
	return validate.Struct(nl)
}

// UpdateLesson defines what information may be provided to modify an existing Lesson.
// Zero-value fields are left untouched.
type UpdateLesson struct {
	Name          string      `json:"name"`
	Category      string      `json:"category"`
	Difficulty    string      `json:"difficulty" validate:"omitempty,difficulty"`
	Description   *string     `json:"description"`
	Signs         []string    `json:"signs" validate:"omitempty,min=1,unique"`
	SignImages    []SignImage `json:"sign_images"`
	Instructions  *string     `json:"instructions"`
	EstimatedTime int         `json:"estimated_time" validate:"omitempty,gt=0"`
	Points        *int        `json:"points" validate:"omitempty,gte=0"`
	IsActive      *bool       `json:"is_active"`
	DisplayOrder  *int        `json:"display_order" validate:"omitempty,gte=0"`
}

func (ul *UpdateLesson) Validate(validate *validator.Validate) error {
	ul.Name = core.CleanString(ul.Name)
	ul.Category = core.CleanString(ul.Category, true /* lower */)
	for i, sign := range ul.Signs {
		ul.Signs[i] = core.CleanString(sign)
	}
	return validate.Struct(ul)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Category    string    `query:"category"`
	Difficulty  string    `query:"difficulty"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Category == "" && qf.Difficulty == "" &&
		qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Category = core.CleanString(qf.Category, true /* lower */)
	qf.Difficulty = core.CleanString(qf.Difficulty, true /* lower */)
}
