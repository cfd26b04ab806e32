package progress

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultAccuracy is assumed when an attempt is submitted without a score.
const DefaultAccuracy float64 = 70

// SignProgress tracks a single sign within a lesson. A record holds at most
// one entry per distinct sign; repeated attempts update the entry in place.
type SignProgress struct {
	Sign        string    `json:"sign"`
	Attempts    int       `json:"attempts"`
	Accuracy    float64   `json:"accuracy"`
	CompletedAt time.Time `json:"completed_at"`
}

// Record is the per-(user, lesson) progress state. Exactly one record exists
// per pair; it is created lazily on the first attempt and never deleted.
// Version backs the optimistic concurrency check in the storage layer.
type Record struct {
	ID               string         `json:"id"`
	UserID           string         `json:"user_id"`
	LessonID         string         `json:"lesson_id"`
	CompletedSigns   []SignProgress `json:"completed_signs"`
	CurrentSignIndex int            `json:"current_sign_index"`
	IsCompleted      bool           `json:"is_completed"`
	CompletedAt      time.Time      `json:"completed_at,omitempty"`
	TotalAttempts    int            `json:"total_attempts"`
	AverageAccuracy  float64        `json:"average_accuracy"`
	TimeSpent        int            `json:"time_spent"` // seconds
	LastAccessedAt   time.Time      `json:"last_accessed_at"`
	Version          int            `json:"-"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// signEntry returns a pointer into CompletedSigns for sign, or nil.
func (r *Record) signEntry(sign string) *SignProgress {
	for i := range r.CompletedSigns {
		if r.CompletedSigns[i].Sign == sign {
			return &r.CompletedSigns[i]
		}
	}
	return nil
}

// Attempt is one practice submission: user tried a sign with a given accuracy
// score over a given duration.
type Attempt struct {
	Sign      string   `json:"sign" validate:"required"`
	Accuracy  *float64 `json:"accuracy" validate:"omitempty,gte=0,lte=100"`
	TimeSpent int      `json:"time_spent" validate:"omitempty,gte=0"` // seconds
}

func (a *Attempt) Validate(validate *validator.Validate) error {
	return validate.Struct(a)
}

// accuracy returns the submitted score, or DefaultAccuracy if none was given.
func (a *Attempt) accuracy() float64 {
	if a.Accuracy == nil {
		return DefaultAccuracy
	}
	return *a.Accuracy
}

// Snapshot is the tracker state reported back after an attempt or on query.
type Snapshot struct {
	LessonID           string         `json:"lesson_id"`
	CompletedSigns     []SignProgress `json:"completed_signs"`
	CurrentSignIndex   int            `json:"current_sign_index"`
	IsCompleted        bool           `json:"is_completed"`
	CompletedAt        time.Time      `json:"completed_at,omitempty"`
	TotalAttempts      int            `json:"total_attempts"`
	AverageAccuracy    float64        `json:"average_accuracy"`
	TimeSpent          int            `json:"time_spent"`
	TotalSigns         int            `json:"total_signs"`
	ProgressPercentage float64        `json:"progress_percentage"`
}

// LessonSummary joins a user's progress record with its lesson metadata.
type LessonSummary struct {
	LessonID           string    `json:"lesson_id"`
	LessonName         string    `json:"lesson_name"`
	Category           string    `json:"category"`
	Difficulty         string    `json:"difficulty"`
	TotalSigns         int       `json:"total_signs"`
	CompletedSignCount int       `json:"completed_sign_count"`
	ProgressPercentage float64   `json:"progress_percentage"`
	IsCompleted        bool      `json:"is_completed"`
	AverageAccuracy    float64   `json:"average_accuracy"`
	TimeSpent          int       `json:"time_spent"`
	LastAccessedAt     time.Time `json:"last_accessed_at"`
}
