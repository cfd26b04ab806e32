// Package admin aggregates dashboard statistics for the back office.
package admin

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/review"
)

// chartMonths is how far back the signup chart reaches.
const chartMonths = 6

// mocked in tests
var nowFunc func() time.Time = time.Now

type (
	// Counter counts entities created within [from, to); zero bounds are open.
	// user.Service and lesson.Service satisfy it.
	Counter interface {
		Count(ctx context.Context, createdFrom, createdTo time.Time) (int, error)
	}

	// CompletionCounter counts lessons completed within the window.
	// progress.Service satisfies it via CountCompleted.
	CompletionCounter interface {
		CountCompleted(ctx context.Context, completedFrom, completedTo time.Time) (int, error)
	}

	// ReviewCounter counts reviews by moderation status.
	// review.Service satisfies it.
	ReviewCounter interface {
		Count(ctx context.Context, status string, createdFrom, createdTo time.Time) (int, error)
	}

	// Stats is the dashboard snapshot.
	Stats struct {
		TotalUsers        int          `json:"total_users"`
		UserGrowthPercent float64      `json:"user_growth_percent"` // this month vs last month
		TotalLessons      int          `json:"total_lessons"`
		LessonsThisWeek   int          `json:"lessons_this_week"`
		CompletedLessons  int          `json:"completed_lessons"`
		PendingReviews    int          `json:"pending_reviews"`
		SignupChart       []MonthCount `json:"signup_chart"`
	}

	MonthCount struct {
		Month string `json:"month"` // "2026-08"
		Count int    `json:"count"`
	}

	Service interface {
		DashboardStats(ctx context.Context) (Stats, error)
	}

	service struct {
		users       Counter
		lessons     Counter
		completions CompletionCounter
		reviews     ReviewCounter
	}
)

var _ Service = (*service)(nil)

func NewService(users, lessons Counter, completions CompletionCounter, reviews ReviewCounter) Service {
	return &service{
		users:       users,
		lessons:     lessons,
		completions: completions,
		reviews:     reviews,
	}
}

func (svc *service) DashboardStats(ctx context.Context) (Stats, error) {
	now := nowFunc().UTC()
	var stats Stats
	var err error

	if stats.TotalUsers, err = svc.users.Count(ctx, time.Time{}, time.Time{}); err != nil {
		return Stats{}, errors.Wrap(err, "counting users")
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	prevMonthStart := monthStart.AddDate(0, -1, 0)
	thisMonth, err := svc.users.Count(ctx, monthStart, time.Time{})
	if err != nil {
		return Stats{}, errors.Wrap(err, "counting users this month")
	}
	lastMonth, err := svc.users.Count(ctx, prevMonthStart, monthStart)
	if err != nil {
		return Stats{}, errors.Wrap(err, "counting users last month")
	}
	stats.UserGrowthPercent = growthPercent(thisMonth, lastMonth)

	if stats.TotalLessons, err = svc.lessons.Count(ctx, time.Time{}, time.Time{}); err != nil {
		return Stats{}, errors.Wrap(err, "counting lessons")
	}
	weekStart := now.AddDate(0, 0, -7)
	if stats.LessonsThisWeek, err = svc.lessons.Count(ctx, weekStart, time.Time{}); err != nil {
		return Stats{}, errors.Wrap(err, "counting lessons this week")
	}

	if stats.CompletedLessons, err = svc.completions.CountCompleted(ctx, time.Time{}, time.Time{}); err != nil {
		return Stats{}, errors.Wrap(err, "counting completed lessons")
	}

	if stats.PendingReviews, err = svc.reviews.Count(ctx, review.StatusPending, time.Time{}, time.Time{}); err != nil {
		return Stats{}, errors.Wrap(err, "counting pending reviews")
	}

	if stats.SignupChart, err = svc.signupChart(ctx, monthStart); err != nil {
		return Stats{}, errors.Wrap(err, "building signup chart")
	}
	return stats, nil
}

// signupChart counts new users per month for the last chartMonths months,
// oldest first, current month included.
func (svc *service) signupChart(ctx context.Context, monthStart time.Time) ([]MonthCount, error) {
	chart := make([]MonthCount, 0, chartMonths)
	for i := chartMonths - 1; i >= 0; i-- {
		from := monthStart.AddDate(0, -i, 0)
		to := from.AddDate(0, 1, 0)
		n, err := svc.users.Count(ctx, from, to)
		if err != nil {
			return nil, err
		}
		chart = append(chart, MonthCount{Month: from.Format("2006-01"), Count: n})
	}
	return chart, nil
}

func growthPercent(current, previous int) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return 100 * float64(current-previous) / float64(previous)
}
