package admin

import (
	"context"
	"testing"
	"time"
)

// fakeCounter answers Count by the window it receives.
type fakeCounter struct {
	total   int
	windows map[string]int // "from|to" in RFC3339; zero times as ""
}

func winKey(from, to time.Time) string {
	var f, t string
	if !from.IsZero() {
		f = from.Format(time.RFC3339)
	}
	if !to.IsZero() {
		t = to.Format(time.RFC3339)
	}
	return f + "|" + t
}

func (c *fakeCounter) Count(_ context.Context, from, to time.Time) (int, error) {
	if from.IsZero() && to.IsZero() {
		return c.total, nil
	}
	return c.windows[winKey(from, to)], nil
}

type fakeCompletionCounter struct{ n int }

func (c *fakeCompletionCounter) CountCompleted(_ context.Context, _, _ time.Time) (int, error) {
	return c.n, nil
}

type fakeReviewCounter struct{ byStatus map[string]int }

func (c *fakeReviewCounter) Count(_ context.Context, status string, _, _ time.Time) (int, error) {
	return c.byStatus[status], nil
}

func TestDashboardStats(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	monthStart := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	prevMonthStart := monthStart.AddDate(0, -1, 0)
	weekStart := now.AddDate(0, 0, -7)

	users := &fakeCounter{
		total:   120,
		windows: map[string]int{winKey(monthStart, time.Time{}): 30},
	}
	// monthly buckets for the signup chart, oldest first; the previous-month
	// bucket doubles as the growth comparison window (30 vs 20 -> 50%)
	chartCounts := []int{5, 8, 12, 16, 20, 30}
	for i, n := range chartCounts {
		from := monthStart.AddDate(0, -(chartMonths - 1 - i), 0)
		users.windows[winKey(from, from.AddDate(0, 1, 0))] = n
	}
	if users.windows[winKey(prevMonthStart, monthStart)] != 20 {
		t.Fatal("bad seed: previous-month bucket must hold the growth baseline")
	}
	lessons := &fakeCounter{
		total:   15,
		windows: map[string]int{winKey(weekStart, time.Time{}): 2},
	}

	svc := NewService(users, lessons, &fakeCompletionCounter{n: 40}, &fakeReviewCounter{byStatus: map[string]int{"pending": 3}})
	stats, err := svc.DashboardStats(context.Background())
	if err != nil {
		t.Fatalf("expected no error; got %v", err)
	}

	if stats.TotalUsers != 120 {
		t.Errorf("expected 120 users; got %d", stats.TotalUsers)
	}
	if want := 50.0; stats.UserGrowthPercent != want { // 30 vs 20
		t.Errorf("expected growth %v%%; got %v%%", want, stats.UserGrowthPercent)
	}
	if stats.TotalLessons != 15 || stats.LessonsThisWeek != 2 {
		t.Errorf("unexpected lesson counts: %+v", stats)
	}
	if stats.CompletedLessons != 40 {
		t.Errorf("expected 40 completed lessons; got %d", stats.CompletedLessons)
	}
	if stats.PendingReviews != 3 {
		t.Errorf("expected 3 pending reviews; got %d", stats.PendingReviews)
	}

	if len(stats.SignupChart) != chartMonths {
		t.Fatalf("expected %d chart buckets; got %d", chartMonths, len(stats.SignupChart))
	}
	if stats.SignupChart[0].Month != "2026-03" || stats.SignupChart[chartMonths-1].Month != "2026-08" {
		t.Errorf("chart not oldest-first: %+v", stats.SignupChart)
	}
	for i, want := range chartCounts {
		if stats.SignupChart[i].Count != want {
			t.Errorf("bucket %s: got %d; want %d", stats.SignupChart[i].Month, stats.SignupChart[i].Count, want)
		}
	}
}

func TestGrowthPercent(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		previous int
		want     float64
	}{
		{"both zero", 0, 0, 0},
		{"from zero", 5, 0, 100},
		{"doubled", 20, 10, 100},
		{"halved", 10, 20, -50},
		{"flat", 10, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := growthPercent(tt.current, tt.previous); got != tt.want {
				t.Errorf("growthPercent(%d, %d) = %v; want %v", tt.current, tt.previous, got, tt.want)
			}
		})
	}
}
