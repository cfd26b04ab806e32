package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/alama/core/admin"
	"github.com/trezcool/alama/core/lesson"
	"github.com/trezcool/alama/core/review"
	"github.com/trezcool/alama/core/user"
	testutil "github.com/trezcool/alama/tests"
)

func Test_adminApi_stats(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Student", "student1", "student@test.alama", "", user.StudentRoles, true)
	adm := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.alama", "", user.AdminRoles, true)
	testutil.CreateLesson(t, lesRepo, "Greetings", "basics", lesson.DifficultyBeginner, []string{"Hello"}, 1, true)
	testutil.CreateReview(t, revRepo, student, 5, "Makes daily practice simple.", review.StatusPending)

	// admin only
	req, rec := newAuthRequest(http.MethodGet, "/v1/admin/stats", getToken(t, student))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusForbidden)
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/admin/stats", getToken(t, adm))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %v", rec.Code, rec.Body.String())
	}

	var stats admin.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decoding stats: %v", err)
	}
	if stats.TotalUsers != 2 {
		t.Errorf("expected 2 users; got %d", stats.TotalUsers)
	}
	if stats.TotalLessons != 1 {
		t.Errorf("expected 1 lesson; got %d", stats.TotalLessons)
	}
	if stats.PendingReviews != 1 {
		t.Errorf("expected 1 pending review; got %d", stats.PendingReviews)
	}
	if len(stats.SignupChart) == 0 {
		t.Error("expected a signup chart series")
	}
}
