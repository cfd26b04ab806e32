package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/alama/core/lesson"
	"github.com/trezcool/alama/core/progress"
	"github.com/trezcool/alama/core/user"
	testutil "github.com/trezcool/alama/tests"
)

func submitAttempt(t *testing.T, app http.Handler, token, lessonID string, att progress.Attempt) (progress.Snapshot, *int) {
	t.Helper()

	req, rec := newAuthRequest(http.MethodPost, "/v1/lessons/"+lessonID+"/attempts", token, marchallObj(t, att))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		return progress.Snapshot{}, &rec.Code
	}
	var snap progress.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	return snap, nil
}

func fPtr(f float64) *float64 { return &f }

func Test_progressApi_submitAttempt(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Awa Traore", "awatraore", "awa@test.alama", "", user.StudentRoles, true)
	les := testutil.CreateLesson(t, lesRepo, "Greetings", "basics", lesson.DifficultyBeginner, []string{"Hello", "Thanks", "Please"}, 1, true)
	token := getToken(t, usr)

	// expected sign advances the cursor
	snap, code := submitAttempt(t, app, token, les.ID, progress.Attempt{Sign: "Hello", Accuracy: fPtr(80), TimeSpent: 5})
	if code != nil {
		t.Fatalf("failed! code = %v", *code)
	}
	if snap.CurrentSignIndex != 1 || snap.IsCompleted || len(snap.CompletedSigns) != 1 {
		t.Errorf("unexpected snapshot after first attempt: %+v", snap)
	}

	// out-of-order sign records progress but does not advance the cursor
	snap, _ = submitAttempt(t, app, token, les.ID, progress.Attempt{Sign: "Please", Accuracy: fPtr(60)})
	if snap.CurrentSignIndex != 1 || len(snap.CompletedSigns) != 2 {
		t.Errorf("unexpected snapshot after out-of-order attempt: %+v", snap)
	}

	// finishing the vocabulary completes the lesson
	snap, _ = submitAttempt(t, app, token, les.ID, progress.Attempt{Sign: "Thanks", Accuracy: fPtr(90)})
	if !snap.IsCompleted {
		t.Errorf("expected completion: %+v", snap)
	}
	if snap.ProgressPercentage != 100 {
		t.Errorf("expected 100%% progress; got %v", snap.ProgressPercentage)
	}
	if snap.TotalAttempts != 3 {
		t.Errorf("expected 3 total attempts; got %v", snap.TotalAttempts)
	}

	// error cases
	if _, code = submitAttempt(t, app, token, les.ID, progress.Attempt{Sign: "Goodbye"}); code == nil || *code != http.StatusBadRequest {
		t.Errorf("expected %v for a sign outside the lesson; got %v", http.StatusBadRequest, code)
	}
	if _, code = submitAttempt(t, app, token, "ffffffff-0000-0000-0000-000000000000", progress.Attempt{Sign: "Hello"}); code == nil || *code != http.StatusNotFound {
		t.Errorf("expected %v for an unknown lesson; got %v", http.StatusNotFound, code)
	}

	req, rec := newRequest(http.MethodPost, "/v1/lessons/"+les.ID+"/attempts", marchallObj(t, progress.Attempt{Sign: "Hello"}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected %v without a token; got %v", http.StatusUnauthorized, rec.Code)
	}
}

func Test_progressApi_retrieve(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Awa Traore", "awatraore", "awa@test.alama", "", user.StudentRoles, true)
	les := testutil.CreateLesson(t, lesRepo, "Greetings", "basics", lesson.DifficultyBeginner, []string{"Hello", "Thanks"}, 1, true)
	token := getToken(t, usr)

	// no attempts yet: empty snapshot with the sign count
	req, rec := newAuthRequest(http.MethodGet, "/v1/lessons/"+les.ID+"/progress", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %v", rec.Code, rec.Body.String())
	}
	var snap progress.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if snap.TotalSigns != 2 || snap.ProgressPercentage != 0 {
		t.Errorf("unexpected empty snapshot: %+v", snap)
	}

	submitAttempt(t, app, token, les.ID, progress.Attempt{Sign: "Hello"})

	req, rec = newAuthRequest(http.MethodGet, "/v1/lessons/"+les.ID+"/progress", token)
	app.ServeHTTP(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if snap.ProgressPercentage != 50 {
		t.Errorf("expected 50%% progress; got %v", snap.ProgressPercentage)
	}
}

func Test_progressApi_summary(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Awa Traore", "awatraore", "awa@test.alama", "", user.StudentRoles, true)
	greetings := testutil.CreateLesson(t, lesRepo, "Greetings", "basics", lesson.DifficultyBeginner, []string{"Hello", "Thanks"}, 1, true)
	numbers := testutil.CreateLesson(t, lesRepo, "Numbers", "basics", lesson.DifficultyBeginner, []string{"One", "Two", "Three"}, 2, true)
	token := getToken(t, usr)

	submitAttempt(t, app, token, greetings.ID, progress.Attempt{Sign: "Hello"})
	submitAttempt(t, app, token, greetings.ID, progress.Attempt{Sign: "Thanks"})
	submitAttempt(t, app, token, numbers.ID, progress.Attempt{Sign: "One"})

	req, rec := newAuthRequest(http.MethodGet, "/v1/me/progress", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %v", rec.Code, rec.Body.String())
	}

	var summaries []progress.LessonSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("decoding summaries: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries; got %d", len(summaries))
	}
	// catalog display order
	if summaries[0].LessonID != greetings.ID || summaries[1].LessonID != numbers.ID {
		t.Errorf("unexpected ordering: %+v", summaries)
	}
	if !summaries[0].IsCompleted {
		t.Errorf("expected greetings completed: %+v", summaries[0])
	}
	if summaries[1].IsCompleted || summaries[1].CompletedSignCount != 1 {
		t.Errorf("unexpected numbers summary: %+v", summaries[1])
	}
}
