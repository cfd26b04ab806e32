package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/alama/core/lesson"
	"github.com/trezcool/alama/core/user"
	testutil "github.com/trezcool/alama/tests"
)

func Test_lessonApi_query(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Awa Traore", "awatraore", "awa@test.alama", "", user.StudentRoles, true)
	adm := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.alama", "", user.AdminRoles, true)

	greetings := testutil.CreateLesson(t, lesRepo, "Greetings", "basics", lesson.DifficultyBeginner, []string{"Hello", "Thanks"}, 1, true)
	numbers := testutil.CreateLesson(t, lesRepo, "Numbers", "basics", lesson.DifficultyBeginner, []string{"One", "Two"}, 2, true)
	draft := testutil.CreateLesson(t, lesRepo, "Draft", "basics", lesson.DifficultyAdvanced, []string{"Later"}, 3, false)

	token := getToken(t, usr)
	admToken := getToken(t, adm)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/lessons", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Learners see active lessons only", path: "/v1/lessons", token: token,
			wantCode: http.StatusOK, wantData: marchallList(t, greetings, numbers),
		},
		{
			name: "Admin listing includes drafts", path: "/v1/lessons/all", token: admToken,
			wantCode: http.StatusOK, wantData: marchallList(t, greetings, numbers, draft),
		},
		{
			name: "Admin listing is admin-only", path: "/v1/lessons/all", token: token,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Active detail visible to learners", path: "/v1/lessons/" + greetings.ID, token: token,
			wantCode: http.StatusOK, wantData: marchallObj(t, greetings),
		},
		{
			name: "Inactive detail hidden from learners", path: "/v1/lessons/" + draft.ID, token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "Inactive detail visible to admin", path: "/v1/lessons/" + draft.ID, token: admToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, draft),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_lessonApi_create(t *testing.T) {
	app := setup(t)

	adm := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.alama", "", user.AdminRoles, true)
	admToken := getToken(t, adm)

	body := marchallObj(t, lesson.NewLesson{
		Name:       "Greetings",
		Category:   "basics",
		Difficulty: lesson.DifficultyBeginner,
		Signs:      []string{"Hello", "Thanks", "Please"},
	})
	req, rec := newAuthRequest(http.MethodPost, "/v1/lessons", admToken, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("failed! code = %v; body %v", rec.Code, rec.Body.String())
	}
	var les lesson.Lesson
	if err := json.Unmarshal(rec.Body.Bytes(), &les); err != nil {
		t.Fatalf("decoding lesson: %v", err)
	}
	if les.CreatedBy != adm.ID {
		t.Errorf("expected createdBy %q; got %q", adm.ID, les.CreatedBy)
	}

	// difficulty enum and duplicate signs are rejected
	for _, data := range []lesson.NewLesson{
		{Name: "Bad", Category: "basics", Difficulty: "expert", Signs: []string{"Hello"}},
		{Name: "Bad", Category: "basics", Difficulty: lesson.DifficultyBeginner, Signs: []string{"Hello", "Hello"}},
		{Name: "Bad", Category: "basics", Difficulty: lesson.DifficultyBeginner, Signs: nil},
	} {
		req, rec = newAuthRequest(http.MethodPost, "/v1/lessons", admToken, marchallObj(t, data))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("failed! code = %v; wantCode %v; body %v", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	}
}
