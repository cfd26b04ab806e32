package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/alama/core/review"
	"github.com/trezcool/alama/core/user"
	testutil "github.com/trezcool/alama/tests"
)

func Test_reviewApi_createAndModerate(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Awa Traore", "awatraore", "awa@test.alama", "", user.StudentRoles, true)
	adm := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.alama", "", user.AdminRoles, true)
	token := getToken(t, usr)

	// body too short
	req, rec := newAuthRequest(http.MethodPost, "/v1/me/review", token, marchallObj(t, review.NewReview{Rating: 5, Body: "short"}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
	}

	// create
	req, rec = newAuthRequest(http.MethodPost, "/v1/me/review", token, marchallObj(t, review.NewReview{Rating: 5, Body: "Makes daily practice simple."}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("failed! code = %v; body %v", rec.Code, rec.Body.String())
	}
	var rev review.Review
	if err := json.Unmarshal(rec.Body.Bytes(), &rev); err != nil {
		t.Fatalf("decoding review: %v", err)
	}
	if rev.Status != review.StatusPending {
		t.Errorf("expected pending status; got %q", rev.Status)
	}

	// one review per user
	req, rec = newAuthRequest(http.MethodPost, "/v1/me/review", token, marchallObj(t, review.NewReview{Rating: 4, Body: "Trying to sneak in another one."}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusConflict)
	}

	// pending reviews are not public
	req, rec = newRequest(http.MethodGet, "/v1/reviews")
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t)}, rec)

	// moderation is admin-only
	req, rec = newAuthRequest(http.MethodPut, "/v1/reviews/"+rev.ID+"/moderate", token, marchallObj(t, map[string]string{"status": review.StatusApproved}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusForbidden)
	}

	req, rec = newAuthRequest(http.MethodPut, "/v1/reviews/"+rev.ID+"/moderate", getToken(t, adm), marchallObj(t, map[string]string{"status": "archived"}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
	}

	req, rec = newAuthRequest(http.MethodPut, "/v1/reviews/"+rev.ID+"/moderate", getToken(t, adm), marchallObj(t, map[string]string{"status": review.StatusApproved}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %v", rec.Code, rec.Body.String())
	}

	// approved reviews show up publicly
	req, rec = newRequest(http.MethodGet, "/v1/reviews")
	app.ServeHTTP(rec, req)
	var public []review.Review
	if err := json.Unmarshal(rec.Body.Bytes(), &public); err != nil {
		t.Fatalf("decoding reviews: %v", err)
	}
	if len(public) != 1 || public[0].ID != rev.ID {
		t.Errorf("unexpected public listing: %+v", public)
	}

	// editing sends the review back to moderation
	req, rec = newAuthRequest(http.MethodPut, "/v1/me/review", token, marchallObj(t, review.UpdateReview{Body: "Even better after the last update."}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %v", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &rev); err != nil {
		t.Fatalf("decoding review: %v", err)
	}
	if rev.Status != review.StatusPending {
		t.Errorf("expected edit to reset status to pending; got %q", rev.Status)
	}
}

func Test_reviewApi_destroyMine(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Awa Traore", "awatraore", "awa@test.alama", "", user.StudentRoles, true)
	token := getToken(t, usr)

	// nothing to delete yet
	req, rec := newAuthRequest(http.MethodDelete, "/v1/me/review", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusNotFound)
	}

	req, rec = newAuthRequest(http.MethodPost, "/v1/me/review", token, marchallObj(t, review.NewReview{Rating: 5, Body: "Makes daily practice simple."}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("failed! code = %v; body %v", rec.Code, rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodDelete, "/v1/me/review", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("failed! code = %v; body %v", rec.Code, rec.Body.String())
	}

	// gone: a fresh review may be submitted again
	req, rec = newAuthRequest(http.MethodGet, "/v1/me/review", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusNotFound)
	}
	req, rec = newAuthRequest(http.MethodPost, "/v1/me/review", token, marchallObj(t, review.NewReview{Rating: 4, Body: "Back with a fresh verdict."}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("failed! code = %v; body %v", rec.Code, rec.Body.String())
	}
}
