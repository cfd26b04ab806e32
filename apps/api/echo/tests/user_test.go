package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/alama/core/user"
	testutil "github.com/trezcool/alama/tests"
)

func Test_userApi_login(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Awa Traore", "awatraore", "awa@test.alama", "LeopardsDuCongo#1", user.StudentRoles, true)
	testutil.CreateUser(t, usrRepo, "Sleepy", "sleepy1", "sleepy@test.alama", "LeopardsDuCongo#1", user.StudentRoles, false)

	tests := []httpTest{
		{
			name: "empty body", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown user", body: marchallObj(t, map[string]string{"username": "who", "password": "dis"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: marchallObj(t, map[string]string{"username": usr.Username, "password": "nope"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", body: marchallObj(t, map[string]string{"username": "sleepy1", "password": "LeopardsDuCongo#1"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "login by username", body: marchallObj(t, map[string]string{"username": usr.Username, "password": "LeopardsDuCongo#1"}),
			wantCode: http.StatusOK,
		},
		{
			name: "login by email", body: marchallObj(t, map[string]string{"username": usr.Email, "password": "LeopardsDuCongo#1"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			var resp struct {
				Token string `json:"token"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if resp.Token == "" {
				t.Error("expected a token")
			}
		})
	}
}

func Test_userApi_register(t *testing.T) {
	app := setup(t)

	body := marchallObj(t, map[string]string{
		"name":             "Moseka Ilunga",
		"email":            "moseka@test.alama",
		"password":         "LeopardsDuCongo#1",
		"password_confirm": "LeopardsDuCongo#1",
	})
	req, rec := newRequest(http.MethodPost, "/v1/users/register", body)
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("failed! code = %v; wantCode %v; body %v", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var resp struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a token")
	}
	if !resp.User.IsStudent() {
		t.Errorf("expected a student account; got roles %v", resp.User.Roles)
	}

	// weak passwords are rejected
	body = marchallObj(t, map[string]string{
		"name":             "Mo",
		"email":            "mo2@test.alama",
		"password":         "password",
		"password_confirm": "password",
	})
	req, rec = newRequest(http.MethodPost, "/v1/users/register", body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("failed! code = %v; wantCode %v; body %v", rec.Code, http.StatusBadRequest, rec.Body.String())
	}
}

func Test_userApi_me(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Awa Traore", "awatraore", "awa@test.alama", "", user.StudentRoles, true)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Get own profile", path: "/v1/me", token: getToken(t, usr), wantCode: http.StatusOK, wantData: marchallObj(t, usr)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_adminOnly(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Student", "student1", "student@test.alama", "", user.StudentRoles, true)
	adm := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.alama", "", user.AdminRoles, true)

	tests := []httpTest{
		{
			name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Admin required", path: "/v1/users", token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Get all", path: "/v1/users", token: getToken(t, adm),
			wantCode: http.StatusOK, wantData: marchallList(t, student, adm),
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
