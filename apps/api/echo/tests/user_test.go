package tests

import (
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/genzugar/backend/apps/api/echo"
	"github.com/genzugar/backend/core/user"
	"github.com/genzugar/backend/tests"
)

func Test_userApi_signup(t *testing.T) {
	app := setup(t)
	testutil.CreateUser(t, usrRepo, "Ayu Lestari", "ayu@test.id", strongPassword, false, true)

	body := func(name, email, pwd, confirm string) []byte {
		return marchallObj(t, user.NewUser{FullName: name, Email: email, Password: pwd, PasswordConfirm: confirm})
	}

	tests := []httpTest{
		{
			name: "blank fields", body: body("", "", "", ""), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"full_name":        "this field is required",
				"email":            "this field is required",
				"password":         "this field is required",
				"password_confirm": "this field is required",
			}),
		},
		{
			name: "email taken", body: body("Ayu Dua", "AYU@test.id", strongPassword, strongPassword), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
		{
			name: "password too short", body: body("Budi Santoso", "budi@test.id", "a1b2", "a1b2"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password": "password must contain at least 6 characters"}),
		},
		{
			name: "passwords differ", body: body("Budi Santoso", "budi@test.id", strongPassword, strongPassword+"x"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password_confirm": "password_confirm must be equal to Password"}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/signup", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("success", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/signup", body(" Budi Santoso ", "Budi@Test.id", strongPassword, strongPassword))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp LoginResponse
		unmarshal(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		require.NotNil(t, resp.User)
		assert.Equal(t, "Budi Santoso", resp.User.FullName)
		assert.Equal(t, "budi@test.id", resp.User.Email)
		assert.False(t, resp.User.IsAdmin)
		assert.True(t, resp.User.IsActive)

		// welcome mail
		require.Len(t, mailbox.Sent(), 1)
		assert.Equal(t, "budi@test.id", mailbox.Sent()[0].To[0].Address)

		// the token works right away
		req, rec = newAuthRequest(http.MethodGet, "/v1/me", resp.Token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_userApi_login(t *testing.T) {
	app := setup(t)
	testutil.CreateUser(t, usrRepo, "Ayu Lestari", "ayu@test.id", strongPassword, false, true)
	testutil.CreateUser(t, usrRepo, "Nakal", "nakal@test.id", strongPassword, false, false)

	errFailed := httpErr{Error: "authentication failed"}

	tests := []httpTest{
		{
			name: "blank fields", body: marchallObj(t, LoginRequest{}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown email", body: marchallObj(t, LoginRequest{Email: "lol@test.id", Password: strongPassword}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, errFailed),
		},
		{
			name: "wrong password", body: marchallObj(t, LoginRequest{Email: "ayu@test.id", Password: "wrong"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, errFailed),
		},
		{
			name: "deactivated", body: marchallObj(t, LoginRequest{Email: "nakal@test.id", Password: strongPassword}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/login", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("success", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/login", marchallObj(t, LoginRequest{Email: " AYU@test.id", Password: strongPassword}))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp LoginResponse
		unmarshal(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)

		usr, err := usrRepo.GetUserByEmail(ctx, "ayu@test.id")
		require.NoError(t, err)
		assert.True(t, usr.LastLogin.Valid)
	})
}

func Test_userApi_tokenRefresh(t *testing.T) {
	app := setup(t)
	usr := testutil.CreateUser(t, usrRepo, "Ayu Lestari", "ayu@test.id", strongPassword, false, true)

	expired, err := GenerateToken(GetUserClaims(usr, time.Now().Add(-24*time.Hour).Unix()))
	require.NoError(t, err)

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "refresh expired", token: expired, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("success", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", getToken(t, usr))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp LoginResponse
		unmarshal(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
	})
}

func Test_userApi_passwordReset(t *testing.T) {
	app := setup(t)
	testutil.CreateUser(t, usrRepo, "Ayu Lestari", "ayu@test.id", strongPassword, false, true)
	okResp := marchallObj(t, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})

	tests := []httpTest{
		{
			name: "invalid email", body: marchallObj(t, PasswordResetRequest{Email: "ayu"}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{name: "unknown email", body: marchallObj(t, PasswordResetRequest{Email: "lol@test.id"}), wantCode: http.StatusOK, wantData: okResp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/password-reset", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
	assert.Empty(t, mailbox.Sent())

	t.Run("full flow", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/password-reset", marchallObj(t, PasswordResetRequest{Email: "ayu@test.id"}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: okResp}, rec)
		require.Len(t, mailbox.Sent(), 1)

		// the reset link is `<frontend>/password-reset/<uid>/<token>`
		link := regexp.MustCompile(`/password-reset/([^/\s]+)/([^/\s"]+)`).FindStringSubmatch(mailbox.Sent()[0].TextContent)
		require.Len(t, link, 3, mailbox.Sent()[0].TextContent)

		newPwd := "L3bih-Sehat!"
		data := user.ResetUserPassword{UID: link[1], Token: link[2], Password: newPwd, PasswordConfirm: newPwd}
		req, rec = newRequest(http.MethodPost, "/v1/auth/password-reset-confirm", marchallObj(t, data))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		// the token is single use
		req, rec = newRequest(http.MethodPost, "/v1/auth/password-reset-confirm", marchallObj(t, data))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		req, rec = newRequest(http.MethodPost, "/v1/auth/login", marchallObj(t, LoginRequest{Email: "ayu@test.id", Password: newPwd}))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_userApi_me(t *testing.T) {
	app := setup(t)
	usr := testutil.CreateUser(t, usrRepo, "Ayu Lestari", "ayu@test.id", strongPassword, false, true)
	naughty := testutil.CreateUser(t, usrRepo, "Nakal", "nakal@test.id", strongPassword, false, false)
	token := getToken(t, usr)

	tests := []httpTest{
		{name: "auth required", method: http.MethodGet, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "deactivated", method: http.MethodGet, token: getToken(t, naughty), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "get", method: http.MethodGet, token: token, wantCode: http.StatusOK, wantData: marchallObj(t, usr)},
		{
			name: "invalid update", method: http.MethodPut, token: token, wantCode: http.StatusBadRequest,
			body: []byte(`{"gender": "robot", "height_cm": -1}`),
			wantData: marchallObj(t, map[string]string{
				"gender":    "gender must be one of male, female or other",
				"height_cm": "height_cm must be greater than 0",
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, "/v1/me", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("update", func(t *testing.T) {
		body := []byte(`{"full_name": " Ayu L. ", "gender": "Female", "date_of_birth": "2001-02-03", "height_cm": 160}`)
		req, rec := newAuthRequest(http.MethodPut, "/v1/me", token, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got user.User
		unmarshal(t, rec, &got)
		assert.Equal(t, "Ayu L.", got.FullName)
		assert.Equal(t, "female", got.Gender.String)
		assert.Equal(t, "2001-02-03", got.DateOfBirth.Time.Format("2006-01-02"))
		assert.Equal(t, 160.0, got.HeightCm.Float64)
		assert.False(t, got.WeightKg.Valid)
	})
}

func Test_userApi_adminUsers(t *testing.T) {
	app := setup(t)
	now := time.Now()
	ayu := testutil.CreateUser(t, usrRepo, "Ayu Lestari", "ayu@test.id", strongPassword, false, true, now.Add(1*time.Hour))
	budi := testutil.CreateUser(t, usrRepo, "Budi Santoso", "budi@test.id", strongPassword, false, false, now.Add(2*time.Hour))
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.id", strongPassword, true, true, now.Add(3*time.Hour))
	adminToken := getToken(t, admin)

	path := func(search, ordering string, isAdmin, isActive *bool) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		if isAdmin != nil {
			v.Add("is_admin", strconv.FormatBool(*isAdmin))
		}
		if isActive != nil {
			v.Add("is_active", strconv.FormatBool(*isActive))
		}
		return "/v1/admin/users?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }

	tests := []httpTest{
		{name: "auth required", path: "/v1/admin/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "admin required", path: "/v1/admin/users", token: getToken(t, ayu),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "get all", path: "/v1/admin/users", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, admin, budi, ayu)},
		{name: "search (unknown)", path: path("lol", "", nil, nil), token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t)},
		{name: "search=SANTO", path: path("SANTO", "", nil, nil), token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, budi)},
		{name: "is_admin=true", path: path("", "", bPtr(true), nil), token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, admin)},
		{name: "is_active=false", path: path("", "", nil, bPtr(false)), token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, budi)},
		{
			name: "ordering=full_name", path: path("", "full_name", nil, nil), token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, admin, ayu, budi),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("update", func(t *testing.T) {
		updateTests := []httpTest{
			{name: "unknown user", path: "/v1/admin/users/lol", body: []byte(`{"is_admin": true}`), wantCode: http.StatusNotFound},
			{name: "self demotion", path: "/v1/admin/users/" + admin.ID, body: []byte(`{"is_admin": false}`), wantCode: http.StatusForbidden},
			{name: "self deactivation", path: "/v1/admin/users/" + admin.ID, body: []byte(`{"is_active": false}`), wantCode: http.StatusForbidden},
			{name: "promote", path: "/v1/admin/users/" + ayu.ID, body: []byte(`{"is_admin": true}`), wantCode: http.StatusOK},
			{name: "reactivate", path: "/v1/admin/users/" + budi.ID, body: []byte(`{"is_active": true}`), wantCode: http.StatusOK},
		}
		for _, tt := range updateTests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newAuthRequest(http.MethodPut, tt.path, adminToken, tt.body)
				app.ServeHTTP(rec, req)
				checkCode(t, tt, rec)
			})
		}

		got, err := usrRepo.GetUserByID(ctx, ayu.ID)
		require.NoError(t, err)
		assert.True(t, got.IsAdmin)
		got, err = usrRepo.GetUserByID(ctx, budi.ID)
		require.NoError(t, err)
		assert.True(t, got.IsActive)
		assert.True(t, strings.HasSuffix(got.Email, "@test.id"))
	})
}
