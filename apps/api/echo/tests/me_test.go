package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genzugar/backend/core/bmi"
	"github.com/genzugar/backend/core/ebook"
	"github.com/genzugar/backend/core/module"
	"github.com/genzugar/backend/core/progress"
	"github.com/genzugar/backend/core/user"
	"github.com/genzugar/backend/tests"
)

func Test_meApi_bmi(t *testing.T) {
	app := setup(t)
	usr := testutil.CreateUser(t, usrRepo, "Ayu Lestari", "ayu@test.id", strongPassword, false, true)
	token := getToken(t, usr)

	tests := []httpTest{
		{name: "auth required", body: []byte(`{"height_cm": 170, "weight_kg": 65}`), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "missing fields", token: token, body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"height_cm": "this field is required", "weight_kg": "this field is required"}),
		},
		{
			name: "negative height", token: token, body: []byte(`{"height_cm": -170, "weight_kg": 65}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"height_cm": "height_cm must be 30 or greater"}),
		},
		{
			name: "vanishing height", token: token, body: []byte(`{"height_cm": 1e-300, "weight_kg": 65}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"height_cm": "height_cm must be 30 or greater"}),
		},
		{
			name: "vanishing weight", token: token, body: []byte(`{"height_cm": 170, "weight_kg": 1e-300}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"weight_kg": "weight_kg must be 1 or greater"}),
		},
		{
			name: "implausible measurements", token: token, body: []byte(`{"height_cm": 1, "weight_kg": 501}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"height_cm": "height_cm must be 30 or greater", "weight_kg": "weight_kg must be 500 or less"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/me/bmi", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("rejected measurements are not recorded", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/me/bmi", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var history []bmi.Record
		unmarshal(t, rec, &history)
		assert.Empty(t, history)

		req, rec = newAuthRequest(http.MethodGet, "/v1/me/progress", token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	measurements := []struct {
		body         string
		wantValue    float64
		wantCategory bmi.Category
	}{
		{body: `{"height_cm": 170, "weight_kg": 50}`, wantValue: 17.3, wantCategory: bmi.Underweight},
		{body: `{"height_cm": 170, "weight_kg": 65}`, wantValue: 22.5, wantCategory: bmi.Normal},
		{body: `{"height_cm": 170, "weight_kg": 90}`, wantValue: 31.1, wantCategory: bmi.Obese},
	}
	for _, m := range measurements {
		req, rec := newAuthRequest(http.MethodPost, "/v1/me/bmi", token, []byte(m.body))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var rec1 bmi.Record
		unmarshal(t, rec, &rec1)
		assert.Equal(t, m.wantValue, rec1.Value)
		assert.Equal(t, m.wantCategory, rec1.Category)
	}

	t.Run("history", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/me/bmi?limit=2", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var history []bmi.Record
		unmarshal(t, rec, &history)
		require.Len(t, history, 2)
		assert.Equal(t, 31.1, history[0].Value) // newest first
		assert.Equal(t, 22.5, history[1].Value)
	})

	t.Run("profile follows the latest measurement", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/me", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got user.User
		unmarshal(t, rec, &got)
		assert.Equal(t, 170.0, got.HeightCm.Float64)
		assert.Equal(t, 90.0, got.WeightKg.Float64)
	})
}

func Test_meApi_progress(t *testing.T) {
	app := setup(t)
	usr := testutil.CreateUser(t, usrRepo, "Ayu Lestari", "ayu@test.id", strongPassword, false, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.id", strongPassword, true, true)
	token := getToken(t, usr)

	var first module.ContentItem
	for i, title := range []string{"Mengenal Diabetes", "Pola Makan"} {
		m, err := moduleSvc.Create(ctx, module.NewModule{Title: title, ModuleOrder: i + 1, IsPublished: true})
		require.NoError(t, err)
		c, err := moduleSvc.CreateContent(ctx, m, module.NewContent{Title: "Pengantar", ContentType: module.ContentGame, ContentOrder: 1})
		require.NoError(t, err)
		if i == 0 {
			first = c
		}
	}
	_, err := ebookSvc.Create(ctx, ebook.NewEbook{Title: "Panduan", DocumentURL: "https://example.com/p.pdf", IsPublished: true}, ebook.Files{})
	require.NoError(t, err)

	t.Run("newcomer", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/me/progress", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var ov progress.Overview
		unmarshal(t, rec, &ov)
		assert.Equal(t, 0, ov.CompletedModules)
		assert.Equal(t, 2, ov.TotalModules)
		assert.Equal(t, 0, ov.Percentage)
		assert.NotNil(t, ov.Timeline)
	})

	req, rec := newAuthRequest(http.MethodPost, "/v1/modules/"+first.ModuleID+"/content/"+first.ID+"/complete", token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	t.Run("overview", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/me/progress", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var ov progress.Overview
		unmarshal(t, rec, &ov)
		assert.Equal(t, 1, ov.CompletedModules)
		assert.Equal(t, 50, ov.Percentage)
		assert.Equal(t, progress.PointsPerModule, ov.Points)
		require.Len(t, ov.Timeline, 1)
		assert.Equal(t, "Mengenal Diabetes", ov.Timeline[0].ModuleTitle)
	})

	t.Run("dashboard", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/me/dashboard", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var d progress.Dashboard
		unmarshal(t, rec, &d)
		assert.Equal(t, 2, d.Totals.Modules)
		assert.Equal(t, 1, d.Totals.Ebooks)
		require.Len(t, d.Modules, 2)
		assert.Len(t, d.RecentEbooks, 1)
		assert.Empty(t, d.RecentVideos)
	})

	t.Run("admin stats", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/stats", token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/admin/stats", getToken(t, admin))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, progress.Totals{Users: 2, Ebooks: 1, Modules: 2}),
		}, rec)
	})
}
