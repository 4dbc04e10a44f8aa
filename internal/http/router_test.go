package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"tiremarket/internal/models"
	"tiremarket/internal/seed"
	"tiremarket/internal/testutil"
)

type server struct {
	t  *testing.T
	db *gorm.DB
	r  *gin.Engine
}

func newServer(t *testing.T) *server {
	t.Helper()
	return newServerWithLogger(t, zap.NewNop())
}

func newServerWithLogger(t *testing.T, logger *zap.Logger) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gdb := testutil.OpenDB(t)
	_, err := seed.FirstSetup(gdb, seed.Catalog{
		Brands:    []string{"Michelin", "Nokian"},
		Diameters: []seed.CatalogDiameter{{Value: "16", Label: "R16"}, {Value: "17", Label: "R17"}},
	})
	require.NoError(t, err)
	return &server{t: t, db: gdb, r: NewRouter(gdb, Options{JWTSecret: "test-secret", Logger: logger})}
}

func (s *server) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

func (s *server) login(email, password string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.Token
}

func (s *server) brandID(name string) int64 {
	s.t.Helper()
	var b models.TireBrand
	require.NoError(s.t, s.db.Where("name = ?", name).First(&b).Error)
	return b.ID
}

func (s *server) createAgreement(token string) int64 {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/v1/agreements", token, gin.H{"partner_name": "Shina Plus", "commission_percent": 10})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var out struct {
		Agreement models.Agreement `json:"agreement"`
	}
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.Agreement.ID
}

type conflictBody struct {
	Error        string   `json:"error"`
	Messages     []string `json:"messages"`
	Warnings     []string `json:"warnings"`
	Combinations int      `json:"combinations"`
	Conflicts    []struct {
		RuleID int64 `json:"rule_id"`
	} `json:"conflicts"`
	Exceptions []models.AgreementException `json:"exceptions"`
	Exception  models.AgreementException   `json:"exception"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) conflictBody {
	t.Helper()
	var out conflictBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestLogin(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": seed.AdminEmail, "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := s.login(seed.AdminEmail, seed.AdminPassword)
	w = s.do(http.MethodGet, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"exceptions:write"`)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/me", "", nil).Code)
}

func TestExceptionLifecycle(t *testing.T) {
	s := newServer(t)
	token := s.login(seed.AdminEmail, seed.AdminPassword)
	michelin := s.brandID("Michelin")
	nokian := s.brandID("Nokian")
	agreementID := s.createAgreement(token)
	base := fmt.Sprintf("/api/v1/agreements/%d/exceptions", agreementID)

	// nothing to collide with yet
	w := s.do(http.MethodPost, base+"/conflicts", token, gin.H{
		"brand_ids": []int64{michelin, nokian}, "diameters": []string{"16", "17"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	preview := decode(t, w)
	assert.Equal(t, 4, preview.Combinations)
	assert.Empty(t, preview.Messages)

	w = s.do(http.MethodPost, base, token, gin.H{
		"brand_ids": []int64{michelin}, "diameters": []string{"16"}, "commission_percent": 5,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode(t, w).Exceptions
	require.Len(t, first, 1)
	ruleID := first[0].ID

	// a universal exception overlaps it
	w = s.do(http.MethodPost, base, token, gin.H{"commission_percent": 3})
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, []string{
		fmt.Sprintf("all brands, all diameters is already covered by exception #%d (Michelin, R16)", ruleID),
	}, body.Messages)
	require.Len(t, body.Conflicts, 1)
	assert.Equal(t, ruleID, body.Conflicts[0].RuleID)

	var count int64
	require.NoError(t, s.db.Model(&models.AgreementException{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "refused write must not persist")

	// russian preview
	w = s.do(http.MethodPost, base+"/conflicts?lang=ru", token, gin.H{"brand_ids": []int64{michelin}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{
		fmt.Sprintf("Michelin, все диаметры уже покрывается исключением #%d (Michelin, R16)", ruleID),
	}, decode(t, w).Messages)

	// forced write goes through with warnings
	w = s.do(http.MethodPost, base, token, gin.H{"commission_percent": 3, "force": true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	forced := decode(t, w)
	require.Len(t, forced.Exceptions, 1)
	assert.Len(t, forced.Warnings, 1)
	universalID := forced.Exceptions[0].ID
	assert.Nil(t, forced.Exceptions[0].TireBrandID)
	assert.Nil(t, forced.Exceptions[0].TireDiameter)

	w = s.do(http.MethodPost, fmt.Sprintf("%s/%d/deactivate", base, universalID), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// editing an exception never collides with itself
	w = s.do(http.MethodPut, fmt.Sprintf("%s/%d", base, ruleID), token, gin.H{
		"tire_brand_id": michelin, "tire_diameter": "16", "commission_percent": 6,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 6.0, decode(t, w).Exception.CommissionPercent)

	// re-activation re-checks
	w = s.do(http.MethodPost, fmt.Sprintf("%s/%d/activate", base, universalID), token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = s.do(http.MethodPost, fmt.Sprintf("%s/%d/activate?force=true", base, universalID), token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, base+"?active=true", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w).Exceptions, 2)

	w = s.do(http.MethodDelete, fmt.Sprintf("%s/%d", base, universalID), token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodDelete, fmt.Sprintf("%s/%d", base, universalID), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/v1/audit?q=exception", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "exception.create")
	assert.Contains(t, w.Body.String(), "exception.delete")
}

func TestCreateExceptions_CrossProduct(t *testing.T) {
	s := newServer(t)
	token := s.login(seed.AdminEmail, seed.AdminPassword)
	agreementID := s.createAgreement(token)

	w := s.do(http.MethodPost, fmt.Sprintf("/api/v1/agreements/%d/exceptions", agreementID), token, gin.H{
		"brand_ids":          []int64{s.brandID("Michelin"), s.brandID("Nokian")},
		"diameters":          []string{"16", "17"},
		"commission_percent": 4.5,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Len(t, decode(t, w).Exceptions, 4)
}

func TestCreateExceptions_ForcedWarningsLabelFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := newServerWithLogger(t, zap.New(core))
	token := s.login(seed.AdminEmail, seed.AdminPassword)
	agreementID := s.createAgreement(token)
	base := fmt.Sprintf("/api/v1/agreements/%d/exceptions", agreementID)

	w := s.do(http.MethodPost, base, token, gin.H{"commission_percent": 5})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// labels need the diameter table; the guarded write does not
	require.NoError(t, s.db.Migrator().DropTable(&models.TireDiameter{}))

	w = s.do(http.MethodPost, base, token, gin.H{"commission_percent": 6, "force": true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Empty(t, decode(t, w).Warnings)

	entries := logs.FilterMessage("failed to render forced conflict warnings").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ContextMap()["conflicts"])
}

func TestCreateExceptions_Validation(t *testing.T) {
	s := newServer(t)
	token := s.login(seed.AdminEmail, seed.AdminPassword)
	agreementID := s.createAgreement(token)
	base := fmt.Sprintf("/api/v1/agreements/%d/exceptions", agreementID)

	tests := []struct {
		name string
		body gin.H
	}{
		{"missing commission", gin.H{"brand_ids": []int64{1}}},
		{"commission out of range", gin.H{"commission_percent": 140}},
		{"negative brand", gin.H{"brand_ids": []int64{-1}, "commission_percent": 1}},
		{"blank diameter", gin.H{"diameters": []string{" "}, "commission_percent": 1}},
		{"long diameter", gin.H{"diameters": []string{"12345678901234567"}, "commission_percent": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, base, token, tt.body).Code)
		})
	}

	w := s.do(http.MethodPost, "/api/v1/agreements/9999/exceptions", token, gin.H{"commission_percent": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPermissions(t *testing.T) {
	s := newServer(t)
	admin := s.login(seed.AdminEmail, seed.AdminPassword)
	agreementID := s.createAgreement(admin)

	w := s.do(http.MethodPost, "/api/v1/users", admin, gin.H{
		"email": "viewer@example.com", "name": "Viewer", "password": "viewer-pass",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		User models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	var viewerRole models.Role
	require.NoError(t, s.db.Where("slug = ?", "viewer").First(&viewerRole).Error)
	w = s.do(http.MethodPost, fmt.Sprintf("/api/v1/users/%d/roles", created.User.ID), admin, gin.H{"role_ids": []int64{viewerRole.ID}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	viewer := s.login("viewer@example.com", "viewer-pass")
	base := fmt.Sprintf("/api/v1/agreements/%d/exceptions", agreementID)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, base, viewer, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, base+"/conflicts", viewer, gin.H{}).Code)

	w = s.do(http.MethodPost, base, viewer, gin.H{"commission_percent": 1})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "exceptions:write")

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/v1/audit", viewer, nil).Code)
}

func TestCreateUser_EmailIsGloballyUnique(t *testing.T) {
	s := newServer(t)
	token := s.login(seed.AdminEmail, seed.AdminPassword)

	w := s.do(http.MethodPost, "/api/v1/users", token, gin.H{
		"email": "Admin@Example.com", "name": "Second admin", "password": "another-pass",
	})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	var count int64
	require.NoError(t, s.db.Model(&models.User{}).Where("email = ?", seed.AdminEmail).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCatalogEndpoints(t *testing.T) {
	s := newServer(t)
	token := s.login(seed.AdminEmail, seed.AdminPassword)

	w := s.do(http.MethodPost, "/api/v1/diameters", token, gin.H{"value": "22.5"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"label":"R22.5"`)

	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/api/v1/diameters", token, gin.H{"value": "16"}).Code)
	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/api/v1/brands", token, gin.H{"name": "Michelin"}).Code)

	w = s.do(http.MethodGet, "/api/v1/brands", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Nokian")
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", "", nil).Code)
	w := s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tiremarket_http_request_duration_seconds")
}
