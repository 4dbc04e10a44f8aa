package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tiremarket/internal/models"
)

const secret = "test-secret"

func setup(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(&models.User{}))

	r := gin.New()
	r.GET("/private", JWT(gdb, secret), func(c *gin.Context) {
		cl, ok := FromContext(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"email": cl.Email})
	})
	return gdb, r
}

func do(r *gin.Engine, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIssueAndParseToken(t *testing.T) {
	now := time.Now()
	tok, err := IssueToken(models.User{ID: 3, OrgID: 1, Email: "a@b.c"}, secret, now)
	require.NoError(t, err)

	cl, err := ParseToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), cl.UserID)
	assert.Equal(t, uint64(1), cl.OrgID)

	_, err = ParseToken(tok, "other-secret")
	assert.Error(t, err)

	expired, err := IssueToken(models.User{ID: 3}, secret, now.Add(-48*time.Hour))
	require.NoError(t, err)
	_, err = ParseToken(expired, secret)
	assert.Error(t, err)
}

func TestJWT(t *testing.T) {
	gdb, r := setup(t)
	active := models.User{OrgID: 1, Email: "ok@example.com", Status: models.UserActive}
	suspended := models.User{OrgID: 1, Email: "no@example.com", Status: models.UserSuspended}
	require.NoError(t, gdb.Create(&active).Error)
	require.NoError(t, gdb.Create(&suspended).Error)

	okTok, err := IssueToken(active, secret, time.Now())
	require.NoError(t, err)
	suspTok, err := IssueToken(suspended, secret, time.Now())
	require.NoError(t, err)
	ghostTok, err := IssueToken(models.User{ID: 999, OrgID: 1}, secret, time.Now())
	require.NoError(t, err)

	t.Run("missing token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(r, nil).Code)
	})

	t.Run("bearer header", func(t *testing.T) {
		w := do(r, func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+okTok) })
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "ok@example.com")
	})

	t.Run("cookie", func(t *testing.T) {
		w := do(r, func(req *http.Request) { req.AddCookie(&http.Cookie{Name: TokenCookie, Value: okTok}) })
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := do(r, func(req *http.Request) { req.Header.Set("Authorization", "Bearer nope") })
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("suspended user", func(t *testing.T) {
		w := do(r, func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+suspTok) })
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("deleted user", func(t *testing.T) {
		w := do(r, func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+ghostTok) })
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
