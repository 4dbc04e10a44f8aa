package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tiremarket/internal/auth"
	"tiremarket/internal/conflict"
	"tiremarket/internal/http/handlers"
	"tiremarket/internal/logging"
	"tiremarket/internal/metrics"
	"tiremarket/internal/rbac"
)

type Options struct {
	JWTSecret string
	// DefaultLocale is used for conflict messages when the request names none.
	DefaultLocale conflict.Locale
	Logger        *zap.Logger
}

func NewRouter(db *gorm.DB, opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.DefaultLocale == "" {
		opts.DefaultLocale = conflict.LocaleEN
	}
	locale := opts.DefaultLocale

	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(opts.Logger), metrics.Middleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler())

	// Public routes
	r.POST("/api/v1/auth/login", handlers.LoginHandler(db, opts.JWTSecret))
	r.POST("/api/v1/auth/logout", handlers.LogoutHandler())

	chk := rbac.Checker{DB: db}
	api := r.Group("/api/v1", auth.JWT(db, opts.JWTSecret))
	{
		api.GET("/me", handlers.MeHandler(db, chk))

		// Users & roles
		api.GET("/users", requirePerm(chk, rbac.UsersRead), handlers.ListUsers(db))
		api.POST("/users", requirePerm(chk, rbac.UsersWrite), handlers.CreateUser(db))
		api.POST("/users/:id/roles", requirePerm(chk, rbac.UsersWrite), handlers.AssignRoles(db))
		api.GET("/roles", requirePerm(chk, rbac.RolesRead), handlers.ListRoles(db))

		// Reference catalog
		api.GET("/brands", requirePerm(chk, rbac.CatalogRead), handlers.ListBrands(db))
		api.POST("/brands", requirePerm(chk, rbac.CatalogWrite), handlers.CreateBrand(db))
		api.GET("/diameters", requirePerm(chk, rbac.CatalogRead), handlers.ListDiameters(db))
		api.POST("/diameters", requirePerm(chk, rbac.CatalogWrite), handlers.CreateDiameter(db))

		// Agreements
		api.GET("/agreements", requirePerm(chk, rbac.AgreementsRead), handlers.ListAgreements(db))
		api.POST("/agreements", requirePerm(chk, rbac.AgreementsWrite), handlers.CreateAgreement(db))
		api.GET("/agreements/:id", requirePerm(chk, rbac.AgreementsRead), handlers.GetAgreement(db))
		api.PUT("/agreements/:id", requirePerm(chk, rbac.AgreementsWrite), handlers.UpdateAgreement(db))

		// Agreement exceptions
		exc := api.Group("/agreements/:id/exceptions")
		exc.GET("", requirePerm(chk, rbac.ExceptionsRead), handlers.ListExceptions(db))
		exc.POST("/conflicts", requirePerm(chk, rbac.ExceptionsRead), handlers.PreviewConflicts(db, locale))
		exc.POST("", requirePerm(chk, rbac.ExceptionsWrite), handlers.CreateExceptions(db, locale))
		exc.PUT("/:exceptionId", requirePerm(chk, rbac.ExceptionsWrite), handlers.UpdateException(db, locale))
		exc.POST("/:exceptionId/activate", requirePerm(chk, rbac.ExceptionsWrite), handlers.SetExceptionActive(db, locale, true))
		exc.POST("/:exceptionId/deactivate", requirePerm(chk, rbac.ExceptionsWrite), handlers.SetExceptionActive(db, locale, false))
		exc.DELETE("/:exceptionId", requirePerm(chk, rbac.ExceptionsWrite), handlers.DeleteException(db))

		// Audit Trail
		api.GET("/audit", requirePerm(chk, rbac.AuditRead), handlers.ListAudit(db))
	}

	return r
}

func requirePerm(chk rbac.Checker, permSlug string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := auth.FromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		ok, err := chk.Can(c, cl.UserID, cl.OrgID, permSlug)
		if err != nil {
			logging.FromGin(c).Error("permission check failed", zap.Error(err), zap.String("permission", permSlug))
		}
		if err != nil || !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "missing": permSlug})
			return
		}
		c.Next()
	}
}
