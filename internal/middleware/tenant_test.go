package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-api/internal/models"
)

func tenantRouter(claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	})
	group := router.Group("/schools/:schoolId")
	group.Use(TenantGuard())
	group.GET("/resource", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestTenantGuardAllowsOwnSchool(t *testing.T) {
	router := tenantRouter(&models.JWTClaims{UserID: "u-1", Role: models.RoleEmployee, SchoolID: "sch-1"})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/schools/sch-1/resource", nil)
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestTenantGuardRejectsForeignSchool(t *testing.T) {
	router := tenantRouter(&models.JWTClaims{UserID: "u-1", Role: models.RoleEmployee, SchoolID: "sch-1"})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/schools/sch-2/resource", nil)
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestTenantGuardRejectsUnlinkedActor(t *testing.T) {
	// Admins with no school assignment are rejected as well.
	router := tenantRouter(&models.JWTClaims{UserID: "u-1", Role: models.RoleAdmin})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/schools/sch-1/resource", nil)
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestTenantGuardRejectsMissingClaims(t *testing.T) {
	router := tenantRouter(nil)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/schools/sch-1/resource", nil)
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}
