package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/yourusername/cbt-api/internal/middleware"
	"github.com/yourusername/cbt-api/pkg/auth"
)

// Routes — всё, что нужно для регистрации маршрутов API
type Routes struct {
	TestCodes   *TestCodeHandler
	Tests       *TestHandler
	Auth        *middleware.AuthMiddleware
	RateLimiter *middleware.RateLimiter // nil отключает ограничение частоты
	RateLimit   middleware.RateLimitConfig
}

// Register настраивает маршруты API в группе /api
func (r *Routes) Register(api *gin.RouterGroup) {
	extractID := middleware.ExtractUintParam("id", ContextTestCodeID)

	admin := api.Group("/admin/test-codes")
	admin.Use(r.Auth.RequireAuth(), r.Auth.AdminOnly())
	{
		admin.POST("/generate", r.TestCodes.GenerateCodes)
		admin.GET("", r.TestCodes.ListTestCodes)
		admin.POST("/batch", r.TestCodes.BatchOperate)

		withID := admin.Group("/:id", extractID)
		{
			withID.GET("", r.TestCodes.GetTestCode)
			withID.POST("/activate", r.TestCodes.ActivateTestCode)
			withID.POST("/deactivate", r.TestCodes.DeactivateTestCode)
			withID.POST("/toggle", r.TestCodes.ToggleTestCode)
			withID.GET("/results", r.TestCodes.GetResults)
			withID.GET("/results/export", r.TestCodes.ExportResults)
		}
	}

	tests := api.Group("/tests")
	tests.Use(r.Auth.RequireAuth(), r.Auth.RequireRole(auth.RoleStudent))
	{
		tests.POST("/start", r.limited(r.Tests.StartTest)...)
		tests.PUT("/answers", r.Tests.SaveAnswer)
		tests.POST("/submit", r.limited(r.Tests.SubmitTest)...)
		tests.GET("/:id/my-result", extractID, r.Tests.GetMyResult)
	}
}

func (r *Routes) limited(h gin.HandlerFunc) []gin.HandlerFunc {
	if r.RateLimiter == nil {
		return []gin.HandlerFunc{h}
	}
	return []gin.HandlerFunc{r.RateLimiter.Limit(r.RateLimit), h}
}
