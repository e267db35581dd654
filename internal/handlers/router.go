package handlers

import (
	"net/http"

	"github.com/certprep-labs/analysis-service/internal/services"
	"github.com/certprep-labs/analysis-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// userIDKey is the gin context key the auth middleware stores the caller
// identity under.
const userIDKey = "user_id"

type HandlerManager struct {
	analysisHandler *AnalysisHandler
}

func NewHandlerManager(
	reportService services.ReportService,
	exportService services.ExportService,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		analysisHandler: NewAnalysisHandler(reportService, exportService, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "analysis-service",
		})
	})

	v1 := router.Group("/api/v1")
	{
		analysis := v1.Group("/analysis")
		analysis.Use(UserIdentityMiddleware())
		{
			analysis.GET("", hm.analysisHandler.GetAnalysis)
			analysis.POST("/refresh", hm.analysisHandler.RefreshAnalysis)
			analysis.GET("/export", hm.analysisHandler.ExportAnalysis)
		}

		// Internal endpoints are gateway-protected; they carry no end-user
		// identity.
		internal := v1.Group("/internal")
		{
			internal.POST("/reports/refresh-expired", hm.analysisHandler.RefreshExpiredReports)
		}
	}
}

// UserIdentityMiddleware reads the caller identity the API gateway injects
// into X-User-ID. Requests without it are rejected before reaching handlers.
func UserIdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "User not authenticated",
				Code:    "NOT_AUTHENTICATED",
			})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}
