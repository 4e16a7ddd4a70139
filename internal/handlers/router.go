package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/marketplace-service/internal/auth"
	"github.com/SAP-F-2025/marketplace-service/internal/authz"
	"github.com/SAP-F-2025/marketplace-service/internal/metrics"
	"github.com/SAP-F-2025/marketplace-service/internal/payments"
	"github.com/SAP-F-2025/marketplace-service/internal/services"
	"github.com/SAP-F-2025/marketplace-service/internal/utils"
)

type HandlerManager struct {
	userHandler      *UserHandler
	courseHandler    *CourseHandler
	orderHandler     *OrderHandler
	dashboardHandler *DashboardHandler
	sandboxHandler   *SandboxHandler
	authMiddleware   *AuthMiddleware

	serviceManager services.ServiceManager
	metrics        *metrics.Metrics
}

// NewHandlerManager wires handlers to services. sandbox is nil unless the
// sandbox payment verifier is active; m may be nil to disable /metrics.
func NewHandlerManager(
	serviceManager services.ServiceManager,
	resolver auth.TokenResolver,
	sandbox *payments.SandboxVerifier,
	m *metrics.Metrics,
	logger utils.Logger,
) *HandlerManager {
	hm := &HandlerManager{
		userHandler: NewUserHandler(serviceManager.User(), logger),
		courseHandler: NewCourseHandler(
			serviceManager.Course(),
			serviceManager.Review(),
			serviceManager.Enrollment(),
			logger,
		),
		orderHandler: NewOrderHandler(
			serviceManager.Order(),
			serviceManager.Checkout(),
			serviceManager.Report(),
			logger,
		),
		dashboardHandler: NewDashboardHandler(serviceManager.Dashboard(), logger),
		authMiddleware:   NewAuthMiddleware(resolver, logger),
		serviceManager:   serviceManager,
		metrics:          m,
	}
	if sandbox != nil {
		hm.sandboxHandler = NewSandboxHandler(sandbox, logger)
	}
	return hm
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	am := hm.authMiddleware

	v1 := router.Group("/api/v1")
	{
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/register", hm.userHandler.Register)
			authRoutes.POST("/login", hm.userHandler.Login)
		}

		// Public catalog; a token, when present, personalizes course details
		public := v1.Group("/courses")
		public.Use(am.OptionalAuth())
		{
			public.GET("", hm.courseHandler.ListCourses)
			public.GET("/top", hm.courseHandler.TopCourses)
			public.GET("/:id", hm.courseHandler.GetCourse)
		}

		protected := v1.Group("")
		protected.Use(am.RequireAuth())
		{
			protected.GET("/users/me", hm.userHandler.GetProfile)
			protected.PUT("/users/me", hm.userHandler.UpdateProfile)

			courses := protected.Group("/courses")
			{
				courses.POST("", am.RequireCapability(authz.CapCreateCourse), hm.courseHandler.CreateCourse)
				courses.GET("/mine", hm.courseHandler.MyCourses)
				courses.GET("/enrolled", hm.courseHandler.EnrolledCourses)
				courses.PUT("/:id", hm.courseHandler.UpdateCourse)
				courses.DELETE("/:id", hm.courseHandler.DeleteCourse)

				courses.POST("/:id/sections", hm.courseHandler.AddSection)
				courses.GET("/:id/sections", hm.courseHandler.ListSections)
				courses.POST("/:id/reviews", am.RequireCapability(authz.CapReview), hm.courseHandler.CreateReview)
				courses.POST("/:id/enroll", am.RequireCapability(authz.CapEnroll), hm.courseHandler.Enroll)
			}

			orders := protected.Group("/orders")
			{
				orders.POST("", am.RequireCapability(authz.CapPurchase), hm.orderHandler.CreateOrder)
				orders.GET("/mine", hm.orderHandler.MyOrders)
				orders.GET("/:id", hm.orderHandler.GetOrder)
				orders.PUT("/:id/pay", hm.orderHandler.PayOrder)
				orders.POST("/:id/checkout", hm.orderHandler.Checkout)
			}

			admin := protected.Group("/admin")
			{
				admin.GET("/users", am.RequireCapability(authz.CapManageUsers), hm.userHandler.ListUsers)
				admin.GET("/users/:id", am.RequireCapability(authz.CapManageUsers), hm.userHandler.GetUser)
				admin.PUT("/users/:id", am.RequireCapability(authz.CapManageUsers), hm.userHandler.UpdateUser)
				admin.DELETE("/users/:id", am.RequireCapability(authz.CapManageUsers), hm.userHandler.DeleteUser)

				admin.GET("/orders", am.RequireCapability(authz.CapViewAllOrders), hm.orderHandler.ListOrders)
				admin.GET("/orders/export", am.RequireCapability(authz.CapViewAllOrders), hm.orderHandler.ExportOrders)

				dashboard := admin.Group("/dashboard")
				dashboard.Use(am.RequireCapability(authz.CapViewAllOrders))
				{
					dashboard.GET("/stats", hm.dashboardHandler.GetStats)
					dashboard.GET("/trends", hm.dashboardHandler.GetSalesTrends)
					dashboard.GET("/top-courses", hm.dashboardHandler.GetTopSellingCourses)
				}
			}

			if hm.sandboxHandler != nil {
				protected.POST("/sandbox/captures", hm.sandboxHandler.CreateCapture)
			}
		}
	}

	router.GET("/health", hm.health)
	if hm.metrics != nil {
		router.GET("/metrics", hm.metrics.Handler())
	}
}

func (hm *HandlerManager) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := hm.serviceManager.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "marketplace-service",
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "marketplace-service",
	})
}
