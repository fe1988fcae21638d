package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ritmo-app/ritmo-api/internal/middleware"
	"github.com/ritmo-app/ritmo-api/internal/service"
)

// Handlers groups every HTTP handler for route registration.
type Handlers struct {
	Auth       *AuthHandler
	Students   *StudentHandler
	Teachers   *TeacherHandler
	Classes    *ClassHandler
	Sessions   *SessionHandler
	Attendance *AttendanceHandler
	Enrollment *EnrollmentHandler
	Payments   *PaymentHandler
	Ledger     *LedgerHandler
	Sales      *SaleHandler
	Dashboard  *DashboardHandler
	Exports    *ExportHandler
	Metrics    *MetricsHandler
}

// RouteOptions toggles optional route groups.
type RouteOptions struct {
	Prefix          string
	EnableDashboard bool
	EnableExports   bool
}

// RegisterRoutes mounts the API surface onto the router. Auth routes are
// public; everything else sits behind JWT.
func RegisterRoutes(r *gin.Engine, h Handlers, auth *service.AuthService, opts RouteOptions) {
	if opts.Prefix == "" {
		opts.Prefix = "/api/v1"
	}

	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(opts.Prefix)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
		authGroup.POST("/logout", middleware.JWT(auth), h.Auth.Logout)
		authGroup.GET("/me", middleware.JWT(auth), h.Auth.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(auth))

	students := protected.Group("/students")
	{
		students.GET("", h.Students.List)
		students.POST("", h.Students.Create)
		students.GET("/:id", h.Students.Get)
		students.PUT("/:id", h.Students.Update)
		students.DELETE("/:id", h.Students.Delete)
	}

	teachers := protected.Group("/teachers")
	{
		teachers.GET("", h.Teachers.List)
		teachers.POST("", h.Teachers.Create)
		teachers.GET("/:id", h.Teachers.Get)
		teachers.PUT("/:id", h.Teachers.Update)
		teachers.DELETE("/:id", h.Teachers.Delete)
	}

	classes := protected.Group("/classes")
	{
		classes.GET("", h.Classes.List)
		classes.POST("", h.Classes.Create)
		classes.GET("/:id", h.Classes.Get)
		classes.PUT("/:id", h.Classes.Update)
		classes.DELETE("/:id", h.Classes.Delete)
		classes.GET("/:id/slots", h.Classes.ListSlots)
		classes.PUT("/:id/slots", h.Classes.ReplaceSlots)
	}

	sessions := protected.Group("/sessions")
	{
		sessions.GET("", h.Sessions.List)
		sessions.GET("/:id", h.Sessions.Get)
		sessions.PUT("/:id", h.Sessions.Update)
		sessions.GET("/:id/attendance", h.Attendance.List)
		sessions.POST("/:id/attendance", h.Attendance.Mark)
	}

	enrollments := protected.Group("/enrollments")
	{
		enrollments.GET("", h.Enrollment.List)
		enrollments.POST("", h.Enrollment.Create)
		enrollments.GET("/:id", h.Enrollment.Get)
		enrollments.PUT("/:id", h.Enrollment.Update)
		enrollments.DELETE("/:id", h.Enrollment.Delete)
	}

	protected.GET("/installments", h.Payments.ListInstallments)
	protected.GET("/payments", h.Payments.ListPayments)
	protected.POST("/payments", h.Payments.Create)

	ledger := protected.Group("/ledger")
	{
		ledger.GET("", h.Ledger.List)
		ledger.POST("", h.Ledger.Create)
		ledger.GET("/summary", h.Ledger.Summary)
		ledger.GET("/:id", h.Ledger.Get)
		ledger.PUT("/:id", h.Ledger.Update)
		ledger.DELETE("/:id", h.Ledger.Delete)
	}

	products := protected.Group("/products")
	{
		products.GET("", h.Sales.ListProducts)
		products.POST("", h.Sales.CreateProduct)
		products.GET("/:id", h.Sales.GetProduct)
		products.PUT("/:id", h.Sales.UpdateProduct)
		products.DELETE("/:id", h.Sales.DeleteProduct)
	}

	protected.GET("/sales", h.Sales.ListSales)
	protected.POST("/sales", h.Sales.CreateSale)

	if opts.EnableDashboard {
		protected.GET("/dashboard/summary", h.Dashboard.Summary)
	}

	if opts.EnableExports {
		exports := protected.Group("/exports")
		exports.GET("/ledger", h.Exports.Ledger)
		exports.GET("/installments", h.Exports.Installments)
	}
}
