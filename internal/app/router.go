package app

import (
	"edu_platform_backend/docs"
	"edu_platform_backend/internal/config"
	"edu_platform_backend/internal/middleware"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, s *services, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	sessionAuth := middleware.SessionAuth(s.sessionGuard, cfg.JWT.CookieName)

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c, s, cfg)

	// 2. 学生接口
	student := router.Group("/api")
	student.Use(sessionAuth, middleware.StudentOnly())
	a.registerStudentRoutes(student, c)

	// 3. 讲师接口，管理员同样可用
	tutor := router.Group("/api/tutor")
	tutor.Use(sessionAuth, middleware.RoleMiddleware(model.RoleTutor))
	a.registerTutorRoutes(tutor, c)

	// 4. 管理员接口
	admin := router.Group("/api/admin")
	admin.Use(sessionAuth, middleware.RoleMiddleware(model.RoleAdmin))
	a.registerAdminRoutes(admin, c)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, s *services, cfg *config.Config) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)

		public.GET("/courses", c.course.ListCatalog)
		public.GET("/courses/:id", middleware.OptionalSessionAuth(s.sessionGuard, cfg.JWT.CookieName), c.course.GetDetail)
		public.GET("/courses/:id/reviews", c.review.List)
	}

	// 登录注册类接口单独限流
	auth := router.Group("/api")
	auth.Use(a.limiters.auth.Middleware())
	{
		auth.POST("/auth/otp", c.auth.SendOTP)
		auth.POST("/auth/register", c.auth.Register)
		auth.POST("/auth/login", c.auth.Login)
		auth.POST("/auth/google", c.auth.GoogleLogin)
		auth.POST("/auth/password/reset", c.auth.ResetPassword)
		auth.POST("/tutor/auth/login", c.auth.TutorLogin)
	}
}

func (a *App) registerStudentRoutes(group *gin.RouterGroup, c *controllers) {
	group.POST("/auth/logout", c.auth.Logout)

	group.GET("/profile", c.student.GetProfile)
	group.PUT("/profile", c.student.UpdateProfile)
	group.POST("/profile/avatar", c.student.UploadAvatar)

	group.POST("/courses/:id/enroll", c.enrollment.Enroll)
	group.GET("/enrollments", c.enrollment.ListMine)
	group.GET("/courses/:id/progress", c.progress.GetCourseProgress)
	group.POST("/courses/:id/reviews", c.review.Upsert)

	group.POST("/materials/:id/access", c.progress.RecordAccess)
	group.POST("/materials/:id/complete", c.progress.CompleteMaterial)

	group.POST("/assignments/:id/submit", c.assignment.Submit)
	group.GET("/assignments/:id/submission", c.assignment.GetMySubmission)
}

func (a *App) registerTutorRoutes(group *gin.RouterGroup, c *controllers) {
	group.POST("/auth/logout", c.auth.Logout)

	courses := group.Group("/courses")
	{
		courses.GET("", c.course.ListManaged)
		courses.POST("", c.course.Create)
		courses.PUT("/:id", c.course.Update)
		courses.PATCH("/:id/status", c.course.ChangeStatus)
		courses.DELETE("/:id", c.course.Delete)

		courses.POST("/:id/modules", c.module.Create)
		courses.PUT("/:id/modules/order", c.module.Reorder)
		courses.POST("/:id/materials", c.material.Create)
		courses.POST("/:id/assignments", c.assignment.Create)
		courses.GET("/:id/enrollments", c.enrollment.ListByCourse)
	}

	group.PUT("/modules/:id", c.module.Update)
	group.DELETE("/modules/:id", c.module.Delete)

	group.PUT("/materials/:id", c.material.Update)
	group.DELETE("/materials/:id", c.material.Delete)

	group.PUT("/assignments/:id", c.assignment.Update)
	group.DELETE("/assignments/:id", c.assignment.Delete)
	group.GET("/assignments/:id/submissions", c.assignment.ListSubmissions)
	group.POST("/submissions/:id/grade", c.assignment.Grade)
}

func (a *App) registerAdminRoutes(group *gin.RouterGroup, c *controllers) {
	group.PATCH("/enrollments/:id/status", c.enrollment.SetStatus)
	group.POST("/enrollments/:id/recompute", c.enrollment.Recompute)
	group.PATCH("/students/:id/block", c.student.SetBlocked)
}
