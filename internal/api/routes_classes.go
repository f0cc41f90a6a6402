package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/campushub/internal/handlers"
	"github.com/charlesng35/campushub/internal/middleware"
	"github.com/charlesng35/campushub/internal/models"
)

func registerClassRoutes(api *gin.RouterGroup, handler *handlers.ClassHandler, assignments *handlers.AssignmentHandler) {
	teacher := middleware.RequireRole(models.RoleTeacher)
	student := middleware.RequireRole(models.RoleStudent)

	classes := api.Group("/classes")
	{
		classes.POST("", teacher, handler.Create)
		classes.GET("/owned", teacher, handler.ListOwned)
		classes.GET("/enrolled", student, handler.ListEnrolled)
		classes.GET("/explore", student, handler.ListExplore)
		classes.GET("/:id", handler.Details)
		classes.GET("/:id/watch", handler.Watch)
		classes.POST("/:id/enroll", student, handler.Enroll)
		classes.GET("/:id/assignments", assignments.ListByClass)
	}
}

func registerAnnouncementRoutes(api *gin.RouterGroup, handler *handlers.AnnouncementHandler) {
	group := api.Group("/announcements")
	{
		group.GET("", handler.List)
		group.POST("", middleware.RequireRole(models.RoleTeacher), handler.Create)
		group.DELETE("/:id", handler.Delete)
	}
}

func registerAssignmentRoutes(api *gin.RouterGroup, handler *handlers.AssignmentHandler) {
	teacher := middleware.RequireRole(models.RoleTeacher)

	group := api.Group("/assignments")
	{
		group.POST("", teacher, handler.Create)
		group.POST("/:id/publish", teacher, handler.Publish)
		group.GET("/:id/submissions", teacher, handler.ListSubmissions)
		group.POST("/:id/submissions", middleware.RequireRole(models.RoleStudent), handler.Submit)
	}
	api.POST("/submissions/:id/grade", teacher, handler.Grade)
}

func registerPostRoutes(api *gin.RouterGroup, handler *handlers.PostHandler) {
	group := api.Group("/posts")
	{
		group.GET("", handler.List)
		group.POST("", handler.Create)
		group.DELETE("/:id", handler.Delete)
	}
}
