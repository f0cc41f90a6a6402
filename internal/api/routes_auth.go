package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/campushub/internal/handlers"
)

func registerAuthRoutes(api *gin.RouterGroup, handler *handlers.AuthHandler) {
	auth := api.Group("/auth")
	{
		auth.GET("/me", handler.Me)
		auth.POST("/signout", handler.SignOut)
		auth.POST("/password", handler.ChangePassword)
	}
}

func registerProfileRoutes(api *gin.RouterGroup, handler *handlers.ProfileHandler) {
	profile := api.Group("/profile")
	{
		profile.GET("", handler.Get)
		profile.PATCH("", handler.Update)
	}
}

func registerDirectoryRoutes(api *gin.RouterGroup, handler *handlers.DirectoryHandler) {
	api.GET("/campuses", handler.Campuses)
	api.GET("/departments", handler.Departments)
}
