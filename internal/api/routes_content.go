package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/campushub/internal/handlers"
)

func registerChatRoutes(api *gin.RouterGroup, handler *handlers.ChatHandler) {
	chat := api.Group("/chat")
	{
		chat.GET("/rooms", handler.ListRooms)
		chat.POST("/rooms", handler.CreateRoom)
		chat.GET("/rooms/:id/messages", handler.ListMessages)
		chat.POST("/rooms/:id/messages", handler.SendMessage)
		chat.POST("/rooms/:id/read", handler.MarkRead)
		chat.DELETE("/messages/:id", handler.DeleteMessage)
	}
}

func registerDocumentRoutes(api *gin.RouterGroup, handler *handlers.DocumentHandler) {
	documents := api.Group("/documents")
	{
		documents.GET("", handler.List)
		documents.POST("", handler.Upload)
		documents.PATCH("/:id", handler.SetHidden)
		documents.DELETE("/:id", handler.Delete)
	}
}

func registerUploadRoutes(api *gin.RouterGroup, handler *handlers.UploadHandler) {
	api.POST("/uploads", handler.Create)
}
