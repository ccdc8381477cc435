package router

import (
	"github.com/gin-gonic/gin"

	"lostfound-bot/internal/http/handler"
)

func SetupRoutes(router *gin.Engine, poll *handler.PollHandler) {
	router.GET("/poll/", poll.Poll)
}
