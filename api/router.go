package api

import (
	"github.com/SlpAus/ranked-poll-backend/internal/gateway"
	"github.com/SlpAus/ranked-poll-backend/internal/poll"
	"github.com/gin-gonic/gin"
)

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine, pollHandler *poll.Handler, realtimeGateway *gateway.Gateway) {
	api := router.Group("/api")
	{
		// 投票间相关的路由组 /api/polls
		pollRoutes := api.Group("/polls")
		{
			pollRoutes.POST("", pollHandler.CreatePoll)
			pollRoutes.POST("/join", pollHandler.JoinPoll)
			pollRoutes.POST("/rejoin", poll.RequireAuth(), pollHandler.RejoinPoll)

			// 实时通道，令牌在升级前校验
			pollRoutes.GET("/ws", realtimeGateway.ServeWS)
		}
	}
}
