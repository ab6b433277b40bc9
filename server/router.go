package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"social-hub/infrastructure/configuration"
	httpHandler "social-hub/interfaces/http"
	"social-hub/interfaces/middleware"
)

func InitiateRouter(
	authHandler httpHandler.IAuthHandler,
	publishHandler httpHandler.IPublishHandler,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:4200", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.POST("/login", authHandler.Login)

	// The callback must stay public: the provider redirects the browser
	// here without our API token. Starting the flow requires one.
	router.GET("/auth/:platform/authorize", middleware.Auth(configuration.C.App.SecretKey), authHandler.GetAuthURL)
	router.GET("/auth/:platform/callback", authHandler.Callback)

	if configuration.C.Media.Dir != "" {
		router.Static("/media", configuration.C.Media.Dir)
	}

	api := router.Group("api")
	api.Use(middleware.Auth(configuration.C.App.SecretKey))

	api.POST("/auth/:platform/refresh", authHandler.Refresh)
	api.POST("/auth/:platform/revoke", authHandler.Revoke)
	api.GET("/accounts", authHandler.ListAccounts)
	api.GET("/accounts/:accountId/metrics", authHandler.AccountMetrics)
	api.GET("/accounts/:accountId/posts/:postId/metrics", authHandler.PostMetrics)

	api.POST("/publish", publishHandler.Publish)
	api.GET("/publish/:publishId", publishHandler.GetPublish)
	api.GET("/publish/:publishId/status", publishHandler.GetStatus)
	api.GET("/platforms", publishHandler.Platforms)

	return router
}
