package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	submitRPS   = 1.0 / 3.0 // one submission every 3 seconds per IP
	submitBurst = 1
)

// SetupRoutes wires middleware and every API route onto the router.
func SetupRoutes(router *gin.Engine, env *Env, corsOrigin string) {
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(ZapLogger(env.Log))
	router.Use(SecurityHeadersMiddleware())

	if corsOrigin == "" {
		corsOrigin = "*"
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{corsOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
	}))

	limiter := NewIPRateLimiter(rate.Limit(submitRPS), submitBurst)
	go limiter.Janitor(10 * time.Minute)

	router.GET("/healthz", env.Health)

	authGroup := router.Group("/auth")
	{
		authGroup.GET("/google", env.GoogleLogin)
		authGroup.GET("/google/callback", env.GoogleCallback)
	}

	api := router.Group("/api")
	{
		api.GET("/endorsements", env.ListEndorsements)

		authed := api.Group("", env.RequireAuth())
		{
			authed.GET("/profile", env.GetProfile)
			authed.PUT("/profile", env.UpdateProfile)

			authed.POST("/endorsements", RateLimitMiddleware(limiter), env.CreateEndorsement)
			authed.GET("/endorsements/mine", env.ListMyEndorsements)
			authed.DELETE("/endorsements/:id", env.DeleteEndorsement)

			authed.POST("/requests", RateLimitMiddleware(limiter), env.CreateRequest)
			authed.GET("/requests/mine", env.ListMyRequests)
			authed.POST("/requests/:id/replies", env.AddReply)
		}

		admin := api.Group("/admin", env.RequireAuth(), env.RequireAdmin())
		{
			admin.GET("/endorsements", env.ListModerationEndorsements)
			admin.POST("/endorsements/:id/approve", env.ApproveEndorsement)

			admin.GET("/requests", env.ListAllRequests)
			admin.PATCH("/requests/:id/status", env.SetRequestStatus)
			admin.DELETE("/requests/:id", env.DeleteRequest)
			admin.DELETE("/replies/:id", env.DeleteReply)

			admin.PATCH("/residents/:id/role", env.SetResidentRole)
			admin.DELETE("/residents/:id", env.DeleteResident)
		}
	}

	router.GET("/ws/admin", env.RequireAuth(), env.RequireAdmin(), env.AdminFeed)
}
