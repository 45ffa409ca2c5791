// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medride/internal/http/handlers"
	"medride/internal/http/middleware"
)

func NewRouter(deps ServerDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Logger), middleware.Logging(deps.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	if deps.RateLimiter != nil {
		api.Use(deps.RateLimiter.Middleware())
	}

	v := handlers.NewValidator()

	quotes := handlers.NewQuoteHandler(deps.Pricing, deps.Distance, v)
	api.POST("/quotes", quotes.Quote)

	requests := handlers.NewRequestHandler(deps.Requests, deps.Distance, v)
	api.POST("/requests", requests.Create)
	api.GET("/requests", requests.List)
	api.GET("/requests/:id", requests.Get)
	api.POST("/requests/:id/accept", requests.Accept)
	api.POST("/requests/:id/reject", requests.Reject)
	api.POST("/requests/:id/cancel", requests.Cancel)
	api.POST("/requests/:id/start", requests.Start)
	api.POST("/requests/:id/complete", requests.Complete)
	api.GET("/history", requests.History)

	rewards := handlers.NewRewardHandler(deps.Rewards, v)
	api.POST("/rewards", rewards.Add)
	api.GET("/actors/:id/rewards", rewards.Actor)

	notifications := handlers.NewNotificationHandler(deps.Inbox, deps.Hub)
	api.GET("/notifications", notifications.List)
	api.GET("/notifications/stream", notifications.Stream)
	api.POST("/notifications/:id/read", notifications.MarkRead)

	return r
}
