// README: API gateway; owns the gin engine and delegates to module services.
package http

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"medride/internal/http/middleware"
	"medride/internal/modules/distance"
	"medride/internal/modules/notification"
	"medride/internal/modules/pricing"
	"medride/internal/modules/request"
	"medride/internal/modules/reward"
)

type ServerDeps struct {
	Requests    *request.Service
	Pricing     *pricing.Service
	Rewards     *reward.Service
	Distance    *distance.Service
	Inbox       *notification.Inbox
	Hub         *notification.Hub
	RateLimiter *middleware.RateLimiter
	Logger      *logrus.Logger
}

type Server struct {
	deps ServerDeps
}

func NewServer(deps ServerDeps) *Server {
	return &Server{deps: deps}
}

func (s *Server) Routes() *gin.Engine {
	return NewRouter(s.deps)
}
