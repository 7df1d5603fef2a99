// README: API server; holds module services and builds the gin engine.
package http

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"droptaxi/internal/http/handlers"
	"droptaxi/internal/infra"
	"droptaxi/internal/modules/booking"
	"droptaxi/internal/modules/pricing"
	"droptaxi/internal/modules/settlement"
)

type ServerDeps struct {
	Booking    *booking.Service
	Settlement *settlement.Service
	Pricing    *pricing.Service
	Places     handlers.Places
	Verifier   infra.TokenVerifier
	Log        logrus.FieldLogger
}

type Server struct {
	deps ServerDeps
}

func NewServer(deps ServerDeps) *Server {
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	return &Server{deps: deps}
}

func (s *Server) Routes() *gin.Engine {
	return NewRouter(s.deps)
}
