package http

import (
	"github.com/gin-gonic/gin"
)

var basePath = "/api/v1"

type StatusController interface {
	GetStatus(*gin.Context)
	GetCheckpoint(*gin.Context)
}

type Server struct {
	listenHost string
	router     *gin.Engine
}

func NewServer(host string) *Server {
	return &Server{listenHost: host, router: gin.Default()}
}

func (s *Server) RegisterRoutes(t StatusController) {
	base := s.router.Group(basePath)

	base.GET("/status", t.GetStatus)
	base.GET("/checkpoint", t.GetCheckpoint)
}

func (s *Server) Run() error {
	return s.router.Run(s.listenHost)
}
