package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"modaccess/internal/config"
	"modaccess/internal/http/auth"
	"modaccess/internal/http/common"
	requesthttp "modaccess/internal/http/requests"
	"modaccess/internal/usecase"
)

type Server struct {
	cfg           config.Config
	r             *gin.Engine
	service       *usecase.AccessService
	catalog       usecase.Catalog
	authenticator common.Authenticator
	logger        *zap.Logger
}

type ServerDeps struct {
	Service       *usecase.AccessService
	Catalog       usecase.Catalog
	Authenticator common.Authenticator
	Logger        *zap.Logger
}

func NewServer(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:           cfg,
		r:             r,
		service:       deps.Service,
		catalog:       deps.Catalog,
		authenticator: deps.Authenticator,
		logger:        deps.Logger,
	}
	if s.authenticator == nil {
		s.authenticator = auth.NewHeaderAuthenticator()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	r.Use(s.requestLogger())
	s.routes()
	return s
}

func (s *Server) Run() error {
	addr := s.cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	s.logger.Info("modaccess listening", zap.String("addr", addr))
	return s.r.Run(addr)
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	handler := requesthttp.NewHandler(s.service)
	authn := common.AuthMiddleware(s.authenticator)

	v1 := s.r.Group("/v1")
	{
		v1.POST("/requests", authn, handler.HandleCreate)
		v1.GET("/requests", authn, handler.HandleList)
		v1.GET("/requests/:id", authn, handler.HandleGet)
		v1.GET("/requests/:id/history", authn, handler.HandleHistory)
		v1.POST("/requests/:id/renew", authn, handler.HandleRenew)
		v1.POST("/requests/:id/cancel", authn, handler.HandleCancel)

		v1.GET("/catalog/modules", authn, s.handleListModules)
	}
}

func (s *Server) handleListModules(c *gin.Context) {
	snapshot, err := s.catalog.Snapshot(c.Request.Context())
	if err != nil {
		common.WriteError(c, err)
		return
	}
	type moduleResponse struct {
		ID          string   `json:"id"`
		Active      bool     `json:"active"`
		Departments []string `json:"departments"`
	}
	modules := snapshot.Modules()
	resp := make([]moduleResponse, 0, len(modules))
	for _, m := range modules {
		departments := make([]string, 0, len(m.Departments))
		for _, d := range m.Departments {
			departments = append(departments, string(d))
		}
		resp = append(resp, moduleResponse{ID: m.ID, Active: m.Active, Departments: departments})
	}
	c.JSON(200, gin.H{"modules": resp})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
