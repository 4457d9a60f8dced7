package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Beds-2-Bytes/backend/internal/auth"
	"github.com/Beds-2-Bytes/backend/internal/config"
	"github.com/Beds-2-Bytes/backend/internal/relay"
	"github.com/Beds-2-Bytes/backend/internal/store"
)

// NewServer builds the HTTP server: REST API, health check, and the websocket
// relay endpoint.
func NewServer(engine *relay.Engine, authService *auth.Service, st store.Store, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	// The websocket handshake carries its credential as a query parameter,
	// so /ws sits outside the Bearer-token middleware.
	router.GET("/ws", gin.WrapH(NewWSHandler(engine, authService, cfg.WSSendTimeout, logger)))

	authHandlers := NewAuthHandlers(authService, logger)
	caseHandlers := NewCaseHandlers(st, logger)
	simHandlers := NewSimulationHandlers(st, logger)
	fileHandlers := NewFileHandlers(st, cfg.UploadDir, logger)

	api := router.Group("/api")
	api.POST("/register", authHandlers.Register)
	api.POST("/login", authHandlers.Login)

	authorized := api.Group("", AuthMiddleware(authService, logger))
	authorized.GET("/cases", caseHandlers.ListCases)
	authorized.POST("/cases", caseHandlers.CreateCase)
	authorized.GET("/cases/:id", caseHandlers.GetCase)
	authorized.PATCH("/cases/:id", caseHandlers.UpdateCase)
	authorized.DELETE("/cases/:id", caseHandlers.DeleteCase)

	authorized.GET("/simulations", simHandlers.ListSimulations)
	authorized.POST("/simulations", simHandlers.CreateSimulation)
	authorized.GET("/simulations/:id", simHandlers.GetSimulation)
	authorized.PATCH("/simulations/:id/state", simHandlers.UpdateSimulationState)
	authorized.DELETE("/simulations/:id", simHandlers.DeleteSimulation)
	authorized.GET("/simulations/:id/files", fileHandlers.ListFiles)

	authorized.POST("/files", fileHandlers.UploadFile)
	authorized.GET("/files/:id", fileHandlers.DownloadFile)
	authorized.DELETE("/files/:id", fileHandlers.DeleteFile)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
