package restapi

import (
	"net/http/pprof"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// RouterOptions toggles the optional routes.
type RouterOptions struct {
	AllowedOrigins  []string
	SwaggerEnabled  bool
	SwaggerSpecPath string
	MetricsEnabled  bool
	PprofEnabled    bool
}

// SetupRouter builds the gin engine with the API, docs and diagnostics routes.
func SetupRouter(handler *SessionHandler, opts RouterOptions, logger *zap.Logger) *gin.Engine {
	router := gin.New()

	corsConfig := cors.DefaultConfig()
	if len(opts.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = opts.AllowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	router.Use(cors.New(corsConfig))
	router.Use(ZapLoggerMiddleware(logger))
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	{
		v1.GET("/session", handler.GetSessionHandler)
		v1.POST("/session/connect", handler.ConnectHandler)

		v1.GET("/tokens", handler.ListTokensHandler)
		v1.POST("/tokens", handler.AddTokenHandler)
		v1.POST("/tokens/refresh", handler.RefreshTokensHandler)

		v1.GET("/history", handler.ListHistoryHandler)
		v1.POST("/history/refresh", handler.RefreshHistoryHandler)
	}

	if opts.SwaggerEnabled && opts.SwaggerSpecPath != "" {
		router.StaticFile("/docs/swagger.yaml", opts.SwaggerSpecPath)
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/docs/swagger.yaml")))
	}

	if opts.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// keep these behind a config flag in production
	if opts.PprofEnabled {
		pprofRouter := router.Group("/debug/pprof")
		{
			pprofRouter.GET("/", gin.WrapF(pprof.Index))
			pprofRouter.GET("/cmdline", gin.WrapF(pprof.Cmdline))
			pprofRouter.GET("/profile", gin.WrapF(pprof.Profile))
			pprofRouter.GET("/symbol", gin.WrapF(pprof.Symbol))
			pprofRouter.GET("/trace", gin.WrapF(pprof.Trace))
			pprofRouter.GET("/goroutine", gin.WrapH(pprof.Handler("goroutine")))
			pprofRouter.GET("/heap", gin.WrapH(pprof.Handler("heap")))
		}
	}

	return router
}
