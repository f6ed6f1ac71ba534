package rest

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type server struct {
	health func() bool
}

// NewServer builds the monitoring surface. health reports whether the
// engine's session is usable; nil means always up.
func NewServer(health func() bool) Server {
	return &server{health: health}
}

type Server interface {
	SetupRouter() *gin.Engine
}

func (s *server) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gzip.Gzip(gzip.BestCompression))
	router.Use(gin.Recovery())

	pprof.Register(router)
	router.GET("/_monitoring/health", func(c *gin.Context) {
		if s.health != nil && !s.health() {
			c.JSON(503, gin.H{"status": "DOWN"})
			return
		}
		c.JSON(200, gin.H{"status": "UP"})
	})
	router.GET("/metrics", prometheusHandler())
	return router
}

func prometheusHandler() gin.HandlerFunc {
	h := promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{DisableCompression: true})

	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
