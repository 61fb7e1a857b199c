package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler builds the gin engine with every route mounted.
func (s *HTTPServer) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.observe())
	r.NoRoute(s.notFound)

	r.GET("/healthz", s.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	authGroup := r.Group("/auth")
	authGroup.POST("/register", s.register)
	authGroup.POST("/login", s.login)
	authGroup.GET("/me", s.requireToken(), s.me)

	api := r.Group("/api", s.requireToken())
	for _, mount := range s.protected {
		mount(api)
	}

	return r
}
