// Package server exposes the estimator over HTTP.
package server

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"staffing-estimator/config"
	"staffing-estimator/estimator"
	"staffing-estimator/metrics"
)

// Router wires middleware and routes. cfg is the base configuration every
// request starts from before applying its form overrides.
func Router(cfg config.Config, est *estimator.Estimator, version string, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(Logger(logger))
	r.MaxMultipartMemory = cfg.Server.MaxUploadMB << 20

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", RequestIDHeader},
		ExposeHeaders: []string{RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if cfg.Server.CORSOrigins == "" || cfg.Server.CORSOrigins == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		for _, origin := range strings.Split(cfg.Server.CORSOrigins, ",") {
			corsCfg.AllowOrigins = append(corsCfg.AllowOrigins, strings.TrimSpace(origin))
		}
	}
	r.Use(cors.New(corsCfg))

	h := &Handler{
		Estimator: est,
		Base:      cfg,
		Logger:    logger,
		Version:   version,
	}

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	{
		api.GET("/config", h.Config)
		api.POST("/estimate", h.Estimate)
	}

	return r
}
