//go:build release
// +build release

package main

import (
	"github.com/gin-gonic/gin"
	"github.com/yeti47/motioncam/config"
)

// initializeGin sets up Gin in release mode for production builds
func initializeGin(cfg *config.Config) *gin.Engine {
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// the status endpoint is meant for the local network, never behind a proxy
	router.SetTrustedProxies(nil)

	return router
}
