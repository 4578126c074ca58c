package server

import (
	"net/http"

	"github.com/alissonfar/newApp-sub001/consts"
	"github.com/alissonfar/newApp-sub001/engine"
	"github.com/gin-gonic/gin"
)

func getVersion(c *gin.Context) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"Version": consts.Version,
	})
}

type statusResponse struct {
	Version string
	engine.Stats
	Throttled int64
}

func getStatus(eng *engine.Engine, limiter *runLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, statusResponse{
			Version:   consts.Version,
			Stats:     eng.Stats(),
			Throttled: limiter.throttled.Load(),
		})
	}
}
