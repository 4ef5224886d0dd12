package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-signal-server/config"
	api "go-signal-server/controllers"
	"go-signal-server/middlewares"
)

func NewRoute(signalApi *api.SignalController, echoApi *api.EchoController, stunURLs []string) *gin.Engine {
	r := gin.Default()

	// Register the IPLogger middleware
	r.Use(middlewares.IPLogger())
	// cors bypass
	r.Use(config.CorsMiddleware())

	// Recovery middleware to handle panics
	r.Use(gin.Recovery())

	// signalling
	r.PUT("/sdp/:from/:to", signalApi.PutOfferOrAnswerHandler)
	r.PUT("/ice/:from/:to", signalApi.PutCandidateHandler)

	// echo test against the media relay
	r.POST("/janus", echoApi.RunEchoTestHandler)

	// Client bootstrap info (STUN servers for the browser side)
	r.GET("/config", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"stunUrls": stunURLs})
	})

	// claim endpoints; the static prefixes above take precedence
	r.GET("/:to/:from", signalApi.ClaimSignalHandler)
	r.GET("/:to/:from/:kind", signalApi.ClaimSignalHandler)

	return r
}
