package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"go-signal-server/dto"
	"go-signal-server/service"
	"go-signal-server/utils"
)

type EchoController struct {
	Controller
	echoService service.EchoTestService
}

func NewEchoController(svc service.EchoTestService) *EchoController {
	return &EchoController{echoService: svc}
}

// RunEchoTestHandler submits the request body as an offer to the relay and
// waits for the automated answer. The optional duration query parameter is
// in seconds; values above the configured maximum are clamped, not rejected.
func (api *EchoController) RunEchoTestHandler(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.RespondJSON(c, http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	duration := service.DefaultEchoDuration
	if raw := c.Query("duration"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil {
			utils.RespondJSON(c, http.StatusBadRequest, gin.H{"error": "invalid duration"})
			return
		}
		duration = time.Duration(secs) * time.Second
	}

	answer, err := api.echoService.RunEchoTest(c.Request.Context(), string(body), duration)
	switch {
	case errors.Is(err, service.ErrValidation):
		utils.RespondJSON(c, http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrEchoTimeout):
		utils.RespondJSON(c, http.StatusRequestTimeout, gin.H{"error": err.Error()})
	case err != nil:
		utils.RespondJSON(c, http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		utils.RespondJSON(c, http.StatusOK, dto.EchoAnswer{Sdp: answer})
	}
}
