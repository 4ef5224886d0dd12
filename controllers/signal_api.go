package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-signal-server/dto"
	"go-signal-server/models"
	"go-signal-server/service"
	"go-signal-server/utils"
)

type SignalController struct {
	Controller
	signalService service.SignalService
}

func NewSignalController(svc service.SignalService) *SignalController {
	return &SignalController{signalService: svc}
}

// ClaimSignalHandler delivers the oldest pending signal for (to, from).
// The claimed payload is opaque JSON and is written back verbatim.
func (api *SignalController) ClaimSignalHandler(c *gin.Context) {
	kind := c.Param("kind")
	if kind == "" {
		kind = models.KindAny
	}
	payload, err := api.signalService.ClaimNextSignal(c.Param("to"), c.Param("from"), kind)
	switch {
	case errors.Is(err, service.ErrNoPendingSignal):
		utils.RespondJSON(c, http.StatusNoContent, nil)
	case errors.Is(err, service.ErrValidation):
		utils.RespondJSON(c, http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		utils.RespondJSON(c, http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.Data(http.StatusOK, "application/json", []byte(payload))
	}
}

func (api *SignalController) PutOfferOrAnswerHandler(c *gin.Context) {
	payload, ok := readBody(c)
	if !ok {
		return
	}
	err := api.signalService.PutOfferOrAnswer(c.Param("from"), c.Param("to"), payload)
	respondPut(c, err)
}

func (api *SignalController) PutCandidateHandler(c *gin.Context) {
	payload, ok := readBody(c)
	if !ok {
		return
	}
	err := api.signalService.PutCandidate(c.Param("from"), c.Param("to"), payload)
	respondPut(c, err)
}

func readBody(c *gin.Context) (string, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.RespondJSON(c, http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return "", false
	}
	return string(body), true
}

func respondPut(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		utils.RespondJSON(c, http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		utils.RespondJSON(c, http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		utils.RespondJSON(c, http.StatusOK, dto.Ack{Status: "ok"})
	}
}
