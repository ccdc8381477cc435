package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"lostfound-bot/internal/http/dto"
)

type Poller interface {
	Poll(ctx context.Context) error
}

type PollerFunc func(ctx context.Context) error

func (f PollerFunc) Poll(ctx context.Context) error { return f(ctx) }

type PollHandler struct {
	poller Poller
}

func NewPollHandler(poller Poller) *PollHandler {
	return &PollHandler{poller: poller}
}

// Poll runs one cycle and reports the outcome. Failures answer 500 with the error text.
func (h *PollHandler) Poll(c *gin.Context) {
	if err := h.poller.Poll(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, dto.PollResponse{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.PollResponse{Success: true})
}
