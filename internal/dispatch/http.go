package dispatch

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"avnotify/internal/logger"
	"avnotify/pkg/errors"
	"avnotify/pkg/models"
)

type HTTPHandler struct {
	dispatcher Dispatcher
	logger     logger.Logger
}

func NewHTTPHandler(dispatcher Dispatcher, log logger.Logger) *HTTPHandler {
	return &HTTPHandler{
		dispatcher: dispatcher,
		logger:     log,
	}
}

type DispatchResponse struct {
	Status     string `json:"status"`
	Notified   bool   `json:"notified"`
	StatusCode int    `json:"status_code,omitempty"`
}

func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		v1.POST("/scan-results", h.CreateScanResult)
	}
}

func (h *HTTPHandler) handleError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
}

// CreateScanResult dispatches a scan result synchronously and reports whether
// a chat message was posted.
func (h *HTTPHandler) CreateScanResult(c *gin.Context) {
	var payload models.ScanResultPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.handleError(c, errors.ErrValidation.WithMessage("invalid request body: %v", err))
		return
	}

	res, err := ResultFromPayload(payload)
	if err != nil {
		h.handleError(c, err)
		return
	}

	outcome, err := h.dispatcher.Dispatch(c.Request.Context(), res)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, DispatchResponse{
		Status:     res.Status.String(),
		Notified:   outcome.Notified,
		StatusCode: outcome.StatusCode,
	})
}
