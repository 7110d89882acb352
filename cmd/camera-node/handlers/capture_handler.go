package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/kenjp1223/dual-camera/core/capture"
	"github.com/kenjp1223/dual-camera/core/ccc/logging"
	"github.com/kenjp1223/dual-camera/core/nodeclient"
)

// CaptureHandler handles capture control operations for this node
type CaptureHandler struct {
	logger     logging.Logger
	supervisor capture.Supervisor

	mu      sync.Mutex
	current *capture.Handle
}

// NewCaptureHandler creates a new capture handler
func NewCaptureHandler(logger logging.Logger, supervisor capture.Supervisor) *CaptureHandler {
	if logger == nil {
		logger = logging.NopLogger
	}

	return &CaptureHandler{
		logger:     logger,
		supervisor: supervisor,
	}
}

// Prepare handles POST /api/capture/prepare
func (h *CaptureHandler) Prepare(c *gin.Context) {
	var req nodeclient.CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid prepare request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error(), "reason": string(capture.ReasonInvalidParameter)})
		return
	}

	if err := h.supervisor.Prepare(req.Params()); err != nil {
		h.logger.Warn("Prepare rejected", "error", err)
		c.JSON(statusForReason(capture.ReasonOf(err)), gin.H{"error": err.Error(), "reason": string(capture.ReasonOf(err))})
		return
	}

	h.logger.Info("Prepare accepted", "subject", req.Subject, "duration_seconds", req.DurationSeconds)
	c.JSON(http.StatusOK, gin.H{"status": "prepared"})
}

// Start handles POST /api/capture/start
func (h *CaptureHandler) Start(c *gin.Context) {
	var req nodeclient.CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid start request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error(), "reason": string(capture.ReasonInvalidParameter)})
		return
	}

	handle, err := h.supervisor.Start(req.Params())
	if err != nil {
		h.logger.Error("Failed to start capture", err)
		c.JSON(statusForReason(capture.ReasonOf(err)), gin.H{"error": err.Error(), "reason": string(capture.ReasonOf(err))})
		return
	}

	h.mu.Lock()
	h.current = handle
	h.mu.Unlock()

	h.logger.Info("Capture started", "job_id", handle.JobID, "dir", handle.Dir)
	c.JSON(http.StatusOK, nodeclient.StartResponse{
		JobID:     handle.JobID,
		Dir:       handle.Dir,
		StartedAt: handle.StartedAt,
	})
}

// Stop handles POST /api/capture/stop. It finalizes the active job and
// returns its terminal status; stopping with no active job is not an error.
func (h *CaptureHandler) Stop(c *gin.Context) {
	h.mu.Lock()
	handle := h.current
	h.mu.Unlock()

	if handle == nil {
		c.JSON(http.StatusOK, capture.Status{State: capture.StateIdle})
		return
	}

	result, err := h.supervisor.Stop(handle)
	if err != nil {
		h.logger.Error("Failed to stop capture", err, "job_id", handle.JobID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "reason": string(capture.ReasonProcessExited)})
		return
	}

	h.logger.Info("Capture stopped", "job_id", handle.JobID, "state", string(result.State))
	c.JSON(http.StatusOK, capture.Status{
		JobID:     handle.JobID,
		State:     result.State,
		Reason:    result.Reason,
		Dir:       result.Dir,
		StartedAt: result.StartedAt,
		Result:    result,
	})
}

// Status handles GET /api/capture/status
func (h *CaptureHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.supervisor.Current())
}

// statusForReason maps a capture failure reason to an HTTP status code.
func statusForReason(reason capture.Reason) int {
	switch reason {
	case capture.ReasonInvalidParameter:
		return http.StatusBadRequest
	case capture.ReasonDeviceNotFound:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
