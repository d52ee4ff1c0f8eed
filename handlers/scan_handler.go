package handlers

import (
	"errors"
	"net/http"

	"flux-parties/internal/status"
	"flux-parties/services"

	"github.com/labstack/echo/v5"
)

type ScanHandler struct {
	lifecycle *services.LifecycleService
}

func NewScanHandler(lifecycle *services.LifecycleService) *ScanHandler {
	return &ScanHandler{lifecycle: lifecycle}
}

type scanRequest struct {
	Token string `json:"token"`
}

// CheckIn - consume an entry scan. Scan rejections answer 200 with the
// ScanResult body; the security UI renders accepted and rejected scans the
// same way. Only store faults become HTTP errors.
func (h *ScanHandler) CheckIn(c echo.Context) error {
	var req scanRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	res, err := h.lifecycle.CheckIn(c.Request().Context(), req.Token)
	if err != nil && !isScanOutcome(err) {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// CheckOut - consume an exit scan
func (h *ScanHandler) CheckOut(c echo.Context) error {
	var req scanRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	res, err := h.lifecycle.CheckOut(c.Request().Context(), req.Token)
	if err != nil && !isScanOutcome(err) {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func isScanOutcome(err error) bool {
	return errors.Is(err, status.ErrInvalidToken) ||
		errors.Is(err, status.ErrPaymentNotApproved) ||
		errors.Is(err, status.ErrNotCheckedIn) ||
		errors.Is(err, status.ErrDuplicateScan)
}
