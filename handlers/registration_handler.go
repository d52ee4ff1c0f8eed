package handlers

import (
	"net/http"

	"flux-parties/models"
	"flux-parties/services"

	"github.com/labstack/echo/v5"
)

type RegistrationHandler struct {
	registration *services.RegistrationService
}

func NewRegistrationHandler(registration *services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registration: registration}
}

// Register - create a guest against the active wave
func (h *RegistrationHandler) Register(c echo.Context) error {
	var req services.RegistrationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	guest, err := h.registration.Register(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, guest)
}

// Terms - the conditions guests confirm before registering
func (h *RegistrationHandler) Terms(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"terms": models.Terms})
}
