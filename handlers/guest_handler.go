package handlers

import (
	"net/http"

	"flux-parties/services"

	"github.com/labstack/echo/v5"
)

type GuestHandler struct {
	guests *services.GuestService
}

func NewGuestHandler(guests *services.GuestService) *GuestHandler {
	return &GuestHandler{guests: guests}
}

// List - every guest, joined with tokens, status and payment
func (h *GuestHandler) List(c echo.Context) error {
	guests, err := h.guests.ListGuests()
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, guests)
}

// Lookup - retrieve a ticket by any of its tokens, pre-approval flow
func (h *GuestHandler) Lookup(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "token query parameter is required"})
	}

	guest, found, err := h.guests.FindGuestByToken(token)
	if err != nil {
		return writeError(c, err)
	}
	if !found {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no ticket matches that code"})
	}
	return c.JSON(http.StatusOK, guest)
}
