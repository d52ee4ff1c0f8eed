package handlers

import (
	"net/http"

	"flux-parties/models"
	"flux-parties/services"

	"github.com/labstack/echo/v5"
	"github.com/shopspring/decimal"
)

type AdminHandler struct {
	admin     *services.AdminService
	lifecycle *services.LifecycleService
}

func NewAdminHandler(admin *services.AdminService, lifecycle *services.LifecycleService) *AdminHandler {
	return &AdminHandler{admin: admin, lifecycle: lifecycle}
}

func (h *AdminHandler) ListWaves(c echo.Context) error {
	waves, err := h.admin.ListWaves(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, waves)
}

func (h *AdminHandler) UpdateWave(c echo.Context) error {
	var wave models.Wave
	if err := c.Bind(&wave); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if err := h.admin.UpdateWave(c.Request().Context(), wave); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "updated"})
}

func (h *AdminHandler) ActivateWave(c echo.Context) error {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if err := h.admin.SetActiveWave(c.Request().Context(), req.ID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "activated"})
}

// Approve confirms a guest's payment was received
func (h *AdminHandler) Approve(c echo.Context) error {
	var req struct {
		TicketID string `json:"ticket_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if err := h.lifecycle.Approve(c.Request().Context(), req.TicketID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "approved"})
}

// UpdateGuest edits a guest's profile, lifecycle flags and payment row from
// the dashboard. Tokens and wave linkage cannot be changed this way.
func (h *AdminHandler) UpdateGuest(c echo.Context) error {
	var guest models.Guest
	if err := c.Bind(&guest); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if err := h.admin.UpdateGuest(c.Request().Context(), guest); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "updated"})
}

func (h *AdminHandler) DeleteGuest(c echo.Context) error {
	ticketID := c.QueryParam("ticket_id")
	if ticketID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "ticket_id query parameter is required"})
	}
	if err := h.admin.DeleteGuest(c.Request().Context(), ticketID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *AdminHandler) ClearGuests(c echo.Context) error {
	if err := h.admin.ClearGuests(c.Request().Context()); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *AdminHandler) ListExpenses(c echo.Context) error {
	expenses, err := h.admin.ListExpenses(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, expenses)
}

func (h *AdminHandler) AddExpense(c echo.Context) error {
	var req struct {
		Type   string          `json:"type"`
		Amount decimal.Decimal `json:"amount"`
		Note   string          `json:"note"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	expense, err := h.admin.AddExpense(c.Request().Context(), req.Type, req.Amount, req.Note)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, expense)
}

func (h *AdminHandler) DeleteExpense(c echo.Context) error {
	id := c.QueryParam("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "id query parameter is required"})
	}
	if err := h.admin.DeleteExpense(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *AdminHandler) ClearExpenses(c echo.Context) error {
	if err := h.admin.ClearExpenses(c.Request().Context()); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *AdminHandler) Summary(c echo.Context) error {
	sum, err := h.admin.Summarize(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}
