package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/facturacion-api/internal/application/analytics"
)

// ReceivablesHandler maneja los reportes de cartera.
type ReceivablesHandler struct {
	uc *analytics.ReceivablesUseCase
}

// NewReceivablesHandler construye el handler.
func NewReceivablesHandler(uc *analytics.ReceivablesUseCase) *ReceivablesHandler {
	return &ReceivablesHandler{uc: uc}
}

// GetSummary devuelve la cartera del tenant por estado efectivo y por antigüedad.
// No requiere parámetros; la fecha de corte es la hora del servidor.
//
// @Summary      Resumen de cartera
// @Tags         receivables
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ReceivablesSummaryDTO
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/receivables/summary [get]
func (h *ReceivablesHandler) GetSummary(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return unauthorized(c)
	}
	summary, err := h.uc.Summary(c.UserContext(), tenantID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(summary)
}
