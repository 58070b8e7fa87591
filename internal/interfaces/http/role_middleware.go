package http

import (
	"slices"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/facturacion-api/internal/application/dto"
)

// RequireRole devuelve un middleware Fiber que exige que el rol del token esté en roles.
// Debe usarse DESPUÉS de AuthMiddleware (necesita LocalRole).
//
// Comportamiento:
//   - roles vacío → no restringe.
//   - 403 Forbidden → rol ausente o no permitido.
func RequireRole(roles ...string) fiber.Handler {
	if len(roles) == 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return func(c *fiber.Ctx) error {
		role := GetRole(c)
		if role == "" || !slices.Contains(roles, role) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    "FORBIDDEN_ROLE",
				Message: "el rol '" + role + "' no puede modificar facturas",
			})
		}
		return c.Next()
	}
}
