package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/facturacion-api/internal/application/analytics"
	"github.com/jhoicas/facturacion-api/internal/application/billing"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AppName       string
	InvoiceUC     *billing.InvoiceUseCase
	ReceivablesUC *analytics.ReceivablesUseCase // opcional
	JWTSecret     string
	JWTIssuer     string
	// WriteRoles restringe las rutas de escritura; vacío permite cualquier rol.
	WriteRoles []string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})

	// Rutas protegidas (requieren Bearer Token con tenant_id)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))

	invoices := api.Group("/invoices")
	h := NewInvoiceHandler(deps.InvoiceUC)
	write := RequireRole(deps.WriteRoles...)
	invoices.Post("/", write, h.Create)
	invoices.Get("/", h.List)
	invoices.Get("/:id", h.GetByID)
	invoices.Delete("/:id", write, h.Delete)
	invoices.Post("/:id/items", write, h.AddItem)
	invoices.Put("/:id/items/:itemId", write, h.UpdateItem)
	invoices.Delete("/:id/items/:itemId", write, h.RemoveItem)
	invoices.Post("/:id/issue", write, h.Issue)
	invoices.Post("/:id/void", write, h.Void)

	// Libro de pagos
	invoices.Post("/:id/payments", write, h.RecordPayment)
	invoices.Post("/:id/payments/:pid/succeed", write, h.SucceedPayment)
	invoices.Post("/:id/payments/:pid/fail", write, h.FailPayment)

	if deps.ReceivablesUC != nil {
		rh := NewReceivablesHandler(deps.ReceivablesUC)
		api.Get("/receivables/summary", rh.GetSummary)
	}
}
