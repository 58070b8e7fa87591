package http

import (
	"errors"
	"fmt"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/facturacion-api/internal/application/dto"
	"github.com/jhoicas/facturacion-api/internal/domain"
)

var validate = validator.New()

// errorMapping traduce un sentinel del dominio a status y código HTTP. El orden importa:
// gana la primera coincidencia.
var errorMapping = []struct {
	target error
	status int
	code   string
}{
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "INVALID_INPUT"},
	{domain.ErrInvalidLineItem, fiber.StatusBadRequest, "INVALID_LINE_ITEM"},
	{domain.ErrReasonRequired, fiber.StatusBadRequest, "REASON_REQUIRED"},
	{domain.ErrCurrencyMismatch, fiber.StatusBadRequest, "CURRENCY_MISMATCH"},
	{domain.ErrAmountOutOfRange, fiber.StatusBadRequest, "AMOUNT_OUT_OF_RANGE"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrInvoiceNotEditable, fiber.StatusConflict, "INVOICE_NOT_EDITABLE"},
	{domain.ErrInvalidStateTransition, fiber.StatusConflict, "INVALID_STATE_TRANSITION"},
	{domain.ErrInvoiceNotIssued, fiber.StatusConflict, "INVOICE_NOT_ISSUED"},
	{domain.ErrOverpaymentRejected, fiber.StatusConflict, "OVERPAYMENT_REJECTED"},
	{domain.ErrVersionConflict, fiber.StatusConflict, "VERSION_CONFLICT"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
}

// writeError responde el error mapeado. Lo no mapeado (incluida la violación de invariantes)
// es 500, se reporta a Sentry y no expone el detalle.
func writeError(c *fiber.Ctx, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: validationMessage(verrs)})
	}
	for _, m := range errorMapping {
		if errors.Is(err, m.target) {
			return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: err.Error()})
		}
	}
	sentry.CaptureException(err)
	code := "INTERNAL"
	if errors.Is(err, domain.ErrInvariantViolation) {
		code = "INVARIANT_VIOLATION"
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: code, Message: "error interno"})
}

func validationMessage(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// bindBody parsea el cuerpo JSON y aplica las reglas validate de la estructura.
func bindBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return fmt.Errorf("%w: cuerpo inválido", domain.ErrInvalidInput)
	}
	return validate.Struct(out)
}
