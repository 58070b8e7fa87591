package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-api/internal/application/dto"
	apphttp "github.com/jhoicas/facturacion-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/facturacion-api/pkg/jwt"
)

func buildRoleApp(roles ...string) *fiber.App {
	app := fiber.New()
	app.Post("/write",
		apphttp.AuthMiddleware(testJWTSecret, testIssuer),
		apphttp.RequireRole(roles...),
		func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) },
	)
	return app
}

func roleToken(t *testing.T, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testTenantID, testUserID, role, testIssuer, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func postWrite(t *testing.T, app *fiber.App, auth string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/write", nil)
	req.Header.Set("Authorization", auth)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestRequireRole_SinRolesNoRestringe(t *testing.T) {
	resp := postWrite(t, buildRoleApp(), roleToken(t, "viewer"))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestRequireRole_RolPermitido(t *testing.T) {
	resp := postWrite(t, buildRoleApp("admin", "billing"), roleToken(t, "billing"))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestRequireRole_RolNoPermitido(t *testing.T) {
	resp := postWrite(t, buildRoleApp("admin"), roleToken(t, "viewer"))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var body dto.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "FORBIDDEN_ROLE", body.Code)
}

func TestRequireRole_SinRolEnToken(t *testing.T) {
	resp := postWrite(t, buildRoleApp("admin"), roleToken(t, ""))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
