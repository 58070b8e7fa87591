package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/jhoicas/facturacion-api/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONConServicioYNivel(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Env: "production", Level: "warn", Service: "facturacion-api", Output: &buf})

	l.Info().Msg("no se escribe")
	assert.Zero(t, buf.Len())

	l.Warn().Str("invoice_id", "inv-1").Msg("rechazo")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "facturacion-api", line["service"])
	assert.Equal(t, "inv-1", line["invoice_id"])
}
