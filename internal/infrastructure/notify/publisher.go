package notify

import (
	"context"

	"github.com/jhoicas/facturacion-api/internal/application/billing"
	"github.com/jhoicas/facturacion-api/pkg/config"
	"github.com/rs/zerolog"
)

// New elige el publicador según la configuración: RabbitMQ si hay URL, log en otro caso.
// close libera la conexión al broker.
func New(ctx context.Context, cfg config.RabbitMQConfig, log zerolog.Logger) (billing.EventPublisher, func() error, error) {
	if !cfg.Enabled() {
		return NewLogPublisher(log), func() error { return nil }, nil
	}
	conn, err := Dial(ctx, cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	pub, err := NewRabbitPublisher(conn.Channel, cfg.Exchange, log)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return pub, conn.Close, nil
}
