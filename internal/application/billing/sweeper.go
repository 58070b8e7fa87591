package billing

import (
	"context"
	"errors"
	"time"
)

// RunSweepLoop ejecuta SweepPastDue de inmediato y luego cada interval hasta que ctx termine.
// Un error de una corrida se registra y no detiene el ciclo.
func (uc *InvoiceUseCase) RunSweepLoop(ctx context.Context, interval time.Duration, batch int) error {
	if interval <= 0 {
		return errors.New("intervalo de barrido debe ser positivo")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := uc.SweepPastDue(ctx, batch); err != nil && ctx.Err() == nil {
			uc.log.Error().Err(err).Msg("barrido de vencidas falló")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
