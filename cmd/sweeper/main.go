package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jhoicas/facturacion-api/internal/application/billing"
	"github.com/jhoicas/facturacion-api/internal/infrastructure/notify"
	"github.com/jhoicas/facturacion-api/internal/infrastructure/postgres"
	"github.com/jhoicas/facturacion-api/pkg/config"
	"github.com/jhoicas/facturacion-api/pkg/logger"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sweeper",
	Short: "Marca como past_due las facturas vencidas con saldo",
	Long: `Recorre las facturas emitidas o parcialmente pagadas cuya fecha de vencimiento
ya pasó y les aplica el evento overdue, cada una en su propia transacción.

Usa la misma configuración que la API (DATABASE_URL, BILLING_*, RABBITMQ_*, SENTRY_DSN).`,
	Example: `  # Una sola corrida (cron)
  sweeper --once

  # Proceso residente cada 15 minutos en lotes de 500
  sweeper --interval 15m --batch 500`,
	SilenceUsage: true,
	RunE:         runSweeper,
}

func init() {
	rootCmd.Flags().Bool("once", false, "Ejecuta una corrida y termina")
	rootCmd.Flags().Duration("interval", 0, "Intervalo entre corridas (por defecto BILLING_SWEEP_INTERVAL)")
	rootCmd.Flags().Int("batch", 0, "Facturas por corrida (por defecto BILLING_SWEEP_BATCH)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sweeper: %v\n", err)
		os.Exit(1)
	}
}

func runSweeper(cmd *cobra.Command, _ []string) error {
	once, _ := cmd.Flags().GetBool("once")
	interval, _ := cmd.Flags().GetDuration("interval")
	batch, _ := cmd.Flags().GetInt("batch")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if interval <= 0 {
		interval = cfg.Billing.SweepInterval
	}
	if batch <= 0 {
		batch = cfg.Billing.SweepBatch
	}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.Sentry.Environment}); err != nil {
			return fmt.Errorf("sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}
	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name + "-sweeper",
		Sentry:  cfg.Sentry.DSN != "",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	defer pool.Close()

	publisher, closePublisher, err := notify.New(ctx, cfg.RabbitMQ, log.Zerolog())
	if err != nil {
		return fmt.Errorf("conexión a RabbitMQ: %w", err)
	}
	defer func() { _ = closePublisher() }()

	uc := billing.NewInvoiceUseCase(
		postgres.NewInvoiceRepository(pool),
		postgres.NewTxRunner(pool, cfg.Billing.TxMaxRetries),
		publisher,
		log.Zerolog(),
		billing.Config{
			NumberPrefix:        cfg.Billing.NumberPrefix,
			DefaultCurrency:     cfg.Billing.DefaultCurrency,
			DefaultNetTermsDays: cfg.Billing.DefaultNetTermsDays,
		},
	)

	if once {
		res, err := uc.SweepPastDue(ctx, batch)
		if err != nil {
			return err
		}
		if res.Failed > 0 {
			return fmt.Errorf("%d facturas no pudieron marcarse", res.Failed)
		}
		return nil
	}

	log.Info().Dur("interval", interval).Int("batch", batch).Msg("barrido residente iniciado")
	return uc.RunSweepLoop(ctx, interval, batch)
}
