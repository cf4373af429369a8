// Command schemadoctor inspects a tenant database and reports how each
// logical entity resolves against the physical schema: the bound table, the
// tenant column, and any drift from the canonical naming. A non-zero exit
// means at least one entity could not be confirmed in the catalog.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/therciotr/TrMultichat-sub001/internal/config"
	"github.com/therciotr/TrMultichat-sub001/internal/logging"
	"github.com/therciotr/TrMultichat-sub001/internal/observability"
	"github.com/therciotr/TrMultichat-sub001/internal/store"
	"github.com/therciotr/TrMultichat-sub001/internal/tenant"
)

var (
	// Version is set at build time via -ldflags "-X main.Version=...".
	Version = "dev"
	Commit  = "none"
)

func main() {
	if err := run(); err != nil {
		slog.Error("schemadoctor error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	pflag.Bool("version", false, "Print version and exit")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if showVersion, _ := pflag.CommandLine.GetBool("version"); showVersion {
		fmt.Printf("schemadoctor %s (%s)\n", Version, Commit)
		return nil
	}

	logger := logging.NewLogger(logging.Config{
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *observability.ResolutionMetrics
	if cfg.Observability.MetricsEnabled {
		mp, err := observability.InitMeterProvider(observability.Config{
			ServiceName:    cfg.Observability.ServiceName,
			ServiceVersion: Version,
			Environment:    cfg.Observability.Environment,
			MetricsEnabled: true,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize metrics: %w", err)
		}
		defer func() {
			_ = mp.Shutdown(context.Background(), logger.Logger)
		}()

		metrics, err = observability.InitResolutionMetrics()
		if err != nil {
			return fmt.Errorf("failed to initialize resolution metrics: %w", err)
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Observability.MetricsPort),
			Handler: mp.Handler(),
		}
		go func() {
			logger.Info("serving metrics", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server stopped", slog.String("error", err.Error()))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("connecting to database",
		slog.String("target", cfg.Database.Redacted()),
		slog.String("schema", cfg.Database.Schema),
	)
	db, err := config.OpenDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	st := store.New(db, store.Options{
		Schema:  cfg.Database.Schema,
		Logger:  logger,
		Metrics: metrics,
	})

	return diagnose(ctx, st, os.Stdout)
}

func diagnose(ctx context.Context, st *store.Store, out *os.File) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ENTITY\tTABLE\tRESOLUTION\tTENANT COLUMN\tDRIFT")

	unconfirmed := 0
	for _, d := range st.Entities() {
		b, err := st.ResolveTable(ctx, d.Entity)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", d.Entity, err)
		}

		resolution := "catalog"
		if b.BestGuess {
			resolution = "best-guess"
			unconfirmed++
		}

		tenantCol := "(unknown)"
		cols := st.Columns(ctx, b)
		if len(cols) > 0 {
			if col, ok := tenant.ScopeColumn(cols, d.TenantColumns); ok {
				tenantCol = col
			} else {
				tenantCol = "MISSING"
			}
		}

		drift := "-"
		if !b.BestGuess && b.Table != d.Canonical {
			drift = fmt.Sprintf("canonical %q", d.Canonical)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.Entity, b.Table, resolution, tenantCol, drift)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if unconfirmed > 0 {
		return fmt.Errorf("%d entities not confirmed in the catalog", unconfirmed)
	}
	return nil
}
