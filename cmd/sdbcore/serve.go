package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/warren/pkg/blob"
	"github.com/cuemby/warren/pkg/catalog"
	"github.com/cuemby/warren/pkg/config"
	"github.com/cuemby/warren/pkg/log"
	"github.com/cuemby/warren/pkg/metrics"
	"github.com/cuemby/warren/pkg/persist"
	"github.com/cuemby/warren/pkg/scheduler"
	"github.com/cuemby/warren/pkg/types"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine: catalog, datastore, and scheduler, with metrics and health endpoints",
	RunE:  runServe,
}

func init() {
	config.BindFlags(serveCmd)
}

// logHost is the scheduler.Host used by `serve`: this binary has no
// reducer/procedure runtime of its own (that's a module host, out of
// scope here), so dispatch is recorded as a metric and a log line
// rather than actually invoking anything.
type logHost struct{}

func (logHost) CallScheduledFunction(_ context.Context, id scheduler.ScheduledFunctionId) (*scheduler.Reschedule, error) {
	metrics.ScheduledCallsTotal.WithLabelValues("scheduled").Inc()
	log.WithComponent("sdbcore").Info().
		Uint32("table_id", id.TableId).
		Uint64("schedule_id", id.ScheduleId).
		Msg("scheduled function fired (no module host attached)")
	return nil, nil
}

func (logHost) CallImmediate(_ context.Context, reducerName string, _ []byte) error {
	metrics.ScheduledCallsTotal.WithLabelValues("immediate").Inc()
	log.WithComponent("sdbcore").Info().Str("reducer", reducerName).Msg("immediate call dispatched (no module host attached)")
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromFlags(cmd)
	if err != nil {
		return err
	}

	if cfg.EnablePersist {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}

	address := types.NewDatabaseAddress()
	committed := catalog.NewCommittedState(address)

	var commitLog *persist.CommitLog
	if cfg.EnablePersist {
		store, err := persist.OpenBlobStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("open blob store: %w", err)
		}
		defer store.Close()
		committed.BlobStore = store

		commitLog, err = persist.OpenCommitLog(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("open commit log: %w", err)
		}
		defer commitLog.Close()

		if last, found, err := commitLog.LastOffset(); err == nil && found {
			log.WithComponent("sdbcore").Info().Uint64("last_offset", last).Msg("resuming after prior commit log")
		}
	} else {
		committed.BlobStore = blob.NewInMemoryStore()
	}

	// Datastore transactions are a library API this process exposes to
	// an embedder, not something the CLI drives directly — serve's job
	// is keeping the catalog, scheduler, and durability layers alive.

	sched, act := scheduler.Open()
	if err := act.LoadFromCatalog(committed); err != nil {
		return fmt.Errorf("load scheduler state from catalog: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go act.Start(ctx, logHost{})
	defer sched.Close()

	collector := metrics.NewCollector(committed)
	collector.Start()
	defer collector.Stop()

	metrics.SetVersion(Version)
	commitLogHealthy := !cfg.EnablePersist || commitLog != nil
	metrics.RegisterComponent("datastore", true, "")
	metrics.RegisterComponent("scheduler", true, "")
	metrics.RegisterComponent("commit_log", commitLogHealthy, "")

	// Re-register on the same interval the collector samples metrics on,
	// so a health check doesn't start reporting these as stale just
	// because their status hasn't changed since startup.
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()
	go func() {
		for {
			select {
			case <-heartbeat.C:
				metrics.RegisterComponent("datastore", true, "")
				metrics.RegisterComponent("scheduler", true, "")
				metrics.RegisterComponent("commit_log", commitLogHealthy, "")
			case <-ctx.Done():
				return
			}
		}
	}()

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithComponent("sdbcore").Error().Err(err).Msg("metrics server error")
		}
	}()

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/health", metrics.HealthHandler())
	healthMux.HandleFunc("/ready", metrics.ReadyHandler())
	healthMux.HandleFunc("/live", metrics.LivenessHandler())
	if cfg.EnablePprof {
		healthMux.HandleFunc("/debug/pprof/", pprof.Index)
		healthMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		healthMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		healthMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		healthMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	healthSrv := &http.Server{Addr: cfg.HealthAddr, Handler: healthMux}
	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithComponent("sdbcore").Error().Err(err).Msg("health server error")
		}
	}()

	fmt.Printf("sdbcore serving (data-dir=%s persist=%v)\n", cfg.DataDir, cfg.EnablePersist)
	fmt.Printf("  metrics: http://%s/metrics\n", cfg.MetricsAddr)
	fmt.Printf("  health:  http://%s/health\n", cfg.HealthAddr)
	fmt.Println("Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	_ = healthSrv.Shutdown(shutdownCtx)

	fmt.Println("✓ Shutdown complete")
	return nil
}
