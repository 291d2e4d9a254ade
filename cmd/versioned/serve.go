package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vault-md/versioned/internal/httpapi"
	"github.com/vault-md/versioned/internal/logging"
	"github.com/vault-md/versioned/internal/services"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve records over HTTP",
		Long:  "Serve records over HTTP. Each request picks its reading mode with ?stage=, ?archiveDate= and ?archiveStage=; Prometheus metrics are served at /metrics.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = opts.settings.HTTP.Addr
			}
			log := logging.For("serve")

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			a, err := opts.open(reg)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			if opts.settings.LogLevel != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			router, err := httpapi.NewRouter(a.svc, httpapi.Options{
				DefaultMode: opts.settings.ReadingMode,
				Gatherer:    reg,
				Logger:      logging.For("httpapi"),
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if ttl := opts.settings.Cache.TTL; ttl > 0 {
				go pruneCache(ctx, a.svc, ttl)
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				log.WithField("addr", addr).Info("listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides http.addr)")

	return cmd
}

// pruneCache drops expired cache entries every interval until ctx is done.
func pruneCache(ctx context.Context, svc *services.VersionedService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := svc.PruneCache(ctx); err != nil {
				logging.For("serve").WithError(err).Warn("cache prune failed")
			}
		}
	}
}
