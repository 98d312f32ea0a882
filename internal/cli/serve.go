package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pysugar/ads-account-gateway/internal/gateway"
	"github.com/pysugar/ads-account-gateway/internal/policy"
	"github.com/pysugar/ads-account-gateway/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().String("host", "", "listen host")
	cmd.Flags().String("port", "", "listen port")
	cmd.Flags().String("api-key", "", "key required on /tools and /users routes")
	_ = v.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	_ = v.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	_ = v.BindPFlag("server.api_key", cmd.Flags().Lookup("api-key"))
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	if a.cfg.PolicyFile != "" {
		watcher := policy.NewWatcher(a.cfg.PolicyFile, a.gate)
		if err := watcher.Load(); err != nil {
			return fmt.Errorf("load policy: %w", err)
		}
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("watch policy: %w", err)
		}
		log.Printf("🛡️ Policy loaded from %s (role %s)", a.cfg.PolicyFile, a.gate.Policy().Role)
	}

	handler := gateway.NewRouter(gateway.Options{
		APIKey:    a.cfg.APIKey,
		Metrics:   a.metrics,
		OAuth:     a.oauth,
		Connector: a.service,
		Accounts:  a.service,
		Registry:  a.registry,
		Calls:     a.calls,
		Health:    a.healthChecks(),
	})
	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🚀 adsgate %s starting on http://%s", version.Version, srv.Addr)
		log.Printf("🔑 OAuth login: http://%s/login", srv.Addr)
		if a.cfg.ValidateOnly {
			log.Printf("🧪 Validate-only mode: mutations are checked but never applied")
		}
		if a.cfg.APIKey == "" {
			log.Printf("⚠️ No API key configured, tool routes are open")
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("🛑 Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
