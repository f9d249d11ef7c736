package commands

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ledgerworks/closeflow/pkg/engine"
	"github.com/ledgerworks/closeflow/pkg/policy"
	"github.com/ledgerworks/closeflow/pkg/server"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve close operations over HTTP",
		Long: `Serve close operations over HTTP.

POST an invocation envelope to /v1/operations to run an operation. The server
also exposes /healthz and, when metrics are enabled, /metrics. With policy
watching enabled, edits to policy files are picked up without a restart.`,
		Example: `  # Listen on the configured address
  closeflow serve

  # Listen on all interfaces
  closeflow serve --listen 0.0.0.0:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := loadRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close(context.Background())

			if _, err := rt.service(ctx); err != nil {
				return err
			}

			if rt.policies != nil && rt.cfg.Policy.Watch && len(rt.cfg.Policy.Paths) > 0 {
				loader := policy.NewLoader(rt.tel.Logger.NewComponentLogger("policy_loader").Zerolog())
				err := loader.Watch(ctx, rt.cfg.Policy.Paths, func(policies []policy.Policy) error {
					return rt.policies.ReplaceCustomPolicies(ctx, policies)
				})
				if err != nil {
					return err
				}
				defer func() { _ = loader.StopWatching() }()
			}

			sc := rt.cfg.Server
			if listenAddr != "" {
				sc.ListenAddr = listenAddr
			}

			srv := server.New(server.Config{
				ListenAddr:     sc.ListenAddr,
				AllowedOrigins: sc.AllowedOrigins,
				RequestTimeout: sc.RequestTimeout,
				Log:            rt.tel.Logger.Zerolog(),
				Handler:        rt,
				Health:         rt.healthCheck,
				Metrics:        rt.tel.Metrics.Handler(),
			})

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				log.Info().Msg("Stopping server")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (overrides server.listen_addr)")

	return cmd
}

// healthCheck pings the local store, or runs a trivial query against a remote one.
func (r *runtime) healthCheck(ctx context.Context) error {
	if r.sqlite != nil {
		return r.sqlite.HealthCheck(ctx)
	}
	if r.store == nil {
		return engine.NewInternalError("no store configured", nil)
	}
	_, err := r.store.ExecuteQuery(ctx, "SELECT 1")
	return err
}
