package main

import (
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/tasosbeast/bill-split-sub001/internal/api"
	"github.com/tasosbeast/bill-split-sub001/internal/auth"
	"github.com/tasosbeast/bill-split-sub001/internal/config"
	"github.com/tasosbeast/bill-split-sub001/pkg/logging"
)

func newServeCmd(configPath *string) *cobra.Command {
	var jsonLogs bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ledger HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonLogs {
				logging.SetupJSON(logging.LevelFromEnv())
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			ledger, cleanup, err := openLedger(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			slog.Info("storage initialized", "database", cfg.Storage.Path, "key", cfg.Storage.Name)

			server := api.NewServer(ledger)
			if cfg.Server.Metrics {
				server.EnableMetrics()
			}
			if cfg.Auth.Enabled() {
				if cfg.Auth.TokenSecret == "" {
					slog.Warn("auth.passphrase_hash set without auth.token_secret, running open")
				} else {
					server.EnableAuth(cfg.Auth.PassphraseHash,
						auth.NewJWTManager(cfg.Auth.TokenSecret, cfg.Auth.TokenDuration()))
				}
			}

			// HTTP/2 without TLS so local UI clients can multiplex.
			handler := h2c.NewHandler(server.Handler(), &http2.Server{})

			addr := cfg.Server.Addr()
			slog.Info("ledger server starting", "address", addr)
			return http.ListenAndServe(addr, handler)
		},
	}

	cmd.Flags().BoolVar(&jsonLogs, "json-logs", false, "emit JSON logs instead of colored output")
	return cmd
}
