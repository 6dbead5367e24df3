package main

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/swiftguard/internal/factcheck"
	swlog "github.com/nao1215/swiftguard/internal/log"
	"github.com/nao1215/swiftguard/internal/server"
)

// NewProxyCmd creates the proxy command.
func NewProxyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Run the fact-check proxy",
		Long: `Proxy forwards claim searches to the Google Fact Check Tools API so the
upstream key never leaves this process.

Routes:
  GET /factcheck?query=...   requires X-API-Key
  GET /health

The upstream key comes from factcheck_upstream_key or FACT_CHECK_API_KEY.
The key clients must send comes from factcheck_api_key,
SWIFTGUARD_FACTCHECK_API_KEY or EXTENSION_API_KEY.`,
		RunE: runProxy,
	}
	cmd.Flags().String("listen", "", "Listen address (overrides the config file)")
	cmd.Flags().String("upstream", factcheck.DefaultUpstreamURL, "Claim search endpoint")
	return cmd
}

func runProxy(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.ProxyListen = listen
	}
	upstream, err := cmd.Flags().GetString("upstream")
	if err != nil {
		return err
	}

	logger := swlog.NewSecureJSONLogger(os.Stderr, cfg.Verbose)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Serve(ctx, cfg.ProxyListen, proxyHandler(cfg.FactCheckUpstreamKey, cfg.FactCheckAPIKey, upstream, logger), logger)
}

// proxyHandler builds the proxy routes behind the shared middleware.
func proxyHandler(upstreamKey, extensionKey, upstreamURL string, logger *slog.Logger) http.Handler {
	p := factcheck.NewProxy(factcheck.ProxyConfig{
		UpstreamURL:  upstreamURL,
		UpstreamKey:  upstreamKey,
		ExtensionKey: extensionKey,
		Logger:       logger,
	})
	return server.Chain(p.Handler(),
		server.Recover(logger),
		server.Logger(logger),
		server.OTel("swiftguard-factcheck-proxy"),
	)
}
