package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hackmate/agent"
	"hackmate/config"
	"hackmate/guardrail"
	"hackmate/mcp"
	"hackmate/provider"
	"hackmate/search"
	"hackmate/server"
	"hackmate/tools"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the assistant API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(false)
		if err != nil {
			return err
		}
		defer log.Sync()
		if listenAddr != "" {
			cfg.Server.Listen = listenAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := openStore(cfg, log)
		if err != nil {
			return err
		}
		defer store.Close()

		creds, err := loadCredentials(cfg)
		if err != nil {
			return err
		}
		p, err := provider.FromConfig(cfg, creds)
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		reachable := true
		if err := p.Ping(pingCtx); err != nil {
			reachable = false
			log.Warn("model provider not reachable yet", zap.String("provider", cfg.Provider.Type), zap.Error(err))
		}
		cancel()

		searcher, closeSearch, err := buildSearch(ctx, cfg.Search, log)
		if err != nil {
			return err
		}
		defer closeSearch()

		registry, err := tools.NewRegistry()
		if err != nil {
			return err
		}
		exec := tools.NewExecutor(registry, store, searcher, log)
		orch := agent.New(p, exec, guardrail.New(),
			agent.WithHistoryLimit(cfg.Server.HistoryLimit),
			agent.WithLogger(log))
		srv := server.New(orch, store,
			server.WithRequestTimeout(cfg.RequestTimeout()),
			server.WithTranscriptLimit(cfg.Server.TranscriptLimit),
			server.WithLogger(log))

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.Serve(gctx, cfg.Server.Listen)
		})
		g.Go(func() error {
			return watchProvider(gctx, p, providerCheckInterval, reachable, log.Named("provider"))
		})
		return g.Wait()
	},
}

const (
	pingTimeout           = 5 * time.Second
	providerCheckInterval = time.Minute
)

type pinger interface {
	Ping(ctx context.Context) error
}

// watchProvider pings p every interval until ctx is done and logs each
// change between reachable and unreachable.
func watchProvider(ctx context.Context, p pinger, every time.Duration, reachable bool, log *zap.Logger) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}

		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := p.Ping(pingCtx)
		cancel()
		if ctx.Err() != nil {
			return nil
		}
		switch {
		case err != nil && reachable:
			log.Warn("model provider unreachable", zap.Error(err))
		case err == nil && !reachable:
			log.Info("model provider reachable again")
		}
		reachable = err == nil
	}
}

// buildSearch picks the web_search backend. The returned func releases it.
func buildSearch(ctx context.Context, cfg config.SearchConfig, log *zap.Logger) (search.Backend, func(), error) {
	noop := func() {}
	switch strings.ToLower(cfg.Backend) {
	case "", "none":
		return search.Disabled{}, noop, nil
	case "searxng":
		s, err := search.NewSearxng(cfg.SearxngURL, nil)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case "mcp":
		b, err := mcp.NewSearchBackend(ctx, cfg, log)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to start MCP search backend: %w", err)
		}
		return b, func() {
			if err := b.Close(); err != nil {
				log.Debug("search backend close", zap.Error(err))
			}
		}, nil
	}
	return nil, noop, fmt.Errorf("unknown search backend %q", cfg.Backend)
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
