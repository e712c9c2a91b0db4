package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/policyai/core/config"
	"github.com/policyai/core/events"
	"github.com/policyai/core/httpserver"
	"github.com/policyai/core/llm"
	"github.com/policyai/core/metrics"
	"github.com/policyai/core/model"
	"github.com/policyai/core/policy"
	"github.com/policyai/core/policytype"
	"github.com/policyai/core/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var serveFlags struct {
	typeFile   string
	listenAddr string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve apply requests over HTTP",
	Long: `Load a PolicyType and its policy store per --config, then serve POST
/apply requests until interrupted. If policies.watch is enabled the store
directory is watched and reloaded on change.

Examples:
  policyai serve --type emailpolicy.pt --config policyai.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveFlags.typeFile, "type", "", "path to the PolicyType DSL file")
	serveCmd.Flags().StringVar(&serveFlags.listenAddr, "listen", ":8080", "address the apply server binds to")
	_ = serveCmd.MarkFlagRequired("type")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if cfgFile != "" {
		loaded, err := config.LoadFromFile(cfgFile)
		if err != nil {
			return fmt.Errorf("load config %q: %w", cfgFile, err)
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	typeData, err := os.ReadFile(serveFlags.typeFile)
	if err != nil {
		return fmt.Errorf("read %q: %w", serveFlags.typeFile, err)
	}
	pt, err := policytype.Parse(string(typeData))
	if err != nil {
		return fmt.Errorf("parse-type: %w", err)
	}

	manager := policy.NewManager(pt)

	registry := model.NewDefaultRegistry()
	if cfg.LLM.RegistryFile != "" {
		registry, err = model.LoadFromFile(cfg.LLM.RegistryFile)
		if err != nil {
			return fmt.Errorf("load registry %q: %w", cfg.LLM.RegistryFile, err)
		}
	}
	retryCfg := llm.DefaultRetryConfig()
	if cfg.LLM.MaxAttempts > 0 {
		retryCfg.MaxAttempts = cfg.LLM.MaxAttempts
	}
	client := llm.NewClient(registry, llm.WithRetryConfig(retryCfg), llm.WithLogger(logger), llm.WithHTTPClient(&http.Client{Timeout: cfg.LLM.Timeout}))

	collector := metrics.NewCollector(cfg.Metrics.Enabled, prometheus.NewRegistry())

	var sink events.Sink = events.Noop{}
	if cfg.Events.Enabled {
		publisher, err := events.Connect(cfg.Events.URL, cfg.Events.SubjectPrefix)
		if err != nil {
			return fmt.Errorf("connect events: %w", err)
		}
		defer publisher.Close()
		sink = publisher
	}

	if cfg.Policies.Dir != "" {
		s := store.New(cfg.Policies.Dir, cfg.Policies.Glob, pt, manager, logger)
		n, err := s.Load()
		if err != nil {
			logger.Warn("policy store loaded with errors", "loaded", n, "error", err)
		}
		collector.SetPoliciesLoaded(manager.Len())
		logger.Info("policies loaded", "count", n)

		if cfg.Policies.Watch {
			w, err := store.NewWatcher(s, store.DefaultWatcherConfig(), logger)
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go func() {
				if err := w.Watch(ctx); err != nil {
					logger.Error("watcher stopped", "error", err)
				}
			}()
			defer w.Stop()
		}
	}

	metricsAddr := ""
	if cfg.Metrics.Enabled {
		metricsAddr = cfg.Metrics.ListenAddr
	}
	srv := httpserver.NewServer(httpserver.Config{
		ListenAddr:     serveFlags.listenAddr,
		MetricsAddr:    metricsAddr,
		ApplyTimeout:   cfg.Apply.Timeout,
		FailOnConflict: cfg.Apply.FailOnConflict,
		ShutdownGrace:  10 * time.Second,
	}, manager, client, collector, sink, logger)

	return srv.Start(context.Background())
}
