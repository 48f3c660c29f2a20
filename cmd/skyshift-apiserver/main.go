package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sky-shift/skyshift-sub001/pkg/adapter"
	"github.com/sky-shift/skyshift-sub001/pkg/api"
	"github.com/sky-shift/skyshift-sub001/pkg/config"
	"github.com/sky-shift/skyshift-sub001/pkg/log"
	"github.com/sky-shift/skyshift-sub001/pkg/metrics"
	"github.com/sky-shift/skyshift-sub001/pkg/security"
	"github.com/sky-shift/skyshift-sub001/pkg/storage"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "skyshift-apiserver",
	Short: "SkyShift control-plane API server",
	Long: `skyshift-apiserver runs the object store, the HTTP/JSON API, and
the /metrics endpoint — the federation control plane's single source of
truth (spec.md §4.1, §4.2).`,
	RunE: run,
}

func init() {
	rootCmd.Flags().String("config", config.DefaultPath(), "Path to ~/.skym/config.yaml")
	rootCmd.Flags().String("data-dir", "./skyshift-data", "Raft/BoltDB data directory")
	rootCmd.Flags().String("node-id", "apiserver-1", "Unique Raft node ID")
	rootCmd.Flags().String("raft-bind", "127.0.0.1:7946", "Address for Raft transport")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOutput, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOutput})
}

func run(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	nodeID, _ := cmd.Flags().GetString("node-id")
	raftBind, _ := cmd.Flags().GetString("raft-bind")

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Warn(fmt.Sprintf("no usable config at %s (%v); serving anonymously on 0.0.0.0:8080", configPath, err))
		cfg = &config.Config{APIServer: config.APIServer{Host: "0.0.0.0", Port: 8080}}
	}

	store, err := storage.NewRaftStore(storage.Config{NodeID: nodeID, DataDir: dataDir, Bind: raftBind})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	var tokens *security.TokenStore
	if len(cfg.Users) > 0 {
		tokens = security.NewTokenStore()
		for _, u := range cfg.Users {
			tokens.Register(u.AccessToken, security.Principal{Name: u.Name})
		}
	}

	registry := adapter.NewClusterRegistry()
	logs := adapter.NewLogProxy(store, registry)

	server := api.NewServer(store, tokens, nil, logs)

	collector := metrics.NewCollector(store, 15*time.Second)
	collector.Start()
	defer collector.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx, cfg.Addr()); err != nil {
			errCh <- fmt.Errorf("API server: %w", err)
		}
	}()

	log.Info(fmt.Sprintf("skyshift-apiserver listening on %s (metrics at /metrics)", cfg.Addr()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Info("shutting down")
	case err := <-errCh:
		log.Error(err.Error())
		cancel()
		return err
	}

	cancel()
	return nil
}
