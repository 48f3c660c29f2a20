package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sky-shift/skyshift-sub001/pkg/adapter"
	"github.com/sky-shift/skyshift-sub001/pkg/client"
	"github.com/sky-shift/skyshift-sub001/pkg/config"
	"github.com/sky-shift/skyshift-sub001/pkg/informer"
	"github.com/sky-shift/skyshift-sub001/pkg/log"
	"github.com/sky-shift/skyshift-sub001/pkg/skylet"
	"github.com/sky-shift/skyshift-sub001/pkg/types"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "skyshift-skylet",
	Short: "SkyShift skylet controller",
	Long: `skyshift-skylet watches Clusters and forks a per-cluster Supervisor for
each one that becomes READY (spec.md §4.6), driving job submission, status
mirroring, and cleanup against that cluster's adapter.

Only the in-memory reference adapter ships with this binary; real backends
(Kubernetes, Slurm, Ray) are out of scope (spec.md §1).`,
	RunE: run,
}

func init() {
	rootCmd.Flags().String("config", config.DefaultPath(), "Path to ~/.skym/config.yaml")
	rootCmd.Flags().String("api-server", "", "API server base URL, overriding the config file's context")
	rootCmd.Flags().String("context", "", "Config context to use")
	rootCmd.Flags().Duration("resync", informer.DefaultResyncPeriod, "Informer cache resync period")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOutput, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOutput})
}

// defaultCapacity stands in for a cluster that reports no capacity of its
// own yet, so MemoryAdapter still has something to schedule against.
var defaultCapacity = map[string]types.ResourceList{
	"node-1": {"cpu": 8, "memory": 32768},
}

func memoryAdapterFactory(cluster *types.Cluster) (adapter.Adapter, error) {
	capacity := cluster.Status.Capacity
	if len(capacity) == 0 {
		capacity = defaultCapacity
	}
	return adapter.NewMemoryAdapter(capacity), nil
}

func run(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	apiServer, _ := cmd.Flags().GetString("api-server")
	contextName, _ := cmd.Flags().GetString("context")
	resync, _ := cmd.Flags().GetDuration("resync")

	baseURL := apiServer
	var token string
	if baseURL == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w (pass --api-server to run without one)", err)
		}
		if ctx, ok := cfg.Context(contextName); ok {
			if u, ok := cfg.User(ctx.User); ok {
				token = u.AccessToken
			}
		}
		baseURL = "http://" + cfg.Addr()
	}

	c := client.New(baseURL, client.WithToken(token))

	clusters := informer.New(c, types.KindCluster, "", resync)
	jobs := informer.New(c, types.KindJob, "default", resync)
	policies := informer.New(c, types.KindFilterPolicy, "default", resync)
	services := informer.New(c, types.KindService, "default", resync)

	registry := adapter.NewClusterRegistry()
	ctl := skylet.NewSkyletController(c, clusters, jobs, policies, services, memoryAdapterFactory, registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		if err := ctl.Run(ctx); err != nil {
			errCh <- fmt.Errorf("skylet controller: %w", err)
		}
	}()

	log.Info(fmt.Sprintf("skyshift-skylet running against %s", baseURL))

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
