package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sky-shift/skyshift-sub001/pkg/client"
	"github.com/sky-shift/skyshift-sub001/pkg/config"
	"github.com/sky-shift/skyshift-sub001/pkg/informer"
	"github.com/sky-shift/skyshift-sub001/pkg/log"
	"github.com/sky-shift/skyshift-sub001/pkg/scheduler"
	"github.com/sky-shift/skyshift-sub001/pkg/types"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "skyshift-scheduler",
	Short: "SkyShift scheduler",
	Long: `skyshift-scheduler watches Clusters, Jobs, and FilterPolicies through
the control-plane API and runs the filter/score/select/assign pipeline
(spec.md §4.5) against unscheduled Jobs.`,
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
		baseURL = cfg.Addr()
		if ctx, ok := cfg.Context(contextName); ok {
			if u, ok := cfg.User(ctx.User); ok {
				token = u.AccessToken
			}
		}
		baseURL = "http://" + baseURL
	}

	c := client.New(baseURL, client.WithToken(token))

	clusters := informer.New(c, types.KindCluster, "", resync)
	jobs := informer.New(c, types.KindJob, "default", resync)
	policies := informer.New(c, types.KindFilterPolicy, "default", resync)

	sched := scheduler.New(c, clusters, jobs, policies)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 4)
	go func() {
		if err := clusters.Run(ctx); err != nil {
			errCh <- fmt.Errorf("cluster informer: %w", err)
		}
	}()
	go func() {
		if err := jobs.Run(ctx); err != nil {
			errCh <- fmt.Errorf("job informer: %w", err)
		}
	}()
	go func() {
		if err := policies.Run(ctx); err != nil {
			errCh <- fmt.Errorf("filter policy informer: %w", err)
		}
	}()
	go func() {
		if err := sched.Run(ctx); err != nil {
			errCh <- fmt.Errorf("scheduler: %w", err)
		}
	}()

	log.Info(fmt.Sprintf("skyshift-scheduler running against %s", baseURL))

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
	time.Sleep(100 * time.Millisecond)
	return nil
}
