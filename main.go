package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"safehdr/pkg/check"
	"safehdr/pkg/config"
	"safehdr/pkg/server"
	"safehdr/pkg/tui"
	"safehdr/pkg/watcher"
)

// Version should be set during build
var Version = "dev"

var (
	configFlag   string
	logLevelFlag string
	localeFlag   string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "safehdr",
		Short:        "Header for the selected Safe: address, balance and quick actions",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(appOptions{logToFile: true, desktop: true})
			if err != nil {
				return err
			}
			defer a.close()
			if len(a.cfg.Chains) == 0 {
				return fmt.Errorf("no chains found in configuration; create %s with 'chains' and 'safes'", a.cfgPath)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			a.watcher.Start(ctx)
			defer a.watcher.Stop()

			return tui.Start(a.builder, a.watcher, a.store, a.logger.Named("tui"), Version)
		},
	}

	root.PersistentFlags().StringVar(&configFlag, "config", "", "path to configuration file (default ~/"+config.ConfigFileName+")")
	root.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&localeFlag, "locale", "", "locale used to format fiat amounts (overrides config)")

	root.AddCommand(serveCmd(), headerCmd(), checkCmd(), restoreCmd(), versionCmd())
	return root
}

func serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run headless and serve the header over HTTP and websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.watcher.Start(ctx)
			defer a.watcher.Stop()

			srv := server.NewServer(a.watcher, a.builder, a.logger.Named("server"))
			return srv.Start(ctx, port)
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "port for the API server")
	return cmd
}

func headerCmd() *cobra.Command {
	var (
		output  string
		timeout time.Duration
		noFetch bool
	)
	cmd := &cobra.Command{
		Use:   "header",
		Short: "Fetch the selected Safe once and print its header",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.close()

			if !noFetch {
				waitForFirstFetch(cmd.Context(), a, timeout)
			}
			return renderHeader(cmd.OutOrStdout(), a.builder.Build(), output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json or yaml")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "how long to wait for on-chain data")
	cmd.Flags().BoolVar(&noFetch, "no-fetch", false, "print the header without fetching (loading state)")
	return cmd
}

// waitForFirstFetch runs the watcher until its first round of fetches lands
// or timeout passes. The header shows whatever is known by then.
func waitForFirstFetch(parent context.Context, a *app, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	sub := a.watcher.Subscribe()
	defer a.watcher.Unsubscribe(sub)
	a.watcher.Start(ctx)
	defer a.watcher.Stop()

	for {
		select {
		case ev := <-sub:
			if ev.Type == watcher.EventBalancesUpdated {
				return
			}
			if ev.Type == watcher.EventSafeInfoUpdated {
				// Without a Safe or a known chain no balances will follow.
				safe, ok := a.store.ActiveSafe()
				if !ok {
					return
				}
				if _, ok := a.store.ChainConfig(safe.Chain); !ok {
					return
				}
			}
		case <-ctx.Done():
			a.logger.Warn("timed out waiting for on-chain data", zap.Duration("timeout", timeout))
			return
		}
	}
}

func checkCmd() *cobra.Command {
	var jsonOut, dryRun bool
	cmd := &cobra.Command{
		Use:     "check",
		Aliases: []string{"test"},
		Short:   "Test the configuration and fill in missing chain IDs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, false)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			opts := check.Options{DryRun: dryRun, Logger: logger.Named("check")}
			if !jsonOut {
				opts.Out = cmd.OutOrStdout()
			}
			report := check.Run(cmd.Context(), cfg, path, opts)

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			}
			if !report.ValidStructure {
				return fmt.Errorf("configuration at %s is invalid", path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output test results as JSON")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "perform a trial run with no changes made")
	return cmd
}

func restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Restore the most recent configuration backup",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.GetConfigPath(configFlag)
			if err != nil {
				return err
			}
			backup, err := config.RestoreLastBackup(path)
			if err != nil {
				return fmt.Errorf("restore %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s from %s\n", path, backup)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "safehdr version %s\n", Version)
		},
	}
}
