// smartvalue collects company financial statements from market data
// providers, flattens them into one record per company and exports a
// screening table. It also maintains spreadsheet valuation models.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seenimoa/smartvalue/internal/config"
	"github.com/seenimoa/smartvalue/internal/logging"
	"github.com/seenimoa/smartvalue/internal/provider"
	"github.com/seenimoa/smartvalue/internal/providers"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set by the root command.
var (
	cfg    *config.Config
	logger zerolog.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "smartvalue",
	Short: "Financial statement screener and valuation model updater",
	Long: `smartvalue downloads balance sheets, income statements and cash flow
statements for a list of tickers, normalizes them into one row per company
and exports a screening table. It can also create and refresh spreadsheet
valuation models and the macro monitor workbook.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Logging.Level
		if override, _ := cmd.Flags().GetString("log-level"); override != "" {
			level = override
		}
		logger = logging.Init(level, cfg.Logging.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(screenCmd)
	rootCmd.AddCommand(modelCmd)
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(macroCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(statusCmd)
}

// newRegistry registers every configured provider. A non-empty source
// overrides the configured default.
func newRegistry(source string) (*provider.Registry, error) {
	reg := provider.NewRegistry()
	if err := providers.RegisterAllTo(reg, cfg, logger); err != nil {
		return nil, err
	}
	if source != "" {
		if err := reg.SetDefault(source); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("smartvalue %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Providers Command ---

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List registered statement providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := newRegistry("")
		if err != nil {
			return err
		}
		def, _ := reg.DefaultProvider()
		for _, info := range reg.List() {
			mark := " "
			if info.Name == def {
				mark = "*"
			}
			fmt.Printf("%s %-4s %-12s %s\n", mark, info.Name, info.NativeOrder, info.Description)
		}
		return nil
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and API key status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  smartvalue status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    Source:        %s\n", cfg.Collector.Source)
		fmt.Printf("    Batch:         %d tickers, %d retries, cooldown %s\n",
			cfg.Collector.BatchSize, cfg.Collector.MaxRetries, cfg.Collector.RetryCooldown)
		fmt.Printf("    Batch delay:   %s to %s\n", cfg.Collector.MinBatchDelay, cfg.Collector.MaxBatchDelay)
		fmt.Printf("    Store:         %s (%s)\n", cfg.Store.Backend, cfg.Store.Dir)
		fmt.Printf("    Export:        %s\n", cfg.Export.Path)
		fmt.Printf("    Templates:     %s\n", cfg.Models.TemplateDir)
		fmt.Printf("    Models:        %s\n", cfg.Models.OutputDir)
		fmt.Printf("    Macro:         %s\n", cfg.Macro.Source)
		fmt.Printf("    Monitor:       %s (%s)\n", cfg.Models.MonitorPath, cfg.Monitor.Schedule)
		fmt.Println()

		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
