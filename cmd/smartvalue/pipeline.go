package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seenimoa/smartvalue/internal/aggregate"
	"github.com/seenimoa/smartvalue/internal/collector"
	"github.com/seenimoa/smartvalue/internal/normalize"
	"github.com/seenimoa/smartvalue/internal/store"
	"github.com/seenimoa/smartvalue/pkg/utils"
)

// --- Collect Command ---

var collectCmd = &cobra.Command{
	Use:   "collect [tickers...]",
	Short: "Download and normalize statements for a list of tickers",
	Long: `Download statements for each ticker in small batches, retrying
transient failures, and store one normalized record per company.

Examples:
  smartvalue collect "MSFT AAPL 0700.HK"
  smartvalue collect MSFT,AAPL --source fmp`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, _ := cmd.Flags().GetString("source")
		_, err := runCollect(cmd.Context(), source, args)
		return err
	},
}

// --- Export Command ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Aggregate stored records into the screening table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.Context())
	},
}

// --- Screen Command ---

var screenCmd = &cobra.Command{
	Use:   "screen [tickers...]",
	Short: "Collect tickers, then export the screening table",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, _ := cmd.Flags().GetString("source")
		if _, err := runCollect(cmd.Context(), source, args); err != nil {
			return err
		}
		return runExport(cmd.Context())
	},
}

func init() {
	for _, c := range []*cobra.Command{collectCmd, screenCmd} {
		c.Flags().String("source", "", "statement provider (yq, yf, fmp); default from config")
	}
}

func collectorOptions() collector.Options {
	c := cfg.Collector
	return collector.Options{
		BatchSize:     c.BatchSize,
		MaxRetries:    c.MaxRetries,
		Cooldown:      c.RetryCooldown,
		MinBatchDelay: c.MinBatchDelay,
		MaxBatchDelay: c.MaxBatchDelay,
	}
}

func runCollect(ctx context.Context, source string, args []string) (*collector.Report, error) {
	tickers := utils.ParseTickers(strings.Join(args, " "))
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no tickers given")
	}

	reg, err := newRegistry(source)
	if err != nil {
		return nil, err
	}
	p, err := reg.Get(source)
	if err != nil {
		return nil, err
	}

	rs, err := store.Open(cfg.Store.Backend, cfg.Store.Dir)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	c := collector.New(p.Info().Name, p,
		collector.WithOptions(collectorOptions()),
		collector.WithStore(rs),
		collector.WithNormalizer(normalize.New(normalize.Options{PreserveNulls: cfg.Normalize.PreserveNulls}, logger)),
		collector.WithLogger(logger),
	)
	rep := c.Collect(ctx, tickers)

	fmt.Printf("📥 Collected %d/%d tickers from %s (run %s)\n",
		len(rep.Records()), len(tickers), rep.Source, rep.RunID)
	for _, o := range rep.Outcomes {
		if !o.OK() {
			fmt.Printf("   ✗ %-10s after %d attempt(s): %v\n", o.Ticker, o.Attempts, o.Err)
		}
	}
	if len(rep.Failures) > 0 {
		fmt.Printf("   Failures: %s\n", strings.Join(rep.Failures, " "))
	}
	return rep, ctx.Err()
}

func runExport(ctx context.Context) error {
	rs, err := store.Open(cfg.Store.Backend, cfg.Store.Dir)
	if err != nil {
		return err
	}
	defer rs.Close()

	records, err := rs.List(ctx)
	if err != nil {
		return err
	}
	tbl := aggregate.New(logger).Aggregate(records)
	if err := aggregate.Export(tbl, cfg.Export.Path, aggregate.ExportOptions{PreserveNulls: cfg.Normalize.PreserveNulls}); err != nil {
		return err
	}

	fmt.Printf("📊 Exported %d companies to %s\n", len(tbl.Rows), cfg.Export.Path)
	for _, row := range tbl.Rows {
		rev, _ := row.Value("TotalRevenue")
		assets, _ := row.Value("TotalAssets")
		fmt.Printf("   %-10s %-4s revenue %-10s assets %s\n",
			row.Record.Ticker(), row.Record.Intro().FinancialCurrency,
			utils.FormatCompact(rev.Float64), utils.FormatCompact(assets.Float64))
	}
	for _, d := range tbl.Dropped {
		fmt.Printf("   dropped %-10s %s\n", d.Ticker, d.Reason)
	}
	return nil
}
