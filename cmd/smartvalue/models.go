package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seenimoa/smartvalue/internal/forex"
	"github.com/seenimoa/smartvalue/internal/macro"
	"github.com/seenimoa/smartvalue/internal/monitor"
	"github.com/seenimoa/smartvalue/internal/provider"
	"github.com/seenimoa/smartvalue/internal/providers"
	"github.com/seenimoa/smartvalue/internal/providers/fred"
	"github.com/seenimoa/smartvalue/internal/providers/hkma"
	"github.com/seenimoa/smartvalue/internal/sheet"
	"github.com/seenimoa/smartvalue/pkg/utils"
)

func newConverter() *forex.Converter {
	return forex.New(providers.NewClient(cfg.Providers, logger),
		forex.WithBaseURL(cfg.Forex.BaseURL),
		forex.WithCacheTTL(cfg.Forex.CacheTTL),
	)
}

// newMacro returns the live FRED/HKMA service, or the configured fixed
// rates when live lookups are off or no FRED key is set.
func newMacro() *macro.Service {
	m := cfg.Macro
	fixed := macro.WithFixedRates(macro.Rates{US: m.RiskFreeUS, CN: m.RiskFreeCN, HK: m.RiskFreeHK})
	if m.Source == "fixed" {
		return macro.New(nil, nil, fixed, macro.WithLogger(logger))
	}
	if cfg.Providers.FREDAPIKey == "" {
		logger.Warn().Msg("FRED API key not set, using fixed macro rates")
		return macro.New(nil, nil, fixed, macro.WithLogger(logger))
	}
	hc := providers.NewClient(cfg.Providers, logger)
	return macro.New(fred.New(hc, cfg.Providers.FREDAPIKey), hkma.New(hc, ""), macro.WithLogger(logger))
}

// --- Model Command ---

var modelCmd = &cobra.Command{
	Use:   "model [ticker]",
	Short: "Create or update the spreadsheet valuation model of a ticker",
	Long: `Create the valuation model of a ticker from the template in the
template folder, or refresh price and fx rate of an existing one.

Examples:
  smartvalue model 0700.HK
  smartvalue model MSFT --source yf
  smartvalue model MSFT --quote-only`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker := utils.NormalizeTicker(args[0])
		source, _ := cmd.Flags().GetString("source")
		quoteOnly, _ := cmd.Flags().GetBool("quote-only")

		reg, err := newRegistry(source)
		if err != nil {
			return err
		}
		if quoteOnly {
			return updateModelPricing(cmd.Context(), reg, source, ticker)
		}

		st, err := reg.FetchStatements(cmd.Context(), source, ticker)
		if err != nil {
			return err
		}
		price := st.Intro.Price.Float64
		priceCurrency := st.Intro.PriceCurrency
		if !st.Intro.Price.Valid || priceCurrency == "" {
			q, err := reg.Quote(cmd.Context(), source, ticker)
			if err != nil {
				return err
			}
			price, priceCurrency = q.Price, q.PriceCurrency
		}
		fx, err := newConverter().Rate(cmd.Context(), st.Intro.FinancialCurrency, priceCurrency)
		if err != nil {
			return fmt.Errorf("%s fx %s/%s: %w", ticker, st.Intro.FinancialCurrency, priceCurrency, err)
		}

		w := sheet.NewModelWriter(cfg.Models.TemplateDir, cfg.Models.OutputDir, logger)
		path, created, err := w.Write(st, sheet.Pricing{Price: price, FxRate: fx})
		if err != nil {
			return err
		}
		verb := "Updated"
		if created {
			verb = "Created"
		}
		fmt.Printf("📘 %s %s (price %.2f %s, fx %.4f)\n", verb, path, price, priceCurrency, fx)
		return nil
	},
}

func init() {
	modelCmd.Flags().String("source", "", "statement provider (yq, yf, fmp); default from config")
	modelCmd.Flags().Bool("quote-only", false, "only refresh price and fx rate of an existing model")
}

func updateModelPricing(ctx context.Context, reg *provider.Registry, source, ticker string) error {
	tpl, err := sheet.FindTemplate(cfg.Models.TemplateDir)
	if err != nil {
		return err
	}
	path := sheet.ModelPath(cfg.Models.OutputDir, ticker, tpl)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("no model for %s at %s", ticker, path)
	}

	p, err := monitor.Price(ctx, reg, newConverter(), source, ticker)
	if err != nil {
		return err
	}
	wb, err := sheet.Open(path)
	if err != nil {
		return err
	}
	defer wb.Close()
	if err := sheet.UpdateDashboard(wb, p); err != nil {
		return err
	}
	if err := wb.Save(); err != nil {
		return err
	}
	fmt.Printf("📘 Updated %s (price %.2f, fx %.4f)\n", path, p.Price, p.FxRate)
	return nil
}

// --- Quote Command ---

var quoteCmd = &cobra.Command{
	Use:   "quote [ticker]",
	Short: "Show price, currencies and fx rate of a ticker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker := utils.NormalizeTicker(args[0])
		source, _ := cmd.Flags().GetString("source")

		reg, err := newRegistry(source)
		if err != nil {
			return err
		}
		q, err := reg.Quote(cmd.Context(), source, ticker)
		if err != nil {
			return err
		}
		fmt.Printf("💹 %s\n", q.Symbol)
		fmt.Printf("   Price:           %.4f %s\n", q.Price, q.PriceCurrency)
		fmt.Printf("   Report currency: %s\n", q.ReportCurrency)

		fx, err := newConverter().Rate(cmd.Context(), q.ReportCurrency, q.PriceCurrency)
		if err != nil {
			fmt.Printf("   FX rate:         unavailable (%v)\n", err)
			return nil
		}
		fmt.Printf("   FX rate:         %.4f %s/%s\n", fx, q.PriceCurrency, q.ReportCurrency)

		rf, err := newMacro().RiskFree(cmd.Context(), utils.Market(ticker))
		if err == nil {
			fmt.Printf("   Risk-free (%s):  %s\n", utils.Market(ticker), utils.FormatPct(rf))
		}
		return nil
	},
}

func init() {
	quoteCmd.Flags().String("source", "", "quote provider (yq, yf, fmp); default from config")
}

// --- Macro Command ---

var macroCmd = &cobra.Command{
	Use:   "macro",
	Short: "Write current risk-free rates into the monitor workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := newMacro()
		snap, err := svc.Snapshot(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("🏦 Risk-free  us %s  cn %s  hk %s  (live: %t)\n",
			utils.FormatPct(snap.RiskFreeUS), utils.FormatPct(snap.RiskFreeCN), utils.FormatPct(snap.RiskFreeHK), snap.Live)
		if infl, err := svc.Inflation(cmd.Context(), macro.US); err == nil {
			fmt.Printf("   US breakeven inflation %s\n", utils.FormatPct(infl))
		}

		path := cfg.Models.MonitorPath
		wb, err := sheet.Open(path)
		if err != nil {
			return err
		}
		defer wb.Close()
		if err := sheet.WriteMacro(wb, snap); err != nil {
			return err
		}
		if err := wb.Save(); err != nil {
			return err
		}
		fmt.Printf("   Written to %s\n", path)
		return nil
	},
}

// --- Monitor Command ---

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Refresh macro rates and model prices, once or on a schedule",
	Long: `Refresh the Macro sheet of the monitor workbook and the price and fx
rate of every model in the model folder.

Examples:
  smartvalue monitor --once
  smartvalue monitor --schedule "0 18 * * 1-5"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		source, _ := cmd.Flags().GetString("source")
		once, _ := cmd.Flags().GetBool("once")
		schedule, _ := cmd.Flags().GetString("schedule")
		if schedule == "" {
			schedule = cfg.Monitor.Schedule
		}

		reg, err := newRegistry(source)
		if err != nil {
			return err
		}
		r := monitor.New(reg, newConverter(), newMacro(),
			monitor.WithSource(source),
			monitor.WithModelDir(cfg.Models.OutputDir),
			monitor.WithMonitorPath(cfg.Models.MonitorPath),
			monitor.WithRunTimeout(cfg.Monitor.RunTimeout),
			monitor.WithLogger(logger),
		)

		if once {
			res, err := r.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("🔄 Refreshed %d models (%d failed) in %s\n", len(res.Models), res.Failed(), res.Duration)
			for _, m := range res.Models {
				if m.Err != nil {
					fmt.Printf("   ✗ %-10s %v\n", m.Symbol, m.Err)
				}
			}
			return nil
		}

		if err := r.Start(schedule); err != nil {
			return err
		}
		fmt.Printf("⏰ Monitor running on %q, Ctrl+C to stop\n", schedule)
		<-cmd.Context().Done()
		r.Stop()
		return nil
	},
}

func init() {
	monitorCmd.Flags().String("source", "", "quote provider (yq, yf, fmp); default from config")
	monitorCmd.Flags().Bool("once", false, "run a single refresh and exit")
	monitorCmd.Flags().String("schedule", "", "cron expression (default from config)")
}
