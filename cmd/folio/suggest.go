package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/newthinker/folio/internal/app"
	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/money"
	"github.com/newthinker/folio/internal/suggest"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	suggestAmount     float64
	suggestStrategies []string
	suggestTimeout    time.Duration
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest a portfolio for an amount and strategies",
	Example: `  folio suggest --amount 10000 --strategy index
  folio suggest --amount 25000 --strategy growth --strategy quality`,
	RunE: runSuggest,
}

func init() {
	suggestCmd.Flags().Float64VarP(&suggestAmount, "amount", "a", 0, "investment amount in USD (required)")
	suggestCmd.Flags().StringSliceVarP(&suggestStrategies, "strategy", "s", nil, "strategy id or name, at most two (required)")
	suggestCmd.Flags().DurationVar(&suggestTimeout, "timeout", 2*time.Minute, "overall request timeout")

	suggestCmd.MarkFlagRequired("amount")
	suggestCmd.MarkFlagRequired("strategy")

	rootCmd.AddCommand(suggestCmd)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := newLogger(cfg)
	defer log.Sync()

	if suggestAmount < cfg.Portfolio.MinInvestment {
		return core.Errorf(core.ErrInvalidRequest, "amount must be at least %s", money.USD(cfg.Portfolio.MinInvestment))
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("creating app: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), suggestTimeout)
	defer cancel()

	sug, err := a.Service().Suggest(ctx, suggest.Request{
		Amount:     suggestAmount,
		Strategies: suggestStrategies,
	})
	if err != nil {
		return err
	}

	log.Debug("suggestion ready", zap.Int("holdings", len(sug.Allocations)))
	return renderSuggestion(cmd.OutOrStdout(), sug)
}

// renderSuggestion prints the suggestion as aligned tables.
func renderSuggestion(out io.Writer, sug *suggest.Suggestion) error {
	names := make([]string, 0, len(sug.Strategies))
	for _, s := range sug.Strategies {
		names = append(names, s.Name)
	}

	fmt.Fprintf(out, "Portfolio for %s (%s), as of %s\n\n",
		money.USD(sug.Amount), strings.Join(names, " + "), sug.AsOf.Format(core.DateLayout))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "TICKER\tWEIGHT\tPRICE\tALLOCATED\tSHARES\tINVESTED\t")
	for _, a := range sug.Allocations {
		fmt.Fprintf(w, "%s\t%.2f%%\t%s\t%s\t%d\t%s\t\n",
			a.Ticker, money.Percent(a.Weight), money.USD(a.Price),
			money.USD(a.TargetUSD), a.Shares, money.USD(a.SpentUSD))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Current value:  %s\n", money.USD(sug.CurrentTotalValue))
	fmt.Fprintf(out, "Leftover cash:  %s\n", money.USD(sug.LeftoverCash))

	if len(sug.Trend) > 0 {
		fmt.Fprintln(out, "\nRecent value")
		for _, p := range sug.Trend {
			fmt.Fprintf(out, "  %s  %s\n", p.Date.Format(core.DateLayout), money.USD(p.Value))
		}
	}

	if len(sug.Warnings) > 0 {
		fmt.Fprintln(out, "\nExcluded")
		for _, e := range sug.Warnings {
			fmt.Fprintf(out, "  %-6s %s: %s\n", e.Symbol, e.Code, e.Reason)
		}
	}

	if sug.Commentary != "" {
		fmt.Fprintf(out, "\n%s\n", sug.Commentary)
	}
	return nil
}
