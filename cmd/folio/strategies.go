package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/newthinker/folio/internal/strategy"
	"github.com/spf13/cobra"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List the available investment strategies",
	RunE: func(cmd *cobra.Command, args []string) error {
		return renderStrategies(cmd.OutOrStdout(), strategy.DefaultCatalog())
	},
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}

func renderStrategies(out io.Writer, catalog *strategy.Catalog) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSELECTS\t")
	fmt.Fprintln(w, "--\t----\t-------\t")
	for _, s := range catalog.All() {
		selects := s.Description
		if s.IsBasket() {
			selects = strings.Join(s.Basket, ", ")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t\n", s.ID, s.Name, selects)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nPick one or two; criteria strategies screen %d candidates.\n", len(catalog.Candidates()))
	return nil
}
