package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/noah-isme/banner-pricing/internal/catalog"
	"github.com/noah-isme/banner-pricing/internal/flags"
	"github.com/noah-isme/banner-pricing/internal/present"
	"github.com/noah-isme/banner-pricing/internal/pricing"
	"github.com/noah-isme/banner-pricing/internal/quote"
)

type quoteFlags struct {
	catalogPath string
	width       string
	height      string
	quantity    int
	material    string
	options     []string
	region      string
	flags       []string
	taxRate     string
	minimum     int64
	currency    string
	symbol      string
	asJSON      bool
}

func newQuoteCmd() *cobra.Command {
	var f quoteFlags
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price one banner against a catalog file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			view, err := runQuote(cmd, f)
			if err != nil {
				return err
			}
			if f.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}
			return printQuote(cmd.OutOrStdout(), view)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.catalogPath, "catalog", "catalog.yaml", "catalog definition file")
	fl.StringVar(&f.width, "width", "", "width in inches")
	fl.StringVar(&f.height, "height", "", "height in inches")
	fl.IntVar(&f.quantity, "qty", 1, "number of banners")
	fl.StringVar(&f.material, "material", "", "material id (catalog default when empty)")
	fl.StringSliceVar(&f.options, "option", nil, "option id, repeatable")
	fl.StringVar(&f.region, "region", "us", "pricing region")
	fl.StringSliceVar(&f.flags, "flag", nil, "feature flag, repeatable")
	fl.StringVar(&f.taxRate, "tax-rate", "0.06", "tax rate as a fraction")
	fl.Int64Var(&f.minimum, "min-order-cents", int64(pricing.DefaultMinimumOrder), "minimum order in cents")
	fl.StringVar(&f.currency, "currency", "USD", "ISO currency code")
	fl.StringVar(&f.symbol, "symbol", "$", "currency symbol")
	fl.BoolVar(&f.asJSON, "json", false, "print the quote as JSON")
	_ = cmd.MarkFlagRequired("width")
	_ = cmd.MarkFlagRequired("height")
	return cmd
}

func runQuote(cmd *cobra.Command, f quoteFlags) (present.QuoteView, error) {
	width, err := decimal.NewFromString(f.width)
	if err != nil {
		return present.QuoteView{}, fmt.Errorf("--width: %w", err)
	}
	height, err := decimal.NewFromString(f.height)
	if err != nil {
		return present.QuoteView{}, fmt.Errorf("--height: %w", err)
	}
	taxRate, err := decimal.NewFromString(f.taxRate)
	if err != nil {
		return present.QuoteView{}, fmt.Errorf("--tax-rate: %w", err)
	}

	def, err := catalog.LoadFile(f.catalogPath)
	if err != nil {
		return present.QuoteView{}, err
	}
	cat, err := catalog.Build(def)
	if err != nil {
		return present.QuoteView{}, err
	}
	formatter, err := present.NewFormatter(f.currency, f.symbol, "en-US")
	if err != nil {
		return present.QuoteView{}, err
	}
	provider := flags.NewProvider(f.region, nil, f.flags)
	svc, err := quote.NewService(quote.ServiceConfig{
		Holder:       catalog.NewStaticHolder(cat),
		Flags:        provider,
		TaxRate:      taxRate,
		MinimumOrder: pricing.Money(f.minimum),
		Formatter:    formatter,
	})
	if err != nil {
		return present.QuoteView{}, err
	}
	item := pricing.LineItem{
		Width:             width,
		Height:            height,
		Quantity:          f.quantity,
		Material:          f.material,
		SelectedOptionIDs: f.options,
	}
	return svc.Price(cmd.Context(), quote.SurfaceCLI, provider.Default(), taxRate, []pricing.LineItem{item})
}

func printQuote(out io.Writer, view present.QuoteView) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(out, "catalog %s, region %s\n", view.CatalogVersion, view.Region)
	for _, item := range view.Items {
		fmt.Fprintf(out, "\n%s x %s in, %s, qty %d\n", item.Width, item.Height, item.Material, item.Quantity)
		for _, line := range item.Lines {
			fmt.Fprintf(tw, "%s\t%s\t\n", line.Label, line.Amount)
		}
		fmt.Fprintf(tw, "unit price\t%s\t\n", item.UnitPrice)
		fmt.Fprintf(tw, "line total\t%s\t\n", item.LineTotal)
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	fmt.Fprintln(out)
	fmt.Fprintf(tw, "subtotal\t%s\t\n", view.Totals.Subtotal)
	fmt.Fprintf(tw, "tax (%s)\t%s\t\n", view.Totals.TaxRate, view.Totals.Tax)
	fmt.Fprintf(tw, "total\t%s\t\n", view.Totals.Total)
	if view.Minimum.Applies && !view.Minimum.Met {
		fmt.Fprintf(tw, "below minimum by\t%s\t\n", view.Minimum.Shortfall)
	}
	return tw.Flush()
}
