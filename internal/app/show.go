package app

import (
	"context"
	"fmt"
	"text/tabwriter"

	"continuous-futures/internal/series"
)

// Show prints a product's most recent stored closes.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	product, ok := a.Catalog.Lookup(opts.Product)
	if !ok {
		return fmt.Errorf("unknown product %q", opts.Product)
	}

	store, closeStore, err := a.requireStore(ctx, "show closing prices")
	if err != nil {
		return err
	}
	defer closeStore()

	points, err := store.ListRecentClosingPrices(ctx, product.Symbol, opts.Limit)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		fmt.Fprintf(a.Out, "no closing prices stored for %s\n", product.Symbol)
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Date\tClose")
	for _, p := range points {
		fmt.Fprintf(writer, "%s\t%s\n", series.FormatDate(p.Date), p.Close.String())
	}
	return writer.Flush()
}

// Products prints the built-in product catalog.
func (a *App) Products() error {
	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Symbol\tName\tSector\tExchange\tMonths")
	for _, p := range a.Catalog.Products() {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n", p.Symbol, p.Name, p.Sector, p.Exchange, p.Months)
	}
	return writer.Flush()
}
