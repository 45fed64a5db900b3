package app

import (
	"context"

	"continuous-futures/internal/catalog"
)

// SetupDB applies the schema and seeds the vendor and product rows.
func (a *App) SetupDB(ctx context.Context) error {
	store, closeStore, err := a.requireStore(ctx, "set up the database")
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	if err := store.UpsertVendor(ctx, catalog.DefaultVendor()); err != nil {
		return err
	}
	products := a.Catalog.Products()
	if err := store.UpsertProducts(ctx, products); err != nil {
		return err
	}

	a.Logger.Info().Int("products", len(products)).Msg("database ready")
	return nil
}
