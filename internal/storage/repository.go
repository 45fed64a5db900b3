package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"continuous-futures/internal/catalog"
	"continuous-futures/internal/series"
)

const (
	upsertVendorSQL = `INSERT INTO data_vendor (id, name, url)
    VALUES ($1, $2, $3)
    ON CONFLICT (id) DO UPDATE
    SET name = EXCLUDED.name,
        url  = EXCLUDED.url;`

	upsertProductSQL = `INSERT INTO products (
        data_id,
        symbol,
        name,
        sector,
        exchange,
        contracts
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    ON CONFLICT (symbol) DO UPDATE
    SET
        data_id    = EXCLUDED.data_id,
        name       = EXCLUDED.name,
        sector     = EXCLUDED.sector,
        exchange   = EXCLUDED.exchange,
        contracts  = EXCLUDED.contracts,
        updated_at = now();`

	upsertClosingPriceSQL = `INSERT INTO closing_prices (
        data_id,
        symbol,
        date,
        close
    ) VALUES (
        $1,$2,$3,$4
    )
    ON CONFLICT (symbol, date) DO UPDATE
    SET
        data_id    = EXCLUDED.data_id,
        close      = EXCLUDED.close,
        updated_at = now();`

	deleteStaleClosingPricesSQL = `DELETE FROM closing_prices
    WHERE symbol = $1 AND NOT (date = ANY($2::date[]));`

	listClosingPricesSQL = `SELECT
        date,
        close::text
    FROM closing_prices
    WHERE symbol = $1
      AND ($2::date IS NULL OR date >= $2::date)
      AND ($3::date IS NULL OR date <= $3::date)
    ORDER BY date;`

	listRecentClosingPricesSQL = `SELECT
        date,
        close::text
    FROM closing_prices
    WHERE symbol = $1
    ORDER BY date DESC
    LIMIT $2;`

	countClosingPricesSQL = `SELECT COUNT(*) FROM closing_prices WHERE ($1 = '' OR symbol = $1);`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// Observer is notified after a product's series is committed.
type Observer interface {
	ObservePersisted(product string, points int, at time.Time)
}

// SeriesStore defines continuous series persistence.
type SeriesStore interface {
	SaveContinuousSeries(ctx context.Context, product catalog.Product, s series.ContinuousSeries) error
	ListClosingPrices(ctx context.Context, symbol string, from, to time.Time) ([]series.Point, error)
	ListRecentClosingPrices(ctx context.Context, symbol string, limit int) ([]series.Point, error)
	CountClosingPrices(ctx context.Context, symbol string) (int64, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func() error, acquired bool, err error)
}

// Store persists vendors, products and continuous closing prices.
type Store struct {
	pool     *pgxpool.Pool
	observer Observer
}

// NewStore wires a pgx pool into a Store. observer may be nil.
func NewStore(pool *pgxpool.Pool, observer Observer) *Store {
	return &Store{pool: pool, observer: observer}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func() error, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, persistenceErr("advisory lock", "", err)
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, persistenceErr("advisory lock", "", fmt.Errorf("acquire connection: %w", err))
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, persistenceErr("advisory lock", "", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() error {
		defer conn.Release()
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			return persistenceErr("advisory unlock", "", err)
		}
		return nil
	}
	return unlock, true, nil
}

// UpsertVendor inserts or refreshes the data vendor row.
func (s *Store) UpsertVendor(ctx context.Context, v catalog.Vendor) error {
	pool, err := s.getPool()
	if err != nil {
		return persistenceErr("upsert vendor", "", err)
	}
	if _, err := pool.Exec(ctx, upsertVendorSQL, v.ID, v.Name, v.URL); err != nil {
		return persistenceErr("upsert vendor", "", err)
	}
	return nil
}

// UpsertProducts inserts or refreshes product rows in one batch.
func (s *Store) UpsertProducts(ctx context.Context, products []catalog.Product) error {
	pool, err := s.getPool()
	if err != nil {
		return persistenceErr("upsert products", "", err)
	}
	if len(products) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(upsertProductSQL, p.VendorID, p.Symbol, p.Name, p.Sector, p.Exchange, p.Months)
	}
	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return persistenceErr("upsert products", "", err)
	}
	return nil
}

// SaveContinuousSeries writes the product row and every point of s in one transaction.
// Re-running with the same series is a no-op; a changed close for an existing date replaces it.
func (s *Store) SaveContinuousSeries(ctx context.Context, product catalog.Product, cs series.ContinuousSeries) error {
	const op = "save series"

	pool, err := s.getPool()
	if err != nil {
		return persistenceErr(op, product.Symbol, err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return persistenceErr(op, product.Symbol, fmt.Errorf("begin: %w", err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	dates := make([]time.Time, len(cs.Points))
	for i, p := range cs.Points {
		dates[i] = p.Date
	}

	batch := &pgx.Batch{}
	batch.Queue(upsertProductSQL, product.VendorID, product.Symbol, product.Name, product.Sector, product.Exchange, product.Months)
	// The stored history is replaced by the new chain, never merged with an older one.
	batch.Queue(deleteStaleClosingPricesSQL, product.Symbol, dates)
	for _, p := range cs.Points {
		batch.Queue(upsertClosingPriceSQL, product.VendorID, product.Symbol, p.Date, p.Close.String())
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return persistenceErr(op, product.Symbol, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return persistenceErr(op, product.Symbol, fmt.Errorf("commit: %w", err))
	}

	if s.observer != nil {
		s.observer.ObservePersisted(product.Symbol, cs.Len(), time.Now())
	}
	return nil
}

// ListClosingPrices returns a product's stored closes between from and to inclusive, oldest
// first. A zero bound leaves that side open.
func (s *Store) ListClosingPrices(ctx context.Context, symbol string, from, to time.Time) ([]series.Point, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, persistenceErr("list closing prices", symbol, err)
	}

	rows, err := pool.Query(ctx, listClosingPricesSQL, symbol, dateArg(from), dateArg(to))
	if err != nil {
		return nil, persistenceErr("list closing prices", symbol, err)
	}
	points, err := collectPoints(rows, 0)
	if err != nil {
		return nil, persistenceErr("list closing prices", symbol, err)
	}
	return points, nil
}

// ListRecentClosingPrices returns up to limit of a product's latest closes, newest first.
func (s *Store) ListRecentClosingPrices(ctx context.Context, symbol string, limit int) ([]series.Point, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, persistenceErr("list recent closing prices", symbol, err)
	}

	rows, err := pool.Query(ctx, listRecentClosingPricesSQL, symbol, limit)
	if err != nil {
		return nil, persistenceErr("list recent closing prices", symbol, err)
	}
	points, err := collectPoints(rows, limit)
	if err != nil {
		return nil, persistenceErr("list recent closing prices", symbol, err)
	}
	return points, nil
}

// CountClosingPrices counts stored closes for symbol, or for every product when symbol is empty.
func (s *Store) CountClosingPrices(ctx context.Context, symbol string) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, persistenceErr("count closing prices", symbol, err)
	}
	var count int64
	if err := pool.QueryRow(ctx, countClosingPricesSQL, symbol).Scan(&count); err != nil {
		return 0, persistenceErr("count closing prices", symbol, err)
	}
	return count, nil
}

func dateArg(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func collectPoints(rows pgx.Rows, capacity int) ([]series.Point, error) {
	defer rows.Close()

	points := make([]series.Point, 0, capacity)
	for rows.Next() {
		var (
			date     time.Time
			closeStr string
		)
		if err := rows.Scan(&date, &closeStr); err != nil {
			return nil, err
		}
		closePrice, err := decimal.NewFromString(closeStr)
		if err != nil {
			return nil, fmt.Errorf("parse close: %w", err)
		}
		points = append(points, series.Point{Date: date.UTC(), Close: closePrice})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return points, nil
}
