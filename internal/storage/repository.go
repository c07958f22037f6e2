package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	pq "github.com/lib/pq"

	"github.com/guttosm/tickerql/internal/domain/models"
)

// ErrConflict reports that a ticker with the same symbol was inserted concurrently.
// The transaction that hit it is no longer usable and must be rolled back.
var ErrConflict = errors.New("ticker already exists")

// uniqueViolation is the Postgres SQLSTATE for a unique constraint violation.
const uniqueViolation = pq.ErrorCode("23505")

const (
	selectTickerBySymbol = `SELECT id, symbol, name, sector FROM tickers WHERE symbol = $1`
	selectAllTickers     = `SELECT id, symbol, name, sector FROM tickers`
	selectPricesByTicker = `SELECT id, ticker_id, date, close_price, volume FROM prices WHERE ticker_id = $1 ORDER BY date, id`
	selectPricesByIDs    = `SELECT id, ticker_id, date, close_price, volume FROM prices WHERE ticker_id = ANY($1) ORDER BY ticker_id, date, id`
	insertTicker         = `INSERT INTO tickers (symbol, name, sector) VALUES ($1, $2, $3) RETURNING id`
	insertPrice          = `INSERT INTO prices (ticker_id, date, close_price, volume) VALUES ($1, $2, $3, $4)`
)

// LoadOptions controls what a read brings back with each ticker.
type LoadOptions struct {
	// WithPrices loads the full price history alongside the ticker.
	WithPrices bool
}

// TickerRepository defines contract for DB operations.
type TickerRepository interface {
	GetBySymbol(ctx context.Context, symbol string, opts LoadOptions) (*models.Ticker, error)
	List(ctx context.Context, opts LoadOptions) ([]models.Ticker, error)
	// WithinTx runs fn in one transaction, committing only if fn returns nil.
	WithinTx(ctx context.Context, fn func(tx TickerTx) error) error
}

// TickerTx is the set of writes available inside a unit of work.
type TickerTx interface {
	FindBySymbol(ctx context.Context, symbol string) (*models.Ticker, error)
	// CreateTicker inserts t and returns its id, or ErrConflict if the symbol is taken.
	CreateTicker(ctx context.Context, t *models.Ticker) (int64, error)
	InsertPrices(ctx context.Context, tickerID int64, prices []models.Price) error
}

type tickerRepository struct {
	db *sqlx.DB
}

// NewTickerRepository wraps an open Postgres handle.
//
// Parameters:
//   - db (*sql.DB): connection pool opened with the "postgres" driver.
//
// Returns:
//   - TickerRepository: repository backed by the tickers and prices tables.
func NewTickerRepository(db *sql.DB) TickerRepository {
	return &tickerRepository{db: sqlx.NewDb(db, "postgres")}
}

// GetBySymbol returns the ticker or nil when no row matches.
func (r *tickerRepository) GetBySymbol(ctx context.Context, symbol string, opts LoadOptions) (*models.Ticker, error) {
	t, err := findBySymbol(ctx, r.db, symbol)
	if err != nil || t == nil {
		return t, err
	}
	if !opts.WithPrices {
		return t, nil
	}

	var prices []models.Price
	if err := r.db.SelectContext(ctx, &prices, selectPricesByTicker, t.ID); err != nil {
		return nil, fmt.Errorf("select prices for %s: %w", symbol, err)
	}
	t.Prices = nonNil(prices)
	return t, nil
}

// List returns every ticker. With prices requested, all histories are fetched
// in a single extra query instead of one per ticker.
func (r *tickerRepository) List(ctx context.Context, opts LoadOptions) ([]models.Ticker, error) {
	var tickers []models.Ticker
	if err := r.db.SelectContext(ctx, &tickers, selectAllTickers); err != nil {
		return nil, fmt.Errorf("select tickers: %w", err)
	}
	tickers = nonNil(tickers)
	if !opts.WithPrices || len(tickers) == 0 {
		return tickers, nil
	}

	ids := make([]int64, len(tickers))
	for i, t := range tickers {
		ids[i] = t.ID
	}

	var prices []models.Price
	if err := r.db.SelectContext(ctx, &prices, selectPricesByIDs, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("select prices: %w", err)
	}

	byTicker := make(map[int64][]models.Price, len(tickers))
	for _, p := range prices {
		byTicker[p.TickerID] = append(byTicker[p.TickerID], p)
	}
	for i := range tickers {
		tickers[i].Prices = nonNil(byTicker[tickers[i].ID])
	}
	return tickers, nil
}

// WithinTx begins a transaction, hands it to fn and commits. Any error from fn
// (or a panic) leaves nothing behind.
func (r *tickerRepository) WithinTx(ctx context.Context, fn func(tx TickerTx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	if err := fn(&tickerTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type tickerTx struct {
	tx *sqlx.Tx
}

func (t *tickerTx) FindBySymbol(ctx context.Context, symbol string) (*models.Ticker, error) {
	return findBySymbol(ctx, t.tx, symbol)
}

func (t *tickerTx) CreateTicker(ctx context.Context, ticker *models.Ticker) (int64, error) {
	var id int64
	err := t.tx.QueryRowxContext(ctx, insertTicker, ticker.Symbol, ticker.Name, ticker.Sector).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrConflict, ticker.Symbol)
		}
		return 0, fmt.Errorf("insert ticker %s: %w", ticker.Symbol, err)
	}
	return id, nil
}

func (t *tickerTx) InsertPrices(ctx context.Context, tickerID int64, prices []models.Price) error {
	if len(prices) == 0 {
		return nil
	}
	stmt, err := t.tx.PreparexContext(ctx, insertPrice)
	if err != nil {
		return fmt.Errorf("prepare price insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, p := range prices {
		if _, err := stmt.ExecContext(ctx, tickerID, p.Date, p.ClosePrice, p.Volume); err != nil {
			return fmt.Errorf("insert price %s: %w", p.Date.Format("2006-01-02"), err)
		}
	}
	return nil
}

func findBySymbol(ctx context.Context, q sqlx.QueryerContext, symbol string) (*models.Ticker, error) {
	var t models.Ticker
	if err := sqlx.GetContext(ctx, q, &t, selectTickerBySymbol, symbol); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select ticker %s: %w", symbol, err)
	}
	return &t, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
