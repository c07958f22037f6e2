package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/guttosm/tickerql/internal/domain/models"
	"github.com/guttosm/tickerql/internal/logger"
	"github.com/guttosm/tickerql/internal/storage"
)

// Issuer mints bearer credentials.
type Issuer interface {
	Issue(subject string, ttl time.Duration) (string, time.Time, error)
}

// MarketService holds the rules behind every GraphQL operation.
//
// It is transport-agnostic: authorization of protected operations happens
// before these methods are called.
type MarketService interface {
	GetTicker(ctx context.Context, symbol string) (*models.Ticker, error)
	ListTickers(ctx context.Context) ([]models.Ticker, error)
	Login(ctx context.Context, username string) (*models.AuthToken, error)
	AddMarketData(ctx context.Context, in models.MarketDataInput) (*models.Ticker, error)
}

type marketService struct {
	repo     storage.TickerRepository
	issuer   Issuer
	demoUser string
	validate *validator.Validate
}

// NewMarketService wires the repository and credential issuer.
//
// Parameters:
//   - repo (storage.TickerRepository): ticker and price persistence.
//   - issuer (Issuer): mints credentials on login.
//   - demoUser (string): the only subject allowed to log in.
//
// Returns:
//   - MarketService: ready for the GraphQL resolvers.
func NewMarketService(repo storage.TickerRepository, issuer Issuer, demoUser string) MarketService {
	return &marketService{
		repo:     repo,
		issuer:   issuer,
		demoUser: demoUser,
		validate: validator.New(),
	}
}

var withPrices = storage.LoadOptions{WithPrices: true}

// GetTicker returns nil, nil when the symbol is unknown.
func (s *marketService) GetTicker(ctx context.Context, symbol string) (*models.Ticker, error) {
	t, err := s.repo.GetBySymbol(ctx, symbol, withPrices)
	if err != nil {
		return nil, internalError("get ticker", err)
	}
	return t, nil
}

func (s *marketService) ListTickers(ctx context.Context) ([]models.Ticker, error) {
	tickers, err := s.repo.List(ctx, withPrices)
	if err != nil {
		return nil, internalError("list tickers", err)
	}
	return tickers, nil
}

// Login issues a bearer token for the demo subject. There is no password:
// the subject name alone is checked.
func (s *marketService) Login(_ context.Context, username string) (*models.AuthToken, error) {
	if username != s.demoUser {
		logger.L().Warn().Str("username", username).Msg("login rejected")
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.issuer.Issue(username, 0)
	if err != nil {
		return nil, internalError("issue token", err)
	}

	logger.L().Info().Str("username", username).Time("expires_at", exp).Msg("login succeeded")
	return &models.AuthToken{AccessToken: token, TokenType: models.TokenTypeBearer, ExpiresAt: exp}, nil
}

// AddMarketData creates the ticker if needed and appends every price in one
// transaction, then returns the ticker with its full, current history.
//
// If another request creates the same symbol first, the transaction is
// retried once and attaches the prices to the existing row.
func (s *marketService) AddMarketData(ctx context.Context, in models.MarketDataInput) (*models.Ticker, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, NewValidationError(validationMessage(err))
	}

	prices := make([]models.Price, len(in.Prices))
	for i, p := range in.Prices {
		prices[i] = models.Price{Date: truncateToDay(p.Date), ClosePrice: p.ClosePrice, Volume: p.Volume}
	}

	created, err := s.appendPrices(ctx, in, prices)
	if errors.Is(err, storage.ErrConflict) {
		logger.L().Info().Str("symbol", in.Symbol).Msg("ticker created concurrently, retrying")
		created, err = s.appendPrices(ctx, in, prices)
	}
	if err != nil {
		return nil, internalError("add market data", err)
	}

	t, err := s.repo.GetBySymbol(ctx, in.Symbol, withPrices)
	if err != nil {
		return nil, internalError("reload ticker", err)
	}
	if t == nil {
		return nil, internalError("reload ticker", errors.New("ticker missing after commit"))
	}

	logger.L().Info().
		Str("symbol", in.Symbol).
		Bool("created", created).
		Int("inserted", len(prices)).
		Int("total_prices", len(t.Prices)).
		Msg("market data added")
	return t, nil
}

// appendPrices runs one unit of work: fetch-or-create the ticker, insert the prices.
func (s *marketService) appendPrices(ctx context.Context, in models.MarketDataInput, prices []models.Price) (bool, error) {
	created := false
	err := s.repo.WithinTx(ctx, func(tx storage.TickerTx) error {
		existing, err := tx.FindBySymbol(ctx, in.Symbol)
		if err != nil {
			return err
		}

		var id int64
		if existing != nil {
			id = existing.ID
		} else {
			id, err = tx.CreateTicker(ctx, &models.Ticker{Symbol: in.Symbol, Name: in.Name, Sector: in.Sector})
			if err != nil {
				return err
			}
			created = true
		}
		return tx.InsertPrices(ctx, id, prices)
	})
	return created, err
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
