package models

import "time"

// Ticker is a tradable instrument identified by a unique, case-sensitive symbol.
//
// Prices is only populated when the repository is asked to load them eagerly;
// a Ticker fetched without prices has a nil slice.
type Ticker struct {
	ID     int64   `db:"id" json:"-"`
	Symbol string  `db:"symbol" json:"symbol" example:"AAPL"`
	Name   string  `db:"name" json:"name" example:"Apple Inc."`
	Sector string  `db:"sector" json:"sector" example:"Technology"`
	Prices []Price `db:"-" json:"prices"`
}

// Price is one day's closing price and volume for a Ticker.
//
// Dates are calendar days normalized to UTC midnight. Several rows may share
// the same date; they are stored as given.
type Price struct {
	ID         int64     `db:"id" json:"-"`
	TickerID   int64     `db:"ticker_id" json:"-"`
	Date       time.Time `db:"date" json:"date"`
	ClosePrice float64   `db:"close_price" json:"closePrice"`
	Volume     int64     `db:"volume" json:"volume"`
}

// MarketDataInput is the payload of the addMarketData mutation.
type MarketDataInput struct {
	Symbol string       `validate:"required,max=32"`
	Name   string       `validate:"max=256"`
	Sector string       `validate:"max=128"`
	Prices []PriceInput `validate:"dive"`
}

// PriceInput is a single price point submitted with addMarketData.
// ClosePrice and Volume are stored as given.
type PriceInput struct {
	Date       time.Time `validate:"required"`
	ClosePrice float64
	Volume     int64
}

// AuthToken is returned by login.
type AuthToken struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"-"`
}

// TokenTypeBearer is the only token type issued.
const TokenTypeBearer = "bearer"
