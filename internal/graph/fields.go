package graph

import (
	"github.com/graphql-go/graphql"

	"github.com/guttosm/tickerql/internal/domain/models"
)

// Field resolvers for the object types. Sources arrive either as pointers
// (single results) or values (list elements).

func tickerOf(src interface{}) *models.Ticker {
	switch t := src.(type) {
	case *models.Ticker:
		return t
	case models.Ticker:
		return &t
	}
	return nil
}

func priceOf(src interface{}) *models.Price {
	switch pr := src.(type) {
	case *models.Price:
		return pr
	case models.Price:
		return &pr
	}
	return nil
}

func tickerSymbol(p graphql.ResolveParams) (interface{}, error) {
	if t := tickerOf(p.Source); t != nil {
		return t.Symbol, nil
	}
	return nil, nil
}

func tickerName(p graphql.ResolveParams) (interface{}, error) {
	if t := tickerOf(p.Source); t != nil {
		return t.Name, nil
	}
	return nil, nil
}

func tickerSector(p graphql.ResolveParams) (interface{}, error) {
	if t := tickerOf(p.Source); t != nil {
		return t.Sector, nil
	}
	return nil, nil
}

func tickerPrices(p graphql.ResolveParams) (interface{}, error) {
	t := tickerOf(p.Source)
	if t == nil {
		return nil, nil
	}
	if t.Prices == nil {
		return []models.Price{}, nil
	}
	return t.Prices, nil
}

func priceDate(p graphql.ResolveParams) (interface{}, error) {
	if pr := priceOf(p.Source); pr != nil {
		return pr.Date, nil
	}
	return nil, nil
}

func priceClose(p graphql.ResolveParams) (interface{}, error) {
	if pr := priceOf(p.Source); pr != nil {
		return pr.ClosePrice, nil
	}
	return nil, nil
}

func priceVolume(p graphql.ResolveParams) (interface{}, error) {
	if pr := priceOf(p.Source); pr != nil {
		return pr.Volume, nil
	}
	return nil, nil
}

func tokenAccess(p graphql.ResolveParams) (interface{}, error) {
	if tok, ok := p.Source.(*models.AuthToken); ok {
		return tok.AccessToken, nil
	}
	return nil, nil
}

func tokenType(p graphql.ResolveParams) (interface{}, error) {
	if tok, ok := p.Source.(*models.AuthToken); ok {
		return tok.TokenType, nil
	}
	return nil, nil
}
