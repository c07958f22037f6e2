package graph

import (
	"errors"
	"fmt"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/guttosm/tickerql/internal/analytics"
	"github.com/guttosm/tickerql/internal/auth"
	"github.com/guttosm/tickerql/internal/domain/models"
	"github.com/guttosm/tickerql/internal/logger"
	"github.com/guttosm/tickerql/internal/metrics"
	"github.com/guttosm/tickerql/internal/service"
)

type resolvers struct {
	svc service.MarketService
}

// protect runs fn only when gate admits the request carried in the context.
func protect(gate auth.Gate, fn graphql.FieldResolveFn) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		if !gate.Check(RequestFrom(p.Context)) {
			metrics.AuthDenied.WithLabelValues(p.Info.FieldName).Inc()
			return nil, service.ErrNotAuthorized
		}
		return fn(p)
	}
}

// fail logs internal causes and hands graphql-go an error that carries its code.
func fail(p graphql.ResolveParams, err error) (interface{}, error) {
	var se *service.Error
	if !errors.As(err, &se) {
		se = &service.Error{Kind: service.KindInternal, Message: "internal error", Err: err}
	}
	if se.Kind == service.KindInternal {
		logger.L().Error().Err(se.Err).Str("field", p.Info.FieldName).Msg("resolver failed")
	}
	return nil, se
}

func (r *resolvers) getTicker(p graphql.ResolveParams) (interface{}, error) {
	symbol, _ := p.Args["symbol"].(string)
	t, err := r.svc.GetTicker(p.Context, symbol)
	if err != nil {
		return fail(p, err)
	}
	if t == nil {
		return nil, nil
	}
	return t, nil
}

func (r *resolvers) getAllTickers(p graphql.ResolveParams) (interface{}, error) {
	tickers, err := r.svc.ListTickers(p.Context)
	if err != nil {
		return fail(p, err)
	}
	return tickers, nil
}

func (r *resolvers) login(p graphql.ResolveParams) (interface{}, error) {
	username, _ := p.Args["username"].(string)
	tok, err := r.svc.Login(p.Context, username)
	if err != nil {
		return fail(p, err)
	}
	return tok, nil
}

func (r *resolvers) addMarketData(p graphql.ResolveParams) (interface{}, error) {
	in, err := marketDataInput(p.Args)
	if err != nil {
		return fail(p, service.NewValidationError(err.Error()))
	}
	t, err := r.svc.AddMarketData(p.Context, in)
	if err != nil {
		return fail(p, err)
	}
	return t, nil
}

// simpleMovingAverage is only called when the field is selected.
func (r *resolvers) simpleMovingAverage(p graphql.ResolveParams) (interface{}, error) {
	t := tickerOf(p.Source)
	if t == nil {
		return nil, nil
	}
	period, ok := p.Args["period"].(int)
	if !ok {
		return fail(p, service.NewValidationError("period is required"))
	}

	points := make([]analytics.Point, len(t.Prices))
	for i, pr := range t.Prices {
		points[i] = analytics.Point{Date: pr.Date, Close: pr.ClosePrice}
	}
	avg, found, err := analytics.SimpleMovingAverage(points, period)
	if err != nil {
		if errors.Is(err, analytics.ErrInvalidPeriod) {
			return fail(p, service.NewValidationError(err.Error()))
		}
		return fail(p, err)
	}
	if !found {
		return nil, nil
	}
	return avg, nil
}

func marketDataInput(args map[string]interface{}) (models.MarketDataInput, error) {
	in := models.MarketDataInput{}
	in.Symbol, _ = args["symbol"].(string)
	in.Name, _ = args["name"].(string)
	in.Sector, _ = args["sector"].(string)

	raw, _ := args["prices"].([]interface{})
	in.Prices = make([]models.PriceInput, 0, len(raw))
	for i, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			return in, fmt.Errorf("prices[%d] is not an object", i)
		}
		date, ok := m["date"].(time.Time)
		if !ok {
			return in, fmt.Errorf("prices[%d].date is not a valid date", i)
		}
		closePrice, err := toFloat(m["closePrice"])
		if err != nil {
			return in, fmt.Errorf("prices[%d].closePrice: %w", i, err)
		}
		volume, ok := m["volume"].(int64)
		if !ok {
			return in, fmt.Errorf("prices[%d].volume is not an integer", i)
		}
		in.Prices = append(in.Prices, models.PriceInput{Date: date, ClosePrice: closePrice, Volume: volume})
	}
	return in, nil
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	}
	return 0, fmt.Errorf("not a number: %v", v)
}
