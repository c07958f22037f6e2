package graph

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/guttosm/tickerql/internal/domain/models"
	"github.com/guttosm/tickerql/internal/metrics"
	"github.com/guttosm/tickerql/internal/service"
)

type stubService struct {
	tickers   map[string]*models.Ticker
	listErr   error
	added     []models.MarketDataInput
	addResult *models.Ticker
}

func (s *stubService) GetTicker(_ context.Context, symbol string) (*models.Ticker, error) {
	return s.tickers[symbol], nil
}

func (s *stubService) ListTickers(_ context.Context) ([]models.Ticker, error) {
	if s.listErr != nil {
		return nil, &service.Error{Kind: service.KindInternal, Message: "internal error", Err: s.listErr}
	}
	out := []models.Ticker{}
	for _, t := range s.tickers {
		out = append(out, *t)
	}
	return out, nil
}

func (s *stubService) Login(_ context.Context, username string) (*models.AuthToken, error) {
	if username != "admin" {
		return nil, service.ErrInvalidCredentials
	}
	return &models.AuthToken{AccessToken: "signed.token.value", TokenType: models.TokenTypeBearer}, nil
}

func (s *stubService) AddMarketData(_ context.Context, in models.MarketDataInput) (*models.Ticker, error) {
	s.added = append(s.added, in)
	return s.addResult, nil
}

type stubGate struct{ allow bool }

func (g stubGate) Check(r *http.Request) bool { return g.allow && r != nil }

func tenDayTicker() *models.Ticker {
	t := &models.Ticker{Symbol: "AAPL", Name: "Apple Inc.", Sector: "Technology"}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 10; i++ {
		t.Prices = append(t.Prices, models.Price{Date: start.AddDate(0, 0, i), ClosePrice: float64(i), Volume: int64(i * 100)})
	}
	return t
}

func run(t *testing.T, svc service.MarketService, allow bool, query string, vars map[string]interface{}) *graphql.Result {
	t.Helper()
	schema, err := NewSchema(svc, stubGate{allow: allow})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
	return graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  query,
		VariableValues: vars,
		Context:        WithRequest(context.Background(), req),
	})
}

func decode(t *testing.T, res *graphql.Result, into interface{}) {
	t.Helper()
	raw, err := json.Marshal(res.Data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	if err := json.Unmarshal(raw, into); err != nil {
		t.Fatalf("unmarshal data: %v (%s)", err, raw)
	}
}

func TestGetTicker_WithPricesAndAverage(t *testing.T) {
	svc := &stubService{tickers: map[string]*models.Ticker{"AAPL": tenDayTicker()}}
	res := run(t, svc, false, `{
		getTicker(symbol: "AAPL") {
			symbol name sector
			prices { date closePrice volume }
			simpleMovingAverage
			long: simpleMovingAverage(period: 20)
		}
	}`, nil)
	if len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}

	var out struct {
		GetTicker struct {
			Symbol string
			Name   string
			Prices []struct {
				Date       string
				ClosePrice float64
				Volume     int
			}
			SimpleMovingAverage *float64
			Long                *float64
		}
	}
	decode(t, res, &out)

	got := out.GetTicker
	if got.Symbol != "AAPL" || got.Name != "Apple Inc." || len(got.Prices) != 10 {
		t.Fatalf("unexpected ticker: %+v", got)
	}
	if got.Prices[0].Date != "2024-01-02" || got.Prices[0].Volume != 100 {
		t.Fatalf("unexpected first price: %+v", got.Prices[0])
	}
	if got.SimpleMovingAverage == nil || *got.SimpleMovingAverage != 8.0 {
		t.Fatalf("simpleMovingAverage=%v, want 8.0", got.SimpleMovingAverage)
	}
	if got.Long != nil {
		t.Fatalf("period 20 over 10 prices should be null, got %v", *got.Long)
	}
}

func TestGetTicker_UnknownIsNull(t *testing.T) {
	res := run(t, &stubService{}, false, `{ getTicker(symbol: "NOPE") { symbol } }`, nil)
	if len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	data := res.Data.(map[string]interface{})
	if v, ok := data["getTicker"]; !ok || v != nil {
		t.Fatalf("expected getTicker: null, got %v", data)
	}
}

func TestSimpleMovingAverage_InvalidPeriod(t *testing.T) {
	svc := &stubService{tickers: map[string]*models.Ticker{"AAPL": tenDayTicker()}}
	for _, period := range []string{"0", "-3"} {
		res := run(t, svc, false, `{ getTicker(symbol: "AAPL") { simpleMovingAverage(period: `+period+`) } }`, nil)
		if len(res.Errors) != 1 || !strings.Contains(res.Errors[0].Message, "period must be a positive integer") {
			t.Fatalf("period %s: expected validation error, got %v", period, res.Errors)
		}
	}
}

func TestSimpleMovingAverage_MissingPeriodArgument(t *testing.T) {
	r := &resolvers{}
	_, err := r.simpleMovingAverage(graphql.ResolveParams{
		Source: tenDayTicker(),
		Args:   map[string]interface{}{},
	})
	if service.KindOf(err) != service.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetAllTickers(t *testing.T) {
	svc := &stubService{tickers: map[string]*models.Ticker{
		"AAPL": tenDayTicker(),
		"MSFT": {Symbol: "MSFT", Name: "Microsoft", Sector: "Technology"},
	}}
	res := run(t, svc, false, `{ getAllTickers { symbol prices { closePrice } simpleMovingAverage(period: 2) } }`, nil)
	if len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	var out struct {
		GetAllTickers []struct {
			Symbol              string
			Prices              []struct{ ClosePrice float64 }
			SimpleMovingAverage *float64
		}
	}
	decode(t, res, &out)
	if len(out.GetAllTickers) != 2 {
		t.Fatalf("expected 2 tickers, got %+v", out.GetAllTickers)
	}
	for _, tk := range out.GetAllTickers {
		switch tk.Symbol {
		case "AAPL":
			if tk.SimpleMovingAverage == nil || *tk.SimpleMovingAverage != 9.5 {
				t.Fatalf("AAPL average=%v, want 9.5", tk.SimpleMovingAverage)
			}
		case "MSFT":
			if tk.Prices == nil || len(tk.Prices) != 0 || tk.SimpleMovingAverage != nil {
				t.Fatalf("MSFT should have empty prices and null average: %+v", tk)
			}
		}
	}
}

func TestGetAllTickers_VolumeAboveInt32(t *testing.T) {
	big := &models.Ticker{Symbol: "BIG", Name: "Big Volume", Sector: "Finance", Prices: []models.Price{
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), ClosePrice: 10, Volume: 3_000_000_000},
	}}
	svc := &stubService{tickers: map[string]*models.Ticker{"AAPL": tenDayTicker(), "BIG": big}}

	res := run(t, svc, false, `{ getAllTickers { symbol prices { volume } } }`, nil)
	if len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	var out struct {
		GetAllTickers []struct {
			Symbol string
			Prices []struct{ Volume int64 }
		}
	}
	decode(t, res, &out)
	if len(out.GetAllTickers) != 2 {
		t.Fatalf("expected 2 tickers, got %+v", out.GetAllTickers)
	}
	for _, tk := range out.GetAllTickers {
		if tk.Symbol == "BIG" && (len(tk.Prices) != 1 || tk.Prices[0].Volume != 3_000_000_000) {
			t.Fatalf("BIG volume not preserved: %+v", tk)
		}
	}
}

func TestAddMarketData_VolumeAboveInt32(t *testing.T) {
	cases := []struct {
		name  string
		query string
		vars  map[string]interface{}
	}{
		{
			name:  "variable decoded from json",
			query: addMutation,
			vars: map[string]interface{}{"prices": []interface{}{
				map[string]interface{}{"date": "2024-01-02", "closePrice": 1.0, "volume": float64(5_000_000_000)},
			}},
		},
		{
			name: "literal",
			query: `mutation { addMarketData(symbol: "AAPL", name: "Apple Inc.", sector: "Technology",
				prices: [{date: "2024-01-02", closePrice: 1, volume: 5000000000}]) { symbol } }`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{addResult: tenDayTicker()}
			res := run(t, svc, true, tc.query, tc.vars)
			if len(res.Errors) > 0 {
				t.Fatalf("unexpected errors: %v", res.Errors)
			}
			if len(svc.added) != 1 || svc.added[0].Prices[0].Volume != 5_000_000_000 {
				t.Fatalf("unexpected input: %+v", svc.added)
			}
		})
	}
}

func TestAddMarketData_FractionalVolumeRejected(t *testing.T) {
	svc := &stubService{addResult: tenDayTicker()}
	res := run(t, svc, true, addMutation, map[string]interface{}{
		"prices": []interface{}{map[string]interface{}{"date": "2024-01-02", "closePrice": 1.0, "volume": 1.5}},
	})
	if len(res.Errors) == 0 || len(svc.added) != 0 {
		t.Fatalf("expected a coercion error and no service call: %v %+v", res.Errors, svc.added)
	}
}

func TestGetAllTickers_InternalErrorIsSanitized(t *testing.T) {
	svc := &stubService{listErr: errors.New("pq: password authentication failed")}
	res := run(t, svc, false, `{ getAllTickers { symbol } }`, nil)
	if len(res.Errors) != 1 {
		t.Fatalf("expected one error, got %v", res.Errors)
	}
	if res.Errors[0].Message != "internal error" {
		t.Fatalf("cause leaked: %q", res.Errors[0].Message)
	}
}

func TestLogin(t *testing.T) {
	res := run(t, &stubService{}, false, `mutation { login(username: "admin") { accessToken tokenType } }`, nil)
	if len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	var out struct {
		Login struct{ AccessToken, TokenType string }
	}
	decode(t, res, &out)
	if out.Login.AccessToken == "" || out.Login.TokenType != "bearer" {
		t.Fatalf("unexpected token: %+v", out.Login)
	}

	res = run(t, &stubService{}, false, `mutation { login(username: "guest") { accessToken } }`, nil)
	if len(res.Errors) != 1 || res.Errors[0].Message != "invalid credentials" {
		t.Fatalf("expected invalid credentials, got %v", res.Errors)
	}
}

const addMutation = `mutation Add($prices: [PriceInput!]!) {
	addMarketData(symbol: "AAPL", name: "Apple Inc.", sector: "Technology", prices: $prices) {
		symbol
		prices { date closePrice volume }
	}
}`

func TestAddMarketData_DeniedWithoutCredential(t *testing.T) {
	svc := &stubService{addResult: tenDayTicker()}
	before := testutil.ToFloat64(metrics.AuthDenied.WithLabelValues("addMarketData"))

	res := run(t, svc, false, addMutation, map[string]interface{}{
		"prices": []interface{}{map[string]interface{}{"date": "2024-01-02", "closePrice": 1.5, "volume": 10}},
	})
	if len(res.Errors) != 1 || res.Errors[0].Message != "not authorized" {
		t.Fatalf("expected not authorized, got %v", res.Errors)
	}
	if len(svc.added) != 0 {
		t.Fatalf("service must not be called when denied")
	}
	if after := testutil.ToFloat64(metrics.AuthDenied.WithLabelValues("addMarketData")); after != before+1 {
		t.Fatalf("auth_denied_total not incremented: %v -> %v", before, after)
	}
}

func TestAddMarketData_Allowed(t *testing.T) {
	svc := &stubService{addResult: tenDayTicker()}
	res := run(t, svc, true, addMutation, map[string]interface{}{
		"prices": []interface{}{
			map[string]interface{}{"date": "2024-01-02", "closePrice": 185.64, "volume": 82488700},
			map[string]interface{}{"date": "2024-01-02", "closePrice": 186, "volume": 1},
		},
	})
	if len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(svc.added) != 1 {
		t.Fatalf("expected one service call, got %d", len(svc.added))
	}
	in := svc.added[0]
	if in.Symbol != "AAPL" || in.Name != "Apple Inc." || len(in.Prices) != 2 {
		t.Fatalf("unexpected input: %+v", in)
	}
	want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if !in.Prices[0].Date.Equal(want) || in.Prices[0].Volume != 82488700 || in.Prices[1].ClosePrice != 186 {
		t.Fatalf("unexpected prices: %+v", in.Prices)
	}
}

func TestAddMarketData_BadDateRejected(t *testing.T) {
	svc := &stubService{addResult: tenDayTicker()}
	res := run(t, svc, true, addMutation, map[string]interface{}{
		"prices": []interface{}{map[string]interface{}{"date": "02/01/2024", "closePrice": 1.0, "volume": 1}},
	})
	if len(res.Errors) == 0 {
		t.Fatalf("expected a coercion error")
	}
	if len(svc.added) != 0 {
		t.Fatalf("service must not be called with invalid input")
	}
}

func TestRequestFrom(t *testing.T) {
	if RequestFrom(context.Background()) != nil {
		t.Fatalf("expected nil without a stored request")
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if RequestFrom(WithRequest(context.Background(), req)) != req {
		t.Fatalf("stored request not returned")
	}
}

func TestDateScalar(t *testing.T) {
	got, ok := parseDate("2024-02-29").(time.Time)
	if !ok || !got.Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("parseDate=%v", got)
	}
	for _, bad := range []interface{}{"2024-13-01", "", 20240101} {
		if got := parseDate(bad); got != nil {
			t.Fatalf("parseDate(%v)=%v, want nil", bad, got)
		}
	}
	ts := time.Date(2024, 3, 1, 23, 0, 0, 0, time.FixedZone("X", -3*3600))
	if got := serializeDate(ts); got != "2024-03-02" {
		t.Fatalf("serializeDate=%v, want UTC day", got)
	}
}

func TestLongScalar(t *testing.T) {
	cases := []struct {
		in   interface{}
		want interface{}
	}{
		{in: int64(3_000_000_000), want: int64(3_000_000_000)},
		{in: 42, want: int64(42)},
		{in: int32(-7), want: int64(-7)},
		{in: float64(9_007_199_254_740_992), want: int64(9_007_199_254_740_992)},
		{in: json.Number("3000000000"), want: int64(3_000_000_000)},
		{in: 1.5, want: nil},
		{in: float64(1 << 63), want: nil},
		{in: "12", want: nil},
		{in: nil, want: nil},
	}
	for _, c := range cases {
		if got := coerceLong(c.in); got != c.want {
			t.Fatalf("coerceLong(%v)=%v, want %v", c.in, got, c.want)
		}
	}
}
